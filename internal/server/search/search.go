// Package search maintains the full-text index over crates: name (tokenized
// and exact), description, keywords and categories. Documents are keyed by
// crate id and upserted whenever crate metadata changes, so the index follows
// the catalog database.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	// DefaultPerPage is the page size when the client does not ask for one.
	DefaultPerPage = 15

	// MaxPerPage caps the page size; larger requests are silently clamped.
	MaxPerPage = 100
)

// Document is the indexed representation of one crate.
type Document struct {
	Name        string   `json:"name"`
	NameFull    string   `json:"name_full"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Categories  []string `json:"categories"`
}

// Index wraps a bleve index. The writer side is a process-wide singleton
// guarded by the per-crate lock table; reads are safe concurrently.
type Index struct {
	idx bleve.Index
}

// Open opens (or creates) the index at path. An empty path or ":memory:"
// yields an ephemeral in-memory index.
func Open(path string) (*Index, error) {
	m := buildMapping()
	if path == "" || path == ":memory:" {
		idx, err := bleve.NewMemOnly(m)
		if err != nil {
			return nil, err
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.New(path, m)
	if err == bleve.ErrorIndexPathExists {
		idx, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening search index at %q: %w", path, err)
	}
	return &Index{idx: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("name_full", exact)
	doc.AddFieldMappingsAt("description", text)
	doc.AddFieldMappingsAt("keywords", text)
	doc.AddFieldMappingsAt("categories", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// CreateOrUpdate upserts the document for a crate id.
func (s *Index) CreateOrUpdate(id int64, doc Document) error {
	doc.NameFull = strings.ToLower(doc.Name)
	return s.idx.Index(docID(id), doc)
}

// Delete removes the document for a crate id.
func (s *Index) Delete(id int64) error {
	return s.idx.Delete(docID(id))
}

// Search returns the total hit count and one page of crate ids ordered by
// relevance. A miss is an empty result with total 0, never an error. page is
// zero-based; perPage is defaulted and clamped.
func (s *Index) Search(ctx context.Context, query string, page, perPage int) (uint64, []int64, error) {
	perPage = ClampPerPage(perPage)
	if page < 0 {
		page = 0
	}

	q := searchQuery(query)
	req := bleve.NewSearchRequestOptions(q, perPage, page*perPage, false)

	res, err := s.idx.SearchInContext(ctx, req)
	if err != nil {
		return 0, nil, err
	}

	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return res.Total, ids, nil
}

// Suggest returns up to limit crate names whose name matches or starts with
// the query, for as-you-type completion.
func (s *Index) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > MaxPerPage {
		limit = 10
	}

	lowered := strings.ToLower(query)

	exact := bleve.NewTermQuery(lowered)
	exact.SetField("name_full")
	exact.SetBoost(10)

	prefix := bleve.NewPrefixQuery(lowered)
	prefix.SetField("name_full")

	tokens := bleve.NewMatchQuery(query)
	tokens.SetField("name")
	tokens.SetBoost(5)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(exact, prefix, tokens), limit, 0, false)
	req.Fields = []string{"name"}

	res, err := s.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if name, ok := hit.Fields["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *Index) Close() error {
	return s.idx.Close()
}

// ClampPerPage applies the default and the cap to a requested page size.
func ClampPerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

func searchQuery(q string) *query.DisjunctionQuery {
	lowered := strings.ToLower(q)

	exact := bleve.NewTermQuery(lowered)
	exact.SetField("name_full")
	exact.SetBoost(10)

	name := bleve.NewMatchQuery(q)
	name.SetField("name")
	name.SetBoost(5)

	namePrefix := bleve.NewPrefixQuery(lowered)
	namePrefix.SetField("name_full")
	namePrefix.SetBoost(2)

	description := bleve.NewMatchQuery(q)
	description.SetField("description")

	keywords := bleve.NewMatchQuery(q)
	keywords.SetField("keywords")

	categories := bleve.NewMatchQuery(q)
	categories.SetField("categories")

	return bleve.NewDisjunctionQuery(exact, name, namePrefix, description, keywords, categories)
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
