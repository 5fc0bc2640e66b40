package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/server/models"
)

// CrateInfo is the read-side view of one crate.
type CrateInfo struct {
	Name          string   `json:"name"`
	MaxVersion    string   `json:"max_version"`
	Description   *string  `json:"description"`
	Repository    *string  `json:"repository"`
	Documentation *string  `json:"documentation"`
	Downloads     int64    `json:"downloads"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	Keywords      []string `json:"keywords"`
	Categories    []string `json:"categories"`
}

// SearchResult is one search hit.
type SearchResult struct {
	Name          string  `json:"name"`
	MaxVersion    string  `json:"max_version"`
	Description   *string `json:"description"`
	Downloads     int64   `json:"downloads"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	Documentation *string `json:"documentation"`
	Repository    *string `json:"repository"`
}

// Info returns the metadata view of a crate.
func (s *CrateService) Info(ctx context.Context, name string) (*CrateInfo, error) {
	cratesRepo := s.repos.Crates(s.db)

	crate, err := cratesRepo.GetByCanonName(ctx, common.CanonicalName(name))
	if err != nil {
		return nil, fmt.Errorf("crate %q: %w", name, err)
	}

	latest, err := s.index.LatestRecord(crate.Name)
	if err != nil {
		return nil, err
	}

	keywords, err := cratesRepo.Keywords(ctx, crate.ID)
	if err != nil {
		return nil, err
	}
	categories, err := cratesRepo.Categories(ctx, crate.ID)
	if err != nil {
		return nil, err
	}
	if keywords == nil {
		keywords = []string{}
	}
	if categories == nil {
		categories = []string{}
	}

	return &CrateInfo{
		Name:          crate.Name,
		MaxVersion:    latest.Vers.String(),
		Description:   crate.Description,
		Repository:    crate.Repository,
		Documentation: crate.Documentation,
		Downloads:     crate.Downloads,
		CreatedAt:     crate.CreatedAt,
		UpdatedAt:     crate.UpdatedAt,
		Keywords:      keywords,
		Categories:    categories,
	}, nil
}

// Search runs the full-text query and resolves the hits back to catalog rows,
// keeping relevance order. page is one-based; perPage is defaulted and
// clamped.
func (s *CrateService) Search(ctx context.Context, query string, page, perPage int) (uint64, []SearchResult, error) {
	if page < 1 {
		page = 1
	}

	total, ids, err := s.search.Search(ctx, query, page-1, perPage)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s", common.ErrSearchIndexDegraded, err)
	}

	crates, err := s.repos.Crates(s.db).ListByIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}

	byID := make(map[int64]*models.Crate, len(crates))
	for _, crate := range crates {
		byID[crate.ID] = crate
	}

	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		crate, ok := byID[id]
		if !ok {
			// The search index lags the catalog; a stale hit is skipped.
			continue
		}
		latest, err := s.index.LatestRecord(crate.Name)
		if err != nil {
			s.logger.Warn(ctx, "search hit without index record", "crate", crate.Name, "error", err.Error())
			continue
		}
		results = append(results, SearchResult{
			Name:          crate.Name,
			MaxVersion:    latest.Vers.String(),
			Description:   crate.Description,
			Downloads:     crate.Downloads,
			CreatedAt:     crate.CreatedAt,
			UpdatedAt:     crate.UpdatedAt,
			Documentation: crate.Documentation,
			Repository:    crate.Repository,
		})
	}
	return total, results, nil
}

// Suggest returns crate names for as-you-type completion.
func (s *CrateService) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	names, err := s.search.Suggest(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrSearchIndexDegraded, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Categories lists the closed category set.
func (s *CrateService) Categories(ctx context.Context) ([]*models.Category, error) {
	return s.repos.Categories(s.db).ListAll(ctx)
}

// Download returns the archive bytes for one published version, bumping the
// approximate download counter first. The blob is checked against the index
// record's checksum; a mismatch or a missing blob is an integrity error,
// surfaced and never silently repaired.
func (s *CrateService) Download(ctx context.Context, name, version string) ([]byte, error) {
	vers, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %s", common.ErrBadSemver, version, err)
	}

	cratesRepo := s.repos.Crates(s.db)
	crate, err := cratesRepo.GetByCanonName(ctx, common.CanonicalName(name))
	if err != nil {
		return nil, fmt.Errorf("crate %q: %w", name, err)
	}

	records, err := s.index.AllRecords(crate.Name)
	if err != nil {
		return nil, err
	}
	cksum := ""
	for i := range records {
		if records[i].Vers.Equal(vers) {
			cksum = records[i].Cksum
			break
		}
	}
	if cksum == "" {
		return nil, fmt.Errorf("crate %q version %q: %w", name, version, common.ErrNotFound)
	}

	// The counter is deliberately outside any transaction; a lost increment
	// on crash is acceptable approximate accounting.
	if err := cratesRepo.IncrementDownloads(ctx, crate.ID); err != nil {
		s.logger.Warn(ctx, "download counter increment failed", "crate", crate.Name, "error", err.Error())
	}

	data, err := s.storage.GetCrate(ctx, crate.Name, vers.String())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: index lists %s@%s but storage has no blob", common.ErrRecordMissing, crate.Name, vers)
		}
		return nil, err
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != cksum {
		return nil, fmt.Errorf("%w: blob for %s@%s does not match the index record", common.ErrChecksumMismatch, crate.Name, vers)
	}

	return data, nil
}
