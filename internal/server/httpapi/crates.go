package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/server/models"
	"github.com/crateport/crateport/internal/server/services"
)

type searchResponse struct {
	Crates []services.SearchResult `json:"crates"`
	Meta   searchMeta              `json:"meta"`
}

type searchMeta struct {
	Total uint64 `json:"total"`
}

func (s *Server) searchCrates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing query parameter \"q\"", common.ErrBadMetadata))
		return
	}
	page := intParam(r, "page", 1)
	perPage := intParam(r, "per_page", 0)

	total, results, err := s.crates.Search(r.Context(), query, page, perPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []services.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Crates: results, Meta: searchMeta{Total: total}})
}

type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

func (s *Server) suggestCrates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing query parameter \"q\"", common.ErrBadMetadata))
		return
	}
	names, err := s.crates.Suggest(r.Context(), query, intParam(r, "limit", 10))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, suggestResponse{Suggestions: names})
}

func (s *Server) crateInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.crates.Info(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

type ownerListResponse struct {
	Users []ownerListEntry `json:"users"`
}

type ownerListEntry struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

func (s *Server) listOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.crates.ListOwners(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	users := make([]ownerListEntry, 0, len(owners))
	for _, owner := range owners {
		users = append(users, ownerListEntry{ID: owner.ID, Login: owner.Email, Name: owner.Name})
	}
	s.writeJSON(w, http.StatusOK, ownerListResponse{Users: users})
}

type ownerChangeBody struct {
	Users []string `json:"users"`
}

type ownerChangeResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

func (s *Server) addOwners(w http.ResponseWriter, r *http.Request) {
	s.changeOwners(w, r, s.crates.AddOwners)
}

func (s *Server) removeOwners(w http.ResponseWriter, r *http.Request) {
	s.changeOwners(w, r, s.crates.RemoveOwners)
}

func (s *Server) changeOwners(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, author *models.Author, name string, emails []string) (string, error),
) {
	var body ownerChangeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %s", common.ErrBadMetadata, err))
		return
	}

	msg, err := apply(r.Context(), authorFrom(r.Context()), chi.URLParam(r, "name"), body.Users)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ownerChangeResponse{OK: true, Msg: msg})
}

func (s *Server) downloadCrate(w http.ResponseWriter, r *http.Request) {
	data, err := s.crates.Download(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "version"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

type publishResponse struct {
	Warnings *services.PublishWarnings `json:"warnings"`
}

func (s *Server) publishCrate(w http.ResponseWriter, r *http.Request) {
	if !s.uploads.TryAcquire(1) {
		s.writeError(w, r, fmt.Errorf("%w: too many concurrent uploads", common.ErrServerBusy))
		return
	}
	defer s.uploads.Release(1)

	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBody))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: reading body: %s", common.ErrMalformedUpload, err))
		return
	}

	warnings, err := s.crates.Publish(r.Context(), authorFrom(r.Context()), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, publishResponse{Warnings: warnings})
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) yankCrate(w http.ResponseWriter, r *http.Request) {
	s.setYanked(w, r, true)
}

func (s *Server) unyankCrate(w http.ResponseWriter, r *http.Request) {
	s.setYanked(w, r, false)
}

func (s *Server) setYanked(w http.ResponseWriter, r *http.Request, yanked bool) {
	err := s.crates.SetYanked(r.Context(), authorFrom(r.Context()),
		chi.URLParam(r, "name"), chi.URLParam(r, "version"), yanked)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type categoriesResponse struct {
	Categories []categoryEntry `json:"categories"`
}

type categoryEntry struct {
	Tag         string `json:"tag"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.crates.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryEntry, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryEntry{Tag: c.Tag, Name: c.Name, Description: c.Description})
	}
	s.writeJSON(w, http.StatusOK, categoriesResponse{Categories: out})
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
