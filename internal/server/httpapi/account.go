package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crateport/crateport/internal/common"
)

type loginBody struct {
	Email  string `json:"email"`
	Passwd string `json:"passwd"`
}

type registerBody struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Passwd string `json:"passwd"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %s", common.ErrBadMetadata, err))
		return
	}

	token, err := s.accounts.Login(r.Context(), body.Email, body.Passwd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %s", common.ErrBadMetadata, err))
		return
	}
	if body.Email == "" || body.Name == "" || body.Passwd == "" {
		s.writeError(w, r, fmt.Errorf("%w: email, name and passwd are required", common.ErrBadMetadata))
		return
	}

	token, err := s.accounts.Register(r.Context(), body.Email, body.Name, body.Passwd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type tokenListResponse struct {
	Tokens []tokenListEntry `json:"tokens"`
}

type tokenListEntry struct {
	Name string `json:"name"`
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.ListTokens(r.Context(), authorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]tokenListEntry, 0, len(list))
	for _, token := range list {
		out = append(out, tokenListEntry{Name: token.Name})
	}
	s.writeJSON(w, http.StatusOK, tokenListResponse{Tokens: out})
}

type createTokenBody struct {
	Name string `json:"name"`
}

type createTokenResponse struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var body createTokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %s", common.ErrBadMetadata, err))
		return
	}
	if body.Name == "" {
		s.writeError(w, r, fmt.Errorf("%w: token name is required", common.ErrBadMetadata))
		return
	}

	token, err := s.accounts.CreateToken(r.Context(), authorFrom(r.Context()), body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, createTokenResponse{Name: token.Name, Token: token.Token})
}

func (s *Server) tokenInfo(w http.ResponseWriter, r *http.Request) {
	token, err := s.accounts.GetToken(r.Context(), authorFrom(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenListEntry{Name: token.Name})
}

func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.RevokeToken(r.Context(), authorFrom(r.Context()), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}
