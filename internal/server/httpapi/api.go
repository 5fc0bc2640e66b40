// Package httpapi exposes the registry over the HTTP surface the Cargo
// client consumes, plus the account endpoints and the read-only sparse view
// of the crate index.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/semaphore"

	"github.com/crateport/crateport/internal/logging"
	"github.com/crateport/crateport/internal/server/models"
	"github.com/crateport/crateport/internal/server/services"
)

// CrateAPI is the slice of the crate service the handlers need.
type CrateAPI interface {
	Publish(ctx context.Context, author *models.Author, body []byte) (*services.PublishWarnings, error)
	SetYanked(ctx context.Context, author *models.Author, name, version string, yanked bool) error
	ListOwners(ctx context.Context, name string) ([]*models.Author, error)
	AddOwners(ctx context.Context, author *models.Author, name string, emails []string) (string, error)
	RemoveOwners(ctx context.Context, author *models.Author, name string, emails []string) (string, error)
	Download(ctx context.Context, name, version string) ([]byte, error)
	Info(ctx context.Context, name string) (*services.CrateInfo, error)
	Search(ctx context.Context, query string, page, perPage int) (uint64, []services.SearchResult, error)
	Suggest(ctx context.Context, query string, limit int) ([]string, error)
	Categories(ctx context.Context) ([]*models.Category, error)
}

// AccountAPI is the slice of the account service the handlers need.
type AccountAPI interface {
	Authenticate(ctx context.Context, token string) (*models.Author, error)
	Register(ctx context.Context, email, name, passwd string) (string, error)
	Login(ctx context.Context, email, passwd string) (string, error)
	CreateToken(ctx context.Context, author *models.Author, name string) (*models.AuthorToken, error)
	ListTokens(ctx context.Context, author *models.Author) ([]*models.AuthorToken, error)
	GetToken(ctx context.Context, author *models.Author, name string) (*models.AuthorToken, error)
	RevokeToken(ctx context.Context, author *models.Author, name string) error
}

// Options configure the router.
type Options struct {
	Crates   CrateAPI
	Accounts AccountAPI
	Logger   logging.Logger

	// IndexTreePath is the working tree served read-only under /index/.
	IndexTreePath string

	// MaxPublishBody bounds how much of a publish request body is read.
	MaxPublishBody int64

	// MaxConcurrentPublishes bounds in-flight uploads; requests over the
	// limit get server-busy.
	MaxConcurrentPublishes int64
}

type Server struct {
	crates        CrateAPI
	accounts      AccountAPI
	logger        logging.Logger
	indexTreePath string
	maxBody       int64
	uploads       *semaphore.Weighted
}

// NewRouter wires the registry's HTTP surface.
func NewRouter(opts Options) http.Handler {
	if opts.MaxConcurrentPublishes <= 0 {
		opts.MaxConcurrentPublishes = 4
	}
	if opts.MaxPublishBody <= 0 {
		opts.MaxPublishBody = (512 << 20) + (10 << 20) + 8
	}

	s := &Server{
		crates:        opts.Crates,
		accounts:      opts.Accounts,
		logger:        opts.Logger,
		indexTreePath: opts.IndexTreePath,
		maxBody:       opts.MaxPublishBody,
		uploads:       semaphore.NewWeighted(opts.MaxConcurrentPublishes),
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.accessLogMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/crates", s.searchCrates)
		r.Get("/crates/suggest", s.suggestCrates)
		r.Get("/crates/{name}", s.crateInfo)
		r.Get("/crates/{name}/owners", s.listOwners)
		r.Get("/crates/{name}/{version}/download", s.downloadCrate)
		r.Get("/categories", s.listCategories)

		r.Post("/account/login", s.login)
		r.Post("/account/register", s.register)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Put("/crates/new", s.publishCrate)
			r.Delete("/crates/{name}/{version}/yank", s.yankCrate)
			r.Put("/crates/{name}/{version}/unyank", s.unyankCrate)
			r.Put("/crates/{name}/owners", s.addOwners)
			r.Delete("/crates/{name}/owners", s.removeOwners)

			r.Get("/account/tokens", s.listTokens)
			r.Post("/account/tokens", s.createToken)
			r.Put("/account/tokens", s.createToken)
			r.Get("/account/tokens/{name}", s.tokenInfo)
			r.Delete("/account/tokens/{name}", s.revokeToken)
		})
	})

	if s.indexTreePath != "" {
		r.Get("/index/*", s.sparseIndex)
	}

	return r
}
