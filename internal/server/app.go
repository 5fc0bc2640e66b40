// Package server initializes and runs the registry application: it opens the
// catalog database, builds the configured index and storage backends, wires
// the services, and serves the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crateport/crateport/internal/logging"
	"github.com/crateport/crateport/internal/server/config"
	"github.com/crateport/crateport/internal/server/httpapi"
	"github.com/crateport/crateport/internal/server/locks"
	"github.com/crateport/crateport/internal/server/rendering"
	"github.com/crateport/crateport/internal/server/repositories/repomanager"
	"github.com/crateport/crateport/internal/server/search"
	"github.com/crateport/crateport/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	searchIndex *search.Index
	handler     http.Handler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, repos, err := repomanager.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	idx, err := cfg.Index.BuildIndex()
	if err != nil {
		return nil, fmt.Errorf("index init error: %w", err)
	}
	// Fast-forward the working tree in case another instance pushed while we
	// were down. Publishes fail while the remote is unreachable; read-only
	// operations continue, so a failed refresh is not fatal.
	if err := idx.Refresh(ctx); err != nil {
		logger.Warn(ctx, "index refresh failed", "error", err.Error())
	}

	store, err := cfg.Storage.BuildStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	searchIndex, err := search.Open(cfg.General.SearchIndex)
	if err != nil {
		return nil, fmt.Errorf("search init error: %w", err)
	}

	crateService := services.NewCrateService(
		db, repos, idx, store, searchIndex,
		rendering.New(cfg.Syntect.Style),
		locks.New(),
		services.Limits{
			MaxMetadataSize: cfg.General.MaxMetadataSize,
			MaxCrateSize:    cfg.General.MaxCrateSize,
		},
		logger,
	)
	accountService := services.NewAccountService(db, repos, logger)

	handler := httpapi.NewRouter(httpapi.Options{
		Crates:                 crateService,
		Accounts:               accountService,
		Logger:                 logger,
		IndexTreePath:          cfg.Index.Path,
		MaxPublishBody:         int64(cfg.General.MaxMetadataSize) + int64(cfg.General.MaxCrateSize) + 8,
		MaxConcurrentPublishes: cfg.General.MaxConcurrentPublishes,
	})

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		searchIndex: searchIndex,
		handler:     handler,
	}, nil
}

// Run serves the HTTP API until the context is cancelled or a termination
// signal arrives, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.initSignalHandler(cancel)

	server := &http.Server{
		Addr:    app.config.General.Addr,
		Handler: app.handler,
		// Publish uploads are large; only the header read is bounded here.
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting registry", "addr", app.config.General.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return app.Close()
}

func (app *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}

func (app *App) Close() error {
	if err := app.searchIndex.Close(); err != nil {
		return err
	}
	return app.db.Close()
}
