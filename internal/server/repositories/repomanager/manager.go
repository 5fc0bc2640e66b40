// Package repomanager vends repository implementations bound to a database
// handle and runs schema migrations (via goose). Two managers exist, one per
// supported dialect; Open picks one from the configured database URL.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/repositories/authors"
	"github.com/crateport/crateport/internal/server/repositories/categories"
	"github.com/crateport/crateport/internal/server/repositories/crates"
	"github.com/crateport/crateport/internal/server/repositories/sessions"
	"github.com/crateport/crateport/internal/server/repositories/tokens"
)

// RepositoryManager vends repository implementations bound to the provided
// DBTX (either the *sql.DB itself or a transaction) and exposes a schema
// migration hook.
type RepositoryManager interface {
	Crates(db dbx.DBTX) crates.Repository
	Authors(db dbx.DBTX) authors.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Categories(db dbx.DBTX) categories.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
