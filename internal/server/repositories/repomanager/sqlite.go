package repomanager

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/migrations"
	"github.com/crateport/crateport/internal/server/repositories/authors"
	"github.com/crateport/crateport/internal/server/repositories/categories"
	"github.com/crateport/crateport/internal/server/repositories/crates"
	"github.com/crateport/crateport/internal/server/repositories/sessions"
	"github.com/crateport/crateport/internal/server/repositories/tokens"
)

// SQLiteRepositoryManager vends SQLite-backed repositories (modernc.org/sqlite,
// no cgo) and runs the sqlite flavor of the embedded migrations. It also backs
// the ":memory:" ephemeral database mode.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Crates(db dbx.DBTX) crates.Repository {
	return crates.NewSQLRepository(db)
}

func (m *SQLiteRepositoryManager) Authors(db dbx.DBTX) authors.Repository {
	return authors.NewSQLRepository(db)
}

func (m *SQLiteRepositoryManager) Tokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewSQLRepository(db)
}

func (m *SQLiteRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db)
}

func (m *SQLiteRepositoryManager) Categories(db dbx.DBTX) categories.Repository {
	return categories.NewSQLRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "sqlite")
}
