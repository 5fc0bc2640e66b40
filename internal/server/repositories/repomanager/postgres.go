package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/migrations"
	"github.com/crateport/crateport/internal/server/repositories/authors"
	"github.com/crateport/crateport/internal/server/repositories/categories"
	"github.com/crateport/crateport/internal/server/repositories/crates"
	"github.com/crateport/crateport/internal/server/repositories/sessions"
	"github.com/crateport/crateport/internal/server/repositories/tokens"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and runs the
// postgres flavor of the embedded migrations.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Crates(db dbx.DBTX) crates.Repository {
	return crates.NewSQLRepository(db)
}

func (m *PostgresRepositoryManager) Authors(db dbx.DBTX) authors.Repository {
	return authors.NewSQLRepository(db)
}

func (m *PostgresRepositoryManager) Tokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewSQLRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db)
}

func (m *PostgresRepositoryManager) Categories(db dbx.DBTX) categories.Repository {
	return categories.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "postgres")
}
