package repomanager

import (
	"database/sql"
	"fmt"
	"strings"
)

// Open connects to the configured database URL and returns the connection
// together with the matching repository manager.
//
// URLs starting with postgres:// or postgresql:// use the pgx driver;
// anything else is treated as a SQLite file path. The special URL ":memory:"
// yields an ephemeral in-memory database: it maps to a shared-cache DSN with
// a single connection, because each new SQLite connection would otherwise see
// its own empty memory database.
func Open(url string) (*sql.DB, RepositoryManager, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		db, err := sql.Open("pgx", url)
		if err != nil {
			return nil, nil, fmt.Errorf("db open error: %w", err)
		}
		return db, NewPostgresRepositoryManager(), nil
	}

	dsn := url
	if url == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if url == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, NewSQLiteRepositoryManager(), nil
}
