package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Put(ctx context.Context, session *models.Session) error {
	query :=
		`INSERT INTO sessions (id, author_id, expiry, data)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET author_id = excluded.author_id, expiry = excluded.expiry, data = excluded.data
		 `

	if _, err := r.db.ExecContext(ctx, query, session.ID, session.AuthorID, session.Expiry, session.Data); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT id, author_id, expiry, data FROM sessions WHERE id = $1`

	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.AuthorID, &session.Expiry, &session.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, now string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expiry < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
