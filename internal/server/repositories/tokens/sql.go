package tokens

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

func (r *SQLRepository) Create(ctx context.Context, token *models.AuthorToken) (*models.AuthorToken, error) {
	query :=
		`INSERT INTO author_tokens (name, token, author_id)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, token.Name, token.Token, token.AuthorID).Scan(&token.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *SQLRepository) GetByName(ctx context.Context, authorID int64, name string) (*models.AuthorToken, error) {
	query :=
		`SELECT id, name, token, author_id
		 FROM author_tokens
		 WHERE author_id = $1 AND name = $2
		 `

	token := &models.AuthorToken{}
	err := r.db.QueryRowContext(ctx, query, authorID, name).Scan(
		&token.ID, &token.Name, &token.Token, &token.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *SQLRepository) ListByAuthor(ctx context.Context, authorID int64) ([]*models.AuthorToken, error) {
	query :=
		`SELECT id, name, token, author_id
		 FROM author_tokens
		 WHERE author_id = $1
		 ORDER BY name
		 `

	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.AuthorToken
	for rows.Next() {
		token := &models.AuthorToken{}
		if err := rows.Scan(&token.ID, &token.Name, &token.Token, &token.AuthorID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, token)
	}
	return out, rows.Err()
}

func (r *SQLRepository) DeleteByName(ctx context.Context, authorID int64, name string) (bool, error) {
	query := `DELETE FROM author_tokens WHERE author_id = $1 AND name = $2`

	res, err := r.db.ExecContext(ctx, query, authorID, name)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
