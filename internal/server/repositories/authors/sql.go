package authors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *SQLRepository) Create(ctx context.Context, author *models.Author) (*models.Author, error) {
	query :=
		`INSERT INTO authors (email, name, passwd, github_id, gitlab_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		author.Email, author.Name, author.Passwd, author.GithubID, author.GitlabID).Scan(&author.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return author, nil
}

func (r *SQLRepository) CreateSalt(ctx context.Context, authorID int64, salt string) error {
	query := `INSERT INTO salts (salt, author_id) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, salt, authorID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.Author, error) {
	query :=
		`SELECT id, email, name, passwd, github_id, gitlab_id
		 FROM authors
		 WHERE email = $1
		 `

	author := &models.Author{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&author.ID, &author.Email, &author.Name, &author.Passwd, &author.GithubID, &author.GitlabID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return author, nil
}

func (r *SQLRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM authors WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *SQLRepository) GetByToken(ctx context.Context, token string) (*models.Author, error) {
	query :=
		`SELECT a.id, a.email, a.name, a.passwd, a.github_id, a.gitlab_id
		 FROM author_tokens t
		 JOIN authors a ON a.id = t.author_id
		 WHERE t.token = $1
		 `

	author := &models.Author{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&author.ID, &author.Email, &author.Name, &author.Passwd, &author.GithubID, &author.GitlabID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return author, nil
}

func (r *SQLRepository) IDsByEmails(ctx context.Context, emails []string) (map[string]int64, error) {
	if len(emails) == 0 {
		return map[string]int64{}, nil
	}

	placeholders := make([]string, len(emails))
	args := make([]any, len(emails))
	for i, email := range emails {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = email
	}

	query := fmt.Sprintf(`SELECT id, email FROM authors WHERE email IN (%s)`,
		strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, len(emails))
	for rows.Next() {
		var id int64
		var email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[email] = id
	}
	return out, rows.Err()
}

func (r *SQLRepository) Credentials(ctx context.Context, email string) (*Credentials, error) {
	query :=
		`SELECT a.id, s.salt, a.passwd
		 FROM authors a
		 JOIN salts s ON s.author_id = a.id
		 WHERE a.email = $1
		 `

	creds := &Credentials{}
	var passwd *string
	err := r.db.QueryRowContext(ctx, query, email).Scan(&creds.AuthorID, &creds.Salt, &passwd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if passwd == nil {
		return nil, common.ErrNotFound
	}
	creds.Passwd = *passwd

	return creds, nil
}
