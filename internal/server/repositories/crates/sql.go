package crates

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

// SQLRepository works against both supported dialects: placeholders use the
// $N form (understood by PostgreSQL and SQLite alike) and upserts use
// ON CONFLICT.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, crate *models.Crate) (*models.Crate, error) {
	query :=
		`INSERT INTO crates (name, canon_name, description, created_at, updated_at, downloads, documentation, repository)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		crate.Name, crate.CanonName, crate.Description, crate.CreatedAt, crate.UpdatedAt,
		crate.Documentation, crate.Repository).Scan(&crate.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return crate, nil
}

func (r *SQLRepository) GetByCanonName(ctx context.Context, canonName string) (*models.Crate, error) {
	query :=
		`SELECT id, name, canon_name, description, created_at, updated_at, downloads, documentation, repository
		 FROM crates
		 WHERE canon_name = $1
		 `

	crate := &models.Crate{}
	err := r.db.QueryRowContext(ctx, query, canonName).Scan(
		&crate.ID, &crate.Name, &crate.CanonName, &crate.Description,
		&crate.CreatedAt, &crate.UpdatedAt, &crate.Downloads,
		&crate.Documentation, &crate.Repository)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return crate, nil
}

func (r *SQLRepository) Exists(ctx context.Context, canonName string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM crates WHERE canon_name = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, canonName).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *SQLRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.Crate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT id, name, canon_name, description, created_at, updated_at, downloads, documentation, repository
		 FROM crates
		 WHERE id IN (%s)`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Crate
	for rows.Next() {
		crate := &models.Crate{}
		err := rows.Scan(
			&crate.ID, &crate.Name, &crate.CanonName, &crate.Description,
			&crate.CreatedAt, &crate.UpdatedAt, &crate.Downloads,
			&crate.Documentation, &crate.Repository)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, crate)
	}
	return out, rows.Err()
}

func (r *SQLRepository) UpdateMetadata(ctx context.Context, id int64, description, documentation, repository *string, updatedAt string) error {
	query :=
		`UPDATE crates
		 SET description = $1, documentation = $2, repository = $3, updated_at = $4
		 WHERE id = $5
		 `

	if _, err := r.db.ExecContext(ctx, query, description, documentation, repository, updatedAt, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Touch(ctx context.Context, id int64, updatedAt string) error {
	query := `UPDATE crates SET updated_at = $1 WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, updatedAt, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) IncrementDownloads(ctx context.Context, id int64) error {
	query := `UPDATE crates SET downloads = downloads + 1 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Owners(ctx context.Context, crateID int64) ([]*models.Author, error) {
	query :=
		`SELECT a.id, a.email, a.name, a.passwd, a.github_id, a.gitlab_id
		 FROM crate_authors ca
		 JOIN authors a ON a.id = ca.author_id
		 WHERE ca.crate_id = $1
		 ORDER BY a.id
		 `

	rows, err := r.db.QueryContext(ctx, query, crateID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Author
	for rows.Next() {
		author := &models.Author{}
		if err := rows.Scan(&author.ID, &author.Email, &author.Name, &author.Passwd, &author.GithubID, &author.GitlabID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, author)
	}
	return out, rows.Err()
}

func (r *SQLRepository) IsOwner(ctx context.Context, crateID, authorID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM crate_authors WHERE crate_id = $1 AND author_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, crateID, authorID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *SQLRepository) AddOwner(ctx context.Context, crateID, authorID int64) error {
	query :=
		`INSERT INTO crate_authors (crate_id, author_id)
		 SELECT $1, $2
		 WHERE NOT EXISTS (SELECT 1 FROM crate_authors WHERE crate_id = $1 AND author_id = $2)
		 `

	if _, err := r.db.ExecContext(ctx, query, crateID, authorID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) RemoveOwners(ctx context.Context, crateID int64, authorIDs []int64) (int64, error) {
	if len(authorIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(authorIDs))
	args := []any{crateID}
	for i, id := range authorIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`DELETE FROM crate_authors WHERE crate_id = $1 AND author_id IN (%s)`,
		strings.Join(placeholders, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) CountOwners(ctx context.Context, crateID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM crate_authors WHERE crate_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, crateID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) ReplaceKeywords(ctx context.Context, crateID int64, names []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM crate_keywords WHERE crate_id = $1`, crateID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, name := range names {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO keywords (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		var keywordID int64
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM keywords WHERE name = $1`, name).Scan(&keywordID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		_, err = r.db.ExecContext(ctx,
			`INSERT INTO crate_keywords (crate_id, keyword_id) VALUES ($1, $2)`, crateID, keywordID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// ReplaceCategories links the crate to every known tag and returns the tags
// that do not exist in the closed category set.
func (r *SQLRepository) ReplaceCategories(ctx context.Context, crateID int64, tags []string) ([]string, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM crate_categories WHERE crate_id = $1`, crateID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var unknown []string
	for _, tag := range tags {
		var categoryID int64
		err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE tag = $1`, tag).Scan(&categoryID)
		if errors.Is(err, sql.ErrNoRows) {
			unknown = append(unknown, tag)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		_, err = r.db.ExecContext(ctx,
			`INSERT INTO crate_categories (crate_id, category_id) VALUES ($1, $2)`, crateID, categoryID)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}
	return unknown, nil
}

func (r *SQLRepository) ReplaceBadges(ctx context.Context, crateID int64, badges []models.CrateBadge) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM crate_badges WHERE crate_id = $1`, crateID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, badge := range badges {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO crate_badges (crate_id, badge_type, params) VALUES ($1, $2, $3)`,
			crateID, badge.BadgeType, badge.Params)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) Keywords(ctx context.Context, crateID int64) ([]string, error) {
	query :=
		`SELECT k.name
		 FROM crate_keywords ck
		 JOIN keywords k ON k.id = ck.keyword_id
		 WHERE ck.crate_id = $1
		 ORDER BY k.name
		 `
	return r.stringList(ctx, query, crateID)
}

func (r *SQLRepository) Categories(ctx context.Context, crateID int64) ([]string, error) {
	query :=
		`SELECT c.tag
		 FROM crate_categories cc
		 JOIN categories c ON c.id = cc.category_id
		 WHERE cc.crate_id = $1
		 ORDER BY c.tag
		 `
	return r.stringList(ctx, query, crateID)
}

func (r *SQLRepository) stringList(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
