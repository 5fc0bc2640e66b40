package categories

import (
	"context"
	"fmt"

	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) ListAll(ctx context.Context) ([]*models.Category, error) {
	query := `SELECT id, tag, name, description FROM categories ORDER BY tag`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Category
	for rows.Next() {
		category := &models.Category{}
		if err := rows.Scan(&category.ID, &category.Tag, &category.Name, &category.Description); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, category)
	}
	return out, rows.Err()
}
