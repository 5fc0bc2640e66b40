package categories

import (
	"context"

	"github.com/crateport/crateport/internal/server/models"
)

// Repository reads the closed, admin-seeded category set.
type Repository interface {
	ListAll(ctx context.Context) ([]*models.Category, error)
}
