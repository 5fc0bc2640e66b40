package tokens

import (
	"context"

	"github.com/crateport/crateport/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.AuthorToken) (*models.AuthorToken, error)
	GetByName(ctx context.Context, authorID int64, name string) (*models.AuthorToken, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]*models.AuthorToken, error)

	// DeleteByName revokes a token; it reports whether a row was removed.
	DeleteByName(ctx context.Context, authorID int64, name string) (bool, error)
}
