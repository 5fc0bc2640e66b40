package sessions

import (
	"context"

	"github.com/crateport/crateport/internal/server/models"
)

type Repository interface {
	Put(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session whose expiry is before now and
	// returns how many rows went away. Expired sessions carry no observable
	// state, so removal is always safe.
	DeleteExpired(ctx context.Context, now string) (int64, error)
}
