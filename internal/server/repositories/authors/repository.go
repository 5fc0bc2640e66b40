package authors

import (
	"context"

	"github.com/crateport/crateport/internal/server/models"
)

// Credentials is what the login flow needs to verify a password.
type Credentials struct {
	AuthorID int64
	Salt     string
	Passwd   string
}

type Repository interface {
	Create(ctx context.Context, author *models.Author) (*models.Author, error)
	CreateSalt(ctx context.Context, authorID int64, salt string) error
	GetByEmail(ctx context.Context, email string) (*models.Author, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// GetByToken resolves the author owning an API token. Exactly one token
	// row must match.
	GetByToken(ctx context.Context, token string) (*models.Author, error)

	// IDsByEmails maps each known email to its author id; unknown emails are
	// simply absent from the result.
	IDsByEmails(ctx context.Context, emails []string) (map[string]int64, error)

	// Credentials fetches the id, salt and stored password hash for an
	// email. Authors without a password (external identity only) report
	// common.ErrNotFound.
	Credentials(ctx context.Context, email string) (*Credentials, error)
}
