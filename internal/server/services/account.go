package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/cryptox"
	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/logging"
	"github.com/crateport/crateport/internal/server/models"
	"github.com/crateport/crateport/internal/server/repositories/repomanager"
)

// apiTokenName is the display name of the token minted by login/register.
const apiTokenName = "API"

// AccountService handles registration, login, token CRUD, and sessions. The
// password a client sends is already a derived digest; only the second,
// salted KDF runs here.
type AccountService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewAccountService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *AccountService {
	return &AccountService{db: db, repos: repos, logger: logger}
}

// Authenticate resolves the bare token of an Authorization header to its
// author. Anything but exactly one matching token row is unauthorized.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.Author, error) {
	if token == "" {
		return nil, common.ErrUnauthorized
	}
	author, err := s.repos.Authors(s.db).GetByToken(ctx, token)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return author, nil
}

// Register creates an author with a fresh salt, derives and stores the
// password hash, and returns a first registry token.
func (s *AccountService) Register(ctx context.Context, email, name, passwd string) (string, error) {
	var token string

	err := dbx.WithRetryableTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		authorsRepo := s.repos.Authors(tx)

		exists, err := authorsRepo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: an author already exists for this email", common.ErrForbidden)
		}

		salt, err := cryptox.GenerateSalt()
		if err != nil {
			return err
		}
		rawSalt, err := hex.DecodeString(salt)
		if err != nil {
			return err
		}
		derived := cryptox.DerivePasswordHash(passwd, rawSalt)

		author, err := authorsRepo.Create(ctx, &models.Author{
			Email:  email,
			Name:   name,
			Passwd: &derived,
		})
		if err != nil {
			return err
		}
		if err := authorsRepo.CreateSalt(ctx, author.ID, salt); err != nil {
			return err
		}

		token, err = cryptox.GenerateToken()
		if err != nil {
			return err
		}
		_, err = s.repos.Tokens(tx).Create(ctx, &models.AuthorToken{
			Name:     apiTokenName,
			Token:    token,
			AuthorID: author.ID,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Login verifies the client digest against the stored hash and hands back the
// author's API token, minting one if none exists yet.
func (s *AccountService) Login(ctx context.Context, email, passwd string) (string, error) {
	var token string

	err := dbx.WithRetryableTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		authorsRepo := s.repos.Authors(tx)

		creds, err := authorsRepo.Credentials(ctx, email)
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: invalid email/password combination", common.ErrForbidden)
		}
		if err != nil {
			return err
		}

		ok, err := cryptox.VerifyPassword(passwd, creds.Salt, creds.Passwd)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: invalid email/password combination", common.ErrForbidden)
		}

		tokensRepo := s.repos.Tokens(tx)
		existing, err := tokensRepo.GetByName(ctx, creds.AuthorID, apiTokenName)
		if err == nil {
			token = existing.Token
			return nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		token, err = cryptox.GenerateToken()
		if err != nil {
			return err
		}
		_, err = tokensRepo.Create(ctx, &models.AuthorToken{
			Name:     apiTokenName,
			Token:    token,
			AuthorID: creds.AuthorID,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// CreateToken mints a named token for an author.
func (s *AccountService) CreateToken(ctx context.Context, author *models.Author, name string) (*models.AuthorToken, error) {
	value, err := cryptox.GenerateToken()
	if err != nil {
		return nil, err
	}
	return s.repos.Tokens(s.db).Create(ctx, &models.AuthorToken{
		Name:     name,
		Token:    value,
		AuthorID: author.ID,
	})
}

// ListTokens lists an author's tokens.
func (s *AccountService) ListTokens(ctx context.Context, author *models.Author) ([]*models.AuthorToken, error) {
	return s.repos.Tokens(s.db).ListByAuthor(ctx, author.ID)
}

// GetToken looks up one of the author's tokens by display name.
func (s *AccountService) GetToken(ctx context.Context, author *models.Author, name string) (*models.AuthorToken, error) {
	return s.repos.Tokens(s.db).GetByName(ctx, author.ID, name)
}

// RevokeToken deletes one of the author's tokens by display name.
func (s *AccountService) RevokeToken(ctx context.Context, author *models.Author, name string) error {
	removed, err := s.repos.Tokens(s.db).DeleteByName(ctx, author.ID, name)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("token %q: %w", name, common.ErrNotFound)
	}
	return nil
}

// CreateSession opens a session for an author.
func (s *AccountService) CreateSession(ctx context.Context, authorID int64, lifetime time.Duration) (*models.Session, error) {
	id, err := cryptox.GenerateSessionID()
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		ID:       id,
		AuthorID: &authorID,
		Expiry:   time.Now().UTC().Add(lifetime).Format(models.DateTimeFormat),
		Data:     "{}",
	}
	if err := s.repos.Sessions(s.db).Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// PruneSessions removes every expired session. Rows are not pruned
// automatically; this is the hook operator tooling calls.
func (s *AccountService) PruneSessions(ctx context.Context) (int64, error) {
	return s.repos.Sessions(s.db).DeleteExpired(ctx, models.Now())
}
