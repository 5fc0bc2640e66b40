package crates

import (
	"context"

	"github.com/crateport/crateport/internal/server/models"
)

// Repository is the catalog access for crates, their junctions, and their
// ownership relation.
type Repository interface {
	Create(ctx context.Context, crate *models.Crate) (*models.Crate, error)
	GetByCanonName(ctx context.Context, canonName string) (*models.Crate, error)
	Exists(ctx context.Context, canonName string) (bool, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*models.Crate, error)

	// UpdateMetadata refreshes the mutable crate columns and updated_at.
	UpdateMetadata(ctx context.Context, id int64, description, documentation, repository *string, updatedAt string) error

	// Touch moves updated_at forward without changing anything else.
	Touch(ctx context.Context, id int64, updatedAt string) error

	// IncrementDownloads bumps the approximate download counter.
	IncrementDownloads(ctx context.Context, id int64) error

	// Ownership.
	Owners(ctx context.Context, crateID int64) ([]*models.Author, error)
	IsOwner(ctx context.Context, crateID, authorID int64) (bool, error)
	AddOwner(ctx context.Context, crateID, authorID int64) error
	RemoveOwners(ctx context.Context, crateID int64, authorIDs []int64) (int64, error)
	CountOwners(ctx context.Context, crateID int64) (int64, error)

	// Junction replacement, used by publish.
	ReplaceKeywords(ctx context.Context, crateID int64, names []string) error
	ReplaceCategories(ctx context.Context, crateID int64, tags []string) (unknown []string, err error)
	ReplaceBadges(ctx context.Context, crateID int64, badges []models.CrateBadge) error

	Keywords(ctx context.Context, crateID int64) ([]string, error)
	Categories(ctx context.Context, crateID int64) ([]string, error)
}
