package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/models"
)

// ListOwners returns the owners of a crate. Public, lock-free.
func (s *CrateService) ListOwners(ctx context.Context, name string) ([]*models.Author, error) {
	cratesRepo := s.repos.Crates(s.db)

	crate, err := cratesRepo.GetByCanonName(ctx, common.CanonicalName(name))
	if err != nil {
		return nil, fmt.Errorf("crate %q: %w", name, err)
	}
	return cratesRepo.Owners(ctx, crate.ID)
}

// AddOwners grants ownership to the authors behind the given emails. Every
// email must belong to a registered author.
func (s *CrateService) AddOwners(ctx context.Context, author *models.Author, name string, emails []string) (string, error) {
	canonName := common.CanonicalName(name)

	unlock := s.locks.Lock(canonName)
	defer unlock()

	var added []string
	err := dbx.WithRetryableTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		added = added[:0]
		cratesRepo := s.repos.Crates(tx)

		crate, err := cratesRepo.GetByCanonName(ctx, canonName)
		if err != nil {
			return fmt.Errorf("crate %q: %w", name, err)
		}

		owned, err := cratesRepo.IsOwner(ctx, crate.ID, author.ID)
		if err != nil {
			return err
		}
		if !owned {
			return fmt.Errorf("%w: you are not an owner of %q", common.ErrForbidden, crate.Name)
		}

		ids, err := s.repos.Authors(tx).IDsByEmails(ctx, emails)
		if err != nil {
			return err
		}
		for _, email := range emails {
			if _, ok := ids[email]; !ok {
				return fmt.Errorf("%w: %q is not a registered author", common.ErrUnknownAuthor, email)
			}
		}

		for _, email := range emails {
			if err := cratesRepo.AddOwner(ctx, crate.ID, ids[email]); err != nil {
				return err
			}
			added = append(added, email)
		}

		return cratesRepo.Touch(ctx, crate.ID, models.Now())
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s has been added as owners of %s", joinNames(added), name), nil
}

// RemoveOwners revokes ownership from the authors behind the given emails.
// The owner set must never become empty.
func (s *CrateService) RemoveOwners(ctx context.Context, author *models.Author, name string, emails []string) (string, error) {
	canonName := common.CanonicalName(name)

	unlock := s.locks.Lock(canonName)
	defer unlock()

	var removed []string
	err := dbx.WithRetryableTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		removed = removed[:0]
		cratesRepo := s.repos.Crates(tx)

		crate, err := cratesRepo.GetByCanonName(ctx, canonName)
		if err != nil {
			return fmt.Errorf("crate %q: %w", name, err)
		}

		owned, err := cratesRepo.IsOwner(ctx, crate.ID, author.ID)
		if err != nil {
			return err
		}
		if !owned {
			return fmt.Errorf("%w: you are not an owner of %q", common.ErrForbidden, crate.Name)
		}

		ids, err := s.repos.Authors(tx).IDsByEmails(ctx, emails)
		if err != nil {
			return err
		}

		var toRemove []int64
		for _, email := range emails {
			id, ok := ids[email]
			if !ok {
				return fmt.Errorf("%w: %q is not a registered author", common.ErrUnknownAuthor, email)
			}
			isOwner, err := cratesRepo.IsOwner(ctx, crate.ID, id)
			if err != nil {
				return err
			}
			if isOwner {
				toRemove = append(toRemove, id)
				removed = append(removed, email)
			}
		}

		count, err := cratesRepo.CountOwners(ctx, crate.ID)
		if err != nil {
			return err
		}
		if count-int64(len(toRemove)) < 1 {
			return fmt.Errorf("%w: cannot leave %q without any owners", common.ErrEmptyOwnerSet, crate.Name)
		}

		if _, err := cratesRepo.RemoveOwners(ctx, crate.ID, toRemove); err != nil {
			return err
		}

		return cratesRepo.Touch(ctx, crate.ID, models.Now())
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s has been removed from owners of %s", joinNames(removed), name), nil
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + ", and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
