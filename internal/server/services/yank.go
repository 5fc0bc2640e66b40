package services

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/index"
	"github.com/crateport/crateport/internal/server/models"
)

// SetYanked flips the yanked flag of one published version. It verifies
// ownership, rewrites the index line, and commits once per state change:
// flipping to the current value is a no-op with no new commit. No storage
// writes happen.
func (s *CrateService) SetYanked(ctx context.Context, author *models.Author, name, version string, yanked bool) error {
	vers, err := semver.StrictNewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: version %q: %s", common.ErrBadSemver, version, err)
	}

	canonName := common.CanonicalName(name)

	unlock := s.locks.Lock(canonName)
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
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

		changed, err := s.index.AlterRecord(crate.Name, vers, func(r *index.Record) {
			r.Yanked = yanked
		})
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		verb := "Yanking"
		if !yanked {
			verb = "Unyanking"
		}
		message := fmt.Sprintf("%s crate '%s#%s'", verb, canonName, vers)
		if err := s.index.CommitAndPush(ctx, message, author.Name, author.Email); err != nil {
			return err
		}

		return cratesRepo.Touch(ctx, crate.ID, models.Now())
	})
}
