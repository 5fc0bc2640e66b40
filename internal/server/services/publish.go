package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/crateport/crateport/internal/common"
	"github.com/crateport/crateport/internal/dbx"
	"github.com/crateport/crateport/internal/server/models"
	"github.com/crateport/crateport/internal/server/repositories/crates"
	"github.com/crateport/crateport/internal/server/search"
	"github.com/crateport/crateport/internal/tarx"
)

// PublishWarnings enumerates the non-fatal notes of a successful publish.
type PublishWarnings struct {
	InvalidCategories []string `json:"invalid_categories"`
	InvalidBadges     []string `json:"invalid_badges"`
	Other             []string `json:"other"`
}

// Publish runs the full publish pipeline for an authenticated author: frame
// decoding, validation, the catalog transaction, blob storage, the index
// commit and push, and the best-effort search upsert. On failure the
// compensation rules apply: blobs written for this version are deleted and
// the transaction rolls back; a local index commit that could not be pushed
// is left for the operator (or a retry).
func (s *CrateService) Publish(ctx context.Context, author *models.Author, body []byte) (*PublishWarnings, error) {
	frame, err := ParseFrame(body, s.limits.MaxMetadataSize, s.limits.MaxCrateSize)
	if err != nil {
		return nil, err
	}

	meta, err := DecodeMetadata(frame.Metadata)
	if err != nil {
		return nil, err
	}

	vers, err := meta.Version()
	if err != nil {
		return nil, err
	}

	if err := s.validateDeps(ctx, meta); err != nil {
		return nil, err
	}

	canonName := common.CanonicalName(meta.Name)

	unlock := s.locks.Lock(canonName)
	defer unlock()

	checksum := sha256.Sum256(frame.Crate)
	record := meta.IndexRecord(vers, hex.EncodeToString(checksum[:]))

	warnings := &PublishWarnings{
		InvalidCategories: []string{},
		InvalidBadges:     []string{},
		Other:             []string{},
	}

	// Past this point the pipeline must not be aborted by the caller going
	// away: it either completes or compensates.
	ctx = context.WithoutCancel(ctx)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cratesRepo := s.repos.Crates(tx)
		now := models.Now()

		exists, err := cratesRepo.Exists(ctx, canonName)
		if err != nil {
			return err
		}

		var crate *models.Crate
		if exists {
			crate, err = cratesRepo.GetByCanonName(ctx, canonName)
			if err != nil {
				return err
			}
			if crate.Name != meta.Name {
				return fmt.Errorf("%w: crate is registered as %q", common.ErrNameCollision, crate.Name)
			}

			owned, err := cratesRepo.IsOwner(ctx, crate.ID, author.ID)
			if err != nil {
				return err
			}
			if !owned {
				return fmt.Errorf("%w: you are not an owner of %q", common.ErrForbidden, crate.Name)
			}

			latest, err := s.index.LatestRecord(crate.Name)
			if err != nil {
				return err
			}
			if !vers.GreaterThan(latest.Vers) {
				return fmt.Errorf("%w: %s is not above the hosted %s", common.ErrVersionNotGreater, vers, latest.Vers)
			}

			if err := cratesRepo.UpdateMetadata(ctx, crate.ID, meta.Description, meta.Documentation, meta.Repository, now); err != nil {
				return err
			}
		} else {
			crate, err = cratesRepo.Create(ctx, &models.Crate{
				Name:          meta.Name,
				CanonName:     canonName,
				Description:   meta.Description,
				CreatedAt:     now,
				UpdatedAt:     now,
				Documentation: meta.Documentation,
				Repository:    meta.Repository,
			})
			if err != nil {
				return err
			}
			if err := cratesRepo.AddOwner(ctx, crate.ID, author.ID); err != nil {
				return err
			}
		}

		if err := cratesRepo.ReplaceKeywords(ctx, crate.ID, meta.Keywords); err != nil {
			return err
		}

		unknownTags, err := cratesRepo.ReplaceCategories(ctx, crate.ID, meta.Categories)
		if err != nil {
			return err
		}
		warnings.InvalidCategories = append(warnings.InvalidCategories, unknownTags...)

		badges, invalidBadges, err := splitBadges(crate.ID, meta.Badges)
		if err != nil {
			return err
		}
		warnings.InvalidBadges = append(warnings.InvalidBadges, invalidBadges...)
		if err := cratesRepo.ReplaceBadges(ctx, crate.ID, badges); err != nil {
			return err
		}

		if err := s.writeBlobs(ctx, meta, vers, frame.Crate); err != nil {
			return err
		}

		if err := s.index.AddRecord(record); err != nil {
			s.deleteBlobs(ctx, meta.Name, vers)
			return err
		}
		message := fmt.Sprintf("Updating crate '%s#%s'", canonName, vers)
		if err := s.index.CommitAndPush(ctx, message, author.Name, author.Email); err != nil {
			s.deleteBlobs(ctx, meta.Name, vers)
			return err
		}

		if err := s.upsertSearchDocument(ctx, cratesRepo, crate, meta); err != nil {
			s.logger.Warn(ctx, "search index upsert failed",
				"crate", crate.Name, "error", err.Error())
			warnings.Other = append(warnings.Other, fmt.Sprintf("%s: %s", common.ErrSearchIndexDegraded, crate.Name))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return warnings, nil
}

// validateDeps checks every dependency's version requirement and, for
// dependencies on this registry, that the crate exists locally.
func (s *CrateService) validateDeps(ctx context.Context, meta *Metadata) error {
	cratesRepo := s.repos.Crates(s.db)
	for _, dep := range meta.Deps {
		if dep.Name == "" {
			return fmt.Errorf("%w: dependency with empty name", common.ErrBadMetadata)
		}
		if _, err := semver.NewConstraint(dep.VersionReq); err != nil {
			return fmt.Errorf("%w: requirement %q of dependency %q: %s", common.ErrBadSemver, dep.VersionReq, dep.Name, err)
		}
		if dep.Registry != nil && *dep.Registry != "" {
			// Hosted elsewhere; nothing to check locally.
			continue
		}
		exists, err := cratesRepo.Exists(ctx, common.CanonicalName(dep.Name))
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %q is not in this registry", common.ErrMissingDependency, dep.Name)
		}
	}
	return nil
}

// writeBlobs stores the archive and the rendered README. Both blobs always
// exist for an accepted version; a crate without a README gets an empty blob.
func (s *CrateService) writeBlobs(ctx context.Context, meta *Metadata, vers *semver.Version, crateBytes []byte) error {
	version := vers.String()

	if err := s.storage.PutCrate(ctx, meta.Name, version, crateBytes); err != nil {
		_ = s.storage.DeleteCrate(ctx, meta.Name, version)
		return fmt.Errorf("%w: %s", common.ErrStorageUnavailable, err)
	}

	rendered, err := s.renderReadme(meta, vers, crateBytes)
	if err != nil {
		s.deleteBlobs(ctx, meta.Name, vers)
		return err
	}
	if err := s.storage.PutReadme(ctx, meta.Name, version, rendered); err != nil {
		s.deleteBlobs(ctx, meta.Name, vers)
		return fmt.Errorf("%w: %s", common.ErrStorageUnavailable, err)
	}
	return nil
}

// renderReadme extracts the README named in the metadata (or the conventional
// README.md) from the tarball and renders it to HTML. A crate without a
// README renders to an empty blob.
func (s *CrateService) renderReadme(meta *Metadata, vers *semver.Version, crateBytes []byte) ([]byte, error) {
	base := fmt.Sprintf("%s-%s", meta.Name, vers)
	candidates := []string{base + "/README.md"}
	if meta.ReadmeFile != nil && *meta.ReadmeFile != "" {
		candidates = []string{base + "/" + *meta.ReadmeFile}
	}

	markdown, err := tarx.ExtractFile(bytes.NewReader(crateBytes), candidates...)
	if errors.Is(err, tarx.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading archive: %s", common.ErrMalformedUpload, err)
	}

	html, err := s.renderer.Render(string(markdown))
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func (s *CrateService) deleteBlobs(ctx context.Context, name string, vers *semver.Version) {
	version := vers.String()
	if err := s.storage.DeleteCrate(ctx, name, version); err != nil {
		s.logger.Error(ctx, "compensation: deleting crate blob failed",
			"crate", name, "version", version, "error", err.Error())
	}
	if err := s.storage.DeleteReadme(ctx, name, version); err != nil {
		s.logger.Error(ctx, "compensation: deleting readme blob failed",
			"crate", name, "version", version, "error", err.Error())
	}
}

// upsertSearchDocument keeps the search index following the catalog: the
// crate's document is rebuilt from the row and the junctions just written in
// this transaction and upserted by crate id.
func (s *CrateService) upsertSearchDocument(ctx context.Context, cratesRepo crates.Repository, crate *models.Crate, meta *Metadata) error {
	keywords, err := cratesRepo.Keywords(ctx, crate.ID)
	if err != nil {
		return err
	}
	categories, err := cratesRepo.Categories(ctx, crate.ID)
	if err != nil {
		return err
	}

	description := ""
	if meta.Description != nil {
		description = *meta.Description
	}

	return s.search.CreateOrUpdate(crate.ID, search.Document{
		Name:        crate.Name,
		Description: description,
		Keywords:    keywords,
		Categories:  categories,
	})
}

func splitBadges(crateID int64, badges map[string]map[string]string) ([]models.CrateBadge, []string, error) {
	var kept []models.CrateBadge
	var invalid []string
	for badgeType, params := range badges {
		if !isKnownBadgeType(badgeType) {
			invalid = append(invalid, badgeType)
			continue
		}
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, nil, err
		}
		kept = append(kept, models.CrateBadge{
			CrateID:   crateID,
			BadgeType: badgeType,
			Params:    string(encoded),
		})
	}
	return kept, invalid, nil
}
