// Package services implements the registry's operations on top of the
// catalog repositories, the crate index, the blob storage, and the search
// index. The publish pipeline and every other crate mutation run under the
// per-crate lock table.
package services

import (
	"database/sql"

	"github.com/crateport/crateport/internal/logging"
	"github.com/crateport/crateport/internal/server/index"
	"github.com/crateport/crateport/internal/server/locks"
	"github.com/crateport/crateport/internal/server/rendering"
	"github.com/crateport/crateport/internal/server/repositories/repomanager"
	"github.com/crateport/crateport/internal/server/search"
	"github.com/crateport/crateport/internal/server/storage"
)

// Limits are the publish bounds enforced by the pipeline.
type Limits struct {
	MaxMetadataSize uint32
	MaxCrateSize    uint32
}

// CrateService coordinates the crate-facing operations: publish, yank,
// ownership, download, and the read-side query facade.
type CrateService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	index    index.Indexer
	storage  storage.Store
	search   *search.Index
	renderer *rendering.Renderer
	locks    *locks.KeyedMutex
	limits   Limits
	logger   logging.Logger
}

func NewCrateService(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	idx index.Indexer,
	store storage.Store,
	searchIndex *search.Index,
	renderer *rendering.Renderer,
	lockTable *locks.KeyedMutex,
	limits Limits,
	logger logging.Logger,
) *CrateService {
	return &CrateService{
		db:       db,
		repos:    repos,
		index:    idx,
		storage:  store,
		search:   searchIndex,
		renderer: renderer,
		locks:    lockTable,
		limits:   limits,
		logger:   logger,
	}
}
