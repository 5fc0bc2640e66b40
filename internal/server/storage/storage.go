// Package storage persists crate archives and rendered README blobs keyed by
// (name, version). Two interchangeable backends exist: a local directory tree
// and an S3-compatible object store.
//
// The storage contract is that for every (name, version) accepted through
// publish, both an archive blob and a (possibly empty) README blob exist and
// are retrievable. Size limits are not enforced here; the publish pipeline
// bounds uploads.
package storage

import (
	"context"
	"io"
)

// Store is the capability set any storage manager must implement.
type Store interface {
	// PutCrate stores the archive blob for a version.
	PutCrate(ctx context.Context, name, version string, data []byte) error

	// GetCrate retrieves the archive blob for a version.
	GetCrate(ctx context.Context, name, version string) ([]byte, error)

	// ReadCrate opens the archive blob for streaming.
	ReadCrate(ctx context.Context, name, version string) (io.ReadCloser, error)

	// DeleteCrate removes the archive blob. Used by publish compensation.
	DeleteCrate(ctx context.Context, name, version string) error

	// PutReadme stores the rendered README blob for a version.
	PutReadme(ctx context.Context, name, version string, data []byte) error

	// GetReadme retrieves the rendered README blob for a version.
	GetReadme(ctx context.Context, name, version string) ([]byte, error)

	// DeleteReadme removes the README blob. Used by publish compensation.
	DeleteReadme(ctx context.Context, name, version string) error
}
