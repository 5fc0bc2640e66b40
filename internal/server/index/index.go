package index

import (
	"context"

	"github.com/Masterminds/semver/v3"
)

// Indexer is the capability set any index manager must implement. The
// implementation is selected once at startup from the config tag; the rest of
// the system holds a reference of this type.
type Indexer interface {
	// URL gives back the URL of the managed crate index remote.
	URL(ctx context.Context) (string, error)

	// Refresh fast-forwards the working tree from the remote, in case another
	// instance made modifications to it.
	Refresh(ctx context.Context) error

	// Configuration reads the index tree's config.json document.
	Configuration() (*ConfigFile, error)

	// AllRecords retrieves every version record of a crate, in publication
	// order.
	AllRecords(name string) ([]Record, error)

	// LatestRecord retrieves the version record with the highest semver.
	LatestRecord(name string) (*Record, error)

	// MatchRecord retrieves the highest version record matching the given
	// version requirement.
	MatchRecord(name string, req *semver.Constraints) (*Record, error)

	// AddRecord appends a new version record to the crate's file, creating
	// the sharded path on first publish. The append is atomic: the file
	// either gains the complete new line or is left untouched.
	AddRecord(record Record) error

	// AlterRecord applies fn to the record for (name, vers) and rewrites the
	// file. It reports whether the record actually changed; an alteration
	// that leaves the record identical is a no-op and must not be committed.
	AlterRecord(name string, vers *semver.Version, fn func(*Record)) (bool, error)

	// CommitAndPush stages the working tree, commits with the given message
	// and author, and pushes to the remote. A commit that was created but not
	// pushed is left in place; the caller may retry without re-staging.
	CommitAndPush(ctx context.Context, message, authorName, authorEmail string) error
}
