package index

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crateport/crateport/internal/common"
)

// CommandLineIndex manages the crate index by invoking the git binary as a
// child process in the working tree. The local clone must already exist and
// be fast-forwardable at startup; pushes use whatever credentials the host
// environment exposes to git.
type CommandLineIndex struct {
	path string
	tree *Tree
}

func NewCommandLineIndex(path string) *CommandLineIndex {
	return &CommandLineIndex{path: path, tree: NewTree(path)}
}

func (idx *CommandLineIndex) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr strings.Builder

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = idx.path
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (idx *CommandLineIndex) URL(ctx context.Context) (string, error) {
	out, err := idx.run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (idx *CommandLineIndex) Refresh(ctx context.Context) error {
	_, err := idx.run(ctx, "pull", "--ff-only")
	return err
}

func (idx *CommandLineIndex) Configuration() (*ConfigFile, error) {
	return idx.tree.Configuration()
}

func (idx *CommandLineIndex) AllRecords(name string) ([]Record, error) {
	return idx.tree.AllRecords(name)
}

func (idx *CommandLineIndex) LatestRecord(name string) (*Record, error) {
	return idx.tree.LatestRecord(name)
}

func (idx *CommandLineIndex) MatchRecord(name string, req *semver.Constraints) (*Record, error) {
	return idx.tree.MatchRecord(name, req)
}

func (idx *CommandLineIndex) AddRecord(record Record) error {
	return idx.tree.AddRecord(record)
}

func (idx *CommandLineIndex) AlterRecord(name string, vers *semver.Version, fn func(*Record)) (bool, error) {
	return idx.tree.AlterRecord(name, vers, fn)
}

// CommitAndPush stages everything, commits as the given author, and pushes
// HEAD to origin. Committing is skipped when the tree is clean, so a retry
// after a failed push goes straight to the push. A push failure surfaces as
// ErrRemotePushFailed with the local commit left in place.
func (idx *CommandLineIndex) CommitAndPush(ctx context.Context, message, authorName, authorEmail string) error {
	status, err := idx.run(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) != "" {
		if _, err := idx.run(ctx, "add", "--all"); err != nil {
			return err
		}
		_, err = idx.run(ctx,
			"-c", "user.name="+authorName,
			"-c", "user.email="+authorEmail,
			"commit", "-m", message)
		if err != nil {
			return err
		}
	}

	if _, err := idx.run(ctx, "push", "origin", "HEAD"); err != nil {
		return fmt.Errorf("%w: %s", common.ErrRemotePushFailed, err)
	}
	return nil
}
