package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/crateport/crateport/internal/common"
)

// GitIndex manages the crate index with go-git, in process. Fetches and
// pushes over SSH resolve credentials from the environment or agent; HTTPS
// credential resolution is delegated to the library's defaults.
type GitIndex struct {
	mu   sync.Mutex
	repo *git.Repository
	tree *Tree
}

func NewGitIndex(path string) (*GitIndex, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening index working tree %q: %w", path, err)
	}
	return &GitIndex{repo: repo, tree: NewTree(path)}, nil
}

func (idx *GitIndex) URL(ctx context.Context) (string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	remote, err := idx.repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

func (idx *GitIndex) Refresh(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	worktree, err := idx.repo.Worktree()
	if err != nil {
		return err
	}
	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (idx *GitIndex) Configuration() (*ConfigFile, error) {
	return idx.tree.Configuration()
}

func (idx *GitIndex) AllRecords(name string) ([]Record, error) {
	return idx.tree.AllRecords(name)
}

func (idx *GitIndex) LatestRecord(name string) (*Record, error) {
	return idx.tree.LatestRecord(name)
}

func (idx *GitIndex) MatchRecord(name string, req *semver.Constraints) (*Record, error) {
	return idx.tree.MatchRecord(name, req)
}

func (idx *GitIndex) AddRecord(record Record) error {
	return idx.tree.AddRecord(record)
}

func (idx *GitIndex) AlterRecord(name string, vers *semver.Version, fn func(*Record)) (bool, error) {
	return idx.tree.AlterRecord(name, vers, fn)
}

func (idx *GitIndex) CommitAndPush(ctx context.Context, message, authorName, authorEmail string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	worktree, err := idx.repo.Worktree()
	if err != nil {
		return err
	}

	status, err := worktree.Status()
	if err != nil {
		return err
	}
	if !status.IsClean() {
		if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return err
		}
		_, err = worktree.Commit(message, &git.CommitOptions{
			Author: &object.Signature{
				Name:  authorName,
				Email: authorEmail,
				When:  time.Now(),
			},
		})
		if err != nil {
			return err
		}
	}

	err = idx.repo.PushContext(ctx, &git.PushOptions{RemoteName: git.DefaultRemoteName})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrRemotePushFailed, err)
	}
	return nil
}
