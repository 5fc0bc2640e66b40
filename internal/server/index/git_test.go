package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// setupGitIndex creates a local bare "remote", a working clone seeded with an
// initial commit, and a GitIndex over the clone.
func setupGitIndex(t *testing.T) (*GitIndex, string) {
	t.Helper()

	remoteDir := t.TempDir()
	_, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	workDir := t.TempDir()
	repo, err := git.PlainInit(workDir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "config.json"),
		[]byte(`{"dl":"http://localhost:3000/api/v1/crates","api":"http://localhost:3000"}`), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("config.json")
	require.NoError(t, err)
	_, err = worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "registry", Email: "registry@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{remoteDir},
	})
	require.NoError(t, err)

	idx, err := NewGitIndex(workDir)
	require.NoError(t, err)
	return idx, remoteDir
}

func commitCount(t *testing.T, idx *GitIndex) int {
	t.Helper()
	head, err := idx.repo.Head()
	require.NoError(t, err)
	iter, err := idx.repo.Log(&git.LogOptions{From: head.Hash()})
	require.NoError(t, err)
	n := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	}))
	return n
}

func TestGitIndex_CommitAndPush(t *testing.T) {
	idx, _ := setupGitIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddRecord(testRecord(t, "foo-bar", "0.1.0")))
	require.NoError(t, idx.CommitAndPush(ctx, "Updating crate 'foo_bar#0.1.0'", "alice", "alice@example.com"))

	head, err := idx.repo.Head()
	require.NoError(t, err)
	commit, err := idx.repo.CommitObject(head.Hash())
	require.NoError(t, err)
	require.Equal(t, "Updating crate 'foo_bar#0.1.0'", commit.Message)
	require.Equal(t, "alice", commit.Author.Name)
}

func TestGitIndex_CleanTreeDoesNotCommit(t *testing.T) {
	idx, _ := setupGitIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddRecord(testRecord(t, "foo-bar", "0.1.0")))
	require.NoError(t, idx.CommitAndPush(ctx, "Updating crate 'foo_bar#0.1.0'", "alice", "alice@example.com"))
	before := commitCount(t, idx)

	// Nothing staged: a second call must not create a commit.
	require.NoError(t, idx.CommitAndPush(ctx, "spurious", "alice", "alice@example.com"))
	require.Equal(t, before, commitCount(t, idx))
}

func TestGitIndex_YankCreatesOneCommitPerStateChange(t *testing.T) {
	idx, _ := setupGitIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddRecord(testRecord(t, "foo-bar", "0.1.0")))
	require.NoError(t, idx.CommitAndPush(ctx, "Updating crate 'foo_bar#0.1.0'", "a", "a@example.com"))
	base := commitCount(t, idx)

	changed, err := idx.AlterRecord("foo-bar", mustVersion(t, "0.1.0"), func(r *Record) { r.Yanked = true })
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, idx.CommitAndPush(ctx, "Yanking crate 'foo_bar#0.1.0'", "a", "a@example.com"))
	require.Equal(t, base+1, commitCount(t, idx))

	// Second identical yank: no change, no commit.
	changed, err = idx.AlterRecord("foo-bar", mustVersion(t, "0.1.0"), func(r *Record) { r.Yanked = true })
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, idx.CommitAndPush(ctx, "Yanking crate 'foo_bar#0.1.0'", "a", "a@example.com"))
	require.Equal(t, base+1, commitCount(t, idx))

	changed, err = idx.AlterRecord("foo-bar", mustVersion(t, "0.1.0"), func(r *Record) { r.Yanked = false })
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, idx.CommitAndPush(ctx, "Unyanking crate 'foo_bar#0.1.0'", "a", "a@example.com"))
	require.Equal(t, base+2, commitCount(t, idx))
}

func TestGitIndex_URL(t *testing.T) {
	idx, remoteDir := setupGitIndex(t)
	url, err := idx.URL(context.Background())
	require.NoError(t, err)
	require.Equal(t, remoteDir, url)
}
