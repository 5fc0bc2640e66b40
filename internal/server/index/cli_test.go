package index

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func gitOrSkip(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

// setupCLIIndex creates a bare "remote" and a working clone with an initial
// commit, pointing origin at the bare repo.
func setupCLIIndex(t *testing.T) (*CommandLineIndex, string) {
	t.Helper()
	gitOrSkip(t)

	remoteDir := t.TempDir()
	runGit(t, remoteDir, "init", "--bare", "--initial-branch=master")

	workDir := t.TempDir()
	runGit(t, workDir, "init", "--initial-branch=master")
	runGit(t, workDir, "config", "user.name", "registry")
	runGit(t, workDir, "config", "user.email", "registry@example.com")
	runGit(t, workDir, "remote", "add", "origin", remoteDir)

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "config.json"),
		[]byte(`{"dl":"http://localhost:3000/api/v1/crates","api":"http://localhost:3000"}`), 0o644))
	runGit(t, workDir, "add", "--all")
	runGit(t, workDir, "commit", "-m", "initial")

	return NewCommandLineIndex(workDir), workDir
}

func TestCommandLineIndex_CommitAndPush(t *testing.T) {
	idx, workDir := setupCLIIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddRecord(testRecord(t, "foo-bar", "0.1.0")))
	require.NoError(t, idx.CommitAndPush(ctx, "Updating crate 'foo_bar#0.1.0'", "alice", "alice@example.com"))

	subject := strings.TrimSpace(runGit(t, workDir, "log", "-1", "--format=%s"))
	require.Equal(t, "Updating crate 'foo_bar#0.1.0'", subject)

	authorName := strings.TrimSpace(runGit(t, workDir, "log", "-1", "--format=%an"))
	require.Equal(t, "alice", authorName)

	// The push reached the remote.
	count := strings.TrimSpace(runGit(t, workDir, "rev-list", "--count", "origin/master"))
	require.Equal(t, "2", count)
}

func TestCommandLineIndex_RetryAfterCleanTreeSkipsCommit(t *testing.T) {
	idx, workDir := setupCLIIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddRecord(testRecord(t, "foo-bar", "0.1.0")))
	require.NoError(t, idx.CommitAndPush(ctx, "Updating crate 'foo_bar#0.1.0'", "alice", "alice@example.com"))
	before := strings.TrimSpace(runGit(t, workDir, "rev-list", "--count", "HEAD"))

	// Tree is clean: a second call pushes but creates no new commit.
	require.NoError(t, idx.CommitAndPush(ctx, "spurious", "alice", "alice@example.com"))
	after := strings.TrimSpace(runGit(t, workDir, "rev-list", "--count", "HEAD"))
	require.Equal(t, before, after)
}

func TestCommandLineIndex_URL(t *testing.T) {
	idx, workDir := setupCLIIndex(t)

	url, err := idx.URL(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, url)

	configured := strings.TrimSpace(runGit(t, workDir, "remote", "get-url", "origin"))
	require.Equal(t, configured, url)
}

func TestCommandLineIndex_Configuration(t *testing.T) {
	idx, _ := setupCLIIndex(t)

	cfg, err := idx.Configuration()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000", cfg.API)
}
