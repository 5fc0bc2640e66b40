package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crateport/crateport/internal/common"
)

func TestDiskStorage_PutGetCrate(t *testing.T) {
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("archive bytes")
	require.NoError(t, store.PutCrate(ctx, "foo-bar", "0.1.0", data))

	got, err := store.GetCrate(ctx, "foo-bar", "0.1.0")
	require.NoError(t, err)
	require.Equal(t, data, got)

	rc, err := store.ReadCrate(ctx, "foo-bar", "0.1.0")
	require.NoError(t, err)
	defer rc.Close()
	streamed, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, data, streamed)
}

func TestDiskStorage_Layout(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStorage(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutCrate(ctx, "foo-bar", "0.1.0", []byte("a")))
	require.NoError(t, store.PutReadme(ctx, "foo-bar", "0.1.0", []byte("<p>hi</p>")))

	_, err = os.Stat(filepath.Join(root, "foo-bar", "0.1.0"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "foo-bar", "0.1.0.readme"))
	require.NoError(t, err)
}

func TestDiskStorage_EmptyReadme(t *testing.T) {
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutReadme(ctx, "foo-bar", "0.1.0", nil))
	got, err := store.GetReadme(ctx, "foo-bar", "0.1.0")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDiskStorage_Missing(t *testing.T) {
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.GetCrate(ctx, "nope", "1.0.0")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.ReadCrate(ctx, "nope", "1.0.0")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDiskStorage_DeleteIsIdempotent(t *testing.T) {
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutCrate(ctx, "foo-bar", "0.1.0", []byte("a")))
	require.NoError(t, store.DeleteCrate(ctx, "foo-bar", "0.1.0"))
	require.NoError(t, store.DeleteCrate(ctx, "foo-bar", "0.1.0"))

	_, err = store.GetCrate(ctx, "foo-bar", "0.1.0")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDiskStorage_OverwriteIsAtomicResult(t *testing.T) {
	store, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutCrate(ctx, "foo-bar", "0.1.0", []byte("old")))
	require.NoError(t, store.PutCrate(ctx, "foo-bar", "0.1.0", []byte("new")))

	got, err := store.GetCrate(ctx, "foo-bar", "0.1.0")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got)
}
