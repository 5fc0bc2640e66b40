package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	docs := map[int64]Document{
		1: {Name: "alpha", Description: "Alpha utilities"},
		2: {Name: "bravo", Description: "Bravo tools"},
		3: {Name: "alpha-extra", Description: "More alpha"},
	}
	for id, doc := range docs {
		require.NoError(t, idx.CreateOrUpdate(id, doc))
	}
	return idx
}

func TestSearch_MatchesNameAndDescription(t *testing.T) {
	idx := seedIndex(t)

	total, ids, err := idx.Search(context.Background(), "alpha", 0, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, uint64(2))
	require.Contains(t, ids, int64(1))
	require.Contains(t, ids, int64(3))

	// Exact name match ranks first.
	require.Equal(t, int64(1), ids[0])
}

func TestSearch_MissIsEmptyNotError(t *testing.T) {
	idx := seedIndex(t)

	total, ids, err := idx.Search(context.Background(), "zzzzz", 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(0), total)
	require.Empty(t, ids)
}

func TestSearch_Paging(t *testing.T) {
	idx := seedIndex(t)

	total, page0, err := idx.Search(context.Background(), "alpha", 0, 1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, uint64(2))
	require.Len(t, page0, 1)

	_, page1, err := idx.Search(context.Background(), "alpha", 1, 1)
	require.NoError(t, err)
	require.Len(t, page1, 1)
	require.NotEqual(t, page0[0], page1[0])
}

func TestSearch_UpsertReplaces(t *testing.T) {
	idx := seedIndex(t)

	require.NoError(t, idx.CreateOrUpdate(2, Document{Name: "bravo", Description: "now about alpha too"}))

	total, ids, err := idx.Search(context.Background(), "alpha", 0, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, uint64(3))
	require.Contains(t, ids, int64(2))
}

func TestSearch_Delete(t *testing.T) {
	idx := seedIndex(t)
	require.NoError(t, idx.Delete(1))

	_, ids, err := idx.Search(context.Background(), "alpha", 0, 10)
	require.NoError(t, err)
	require.NotContains(t, ids, int64(1))
}

func TestSuggest(t *testing.T) {
	idx := seedIndex(t)

	names, err := idx.Suggest(context.Background(), "alp", 10)
	require.NoError(t, err)
	require.Contains(t, names, "alpha")
	require.Contains(t, names, "alpha-extra")
}

func TestClampPerPage(t *testing.T) {
	require.Equal(t, DefaultPerPage, ClampPerPage(0))
	require.Equal(t, DefaultPerPage, ClampPerPage(-3))
	require.Equal(t, 30, ClampPerPage(30))
	require.Equal(t, MaxPerPage, ClampPerPage(5000))
}
