package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err, "Open error")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "20240101120000_a.txt", "a.txt", 11))
	require.NoError(t, store.Record(ctx, "20240101120100_b.png", "b.png", 2048))

	uploads, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, uploads, 2)

	// Newest first.
	require.Equal(t, "20240101120100_b.png", uploads[0].Key)
	require.Equal(t, "b.png", uploads[0].DisplayName)
	require.Equal(t, int64(2048), uploads[0].Size)
	require.False(t, uploads[0].UploadedAt.IsZero())

	require.Equal(t, "20240101120000_a.txt", uploads[1].Key)
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, "key", "name", int64(i)))
	}

	uploads, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, uploads, 3)

	uploads, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, uploads, 5, "non-positive limit falls back to default")
}

func TestOpenEmptyStore(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	uploads, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, uploads)
}
