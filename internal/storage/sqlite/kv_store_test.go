package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/storage/sqlite"
)

func openTemp(t *testing.T) (*sqlite.KVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.db")
	kv, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	return kv, path
}

func TestKVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, _ := openTemp(t)
	t.Cleanup(func() { _ = kv.Close() })

	require.NoError(t, kv.Ping(ctx))

	_, ok, err := kv.Get(ctx, "cart")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "cart", []byte(`{"items":[]}`)))
	require.NoError(t, kv.Set(ctx, "cart", []byte(`{"items":[1]}`)))

	got, ok, err := kv.Get(ctx, "cart")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"items":[1]}`, string(got))

	require.NoError(t, kv.Delete(ctx, "cart"))
	require.NoError(t, kv.Delete(ctx, "missing"))

	_, ok, err = kv.Get(ctx, "cart")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	kv, path := openTemp(t)
	require.NoError(t, kv.Set(ctx, "token", []byte("abc")))
	require.NoError(t, kv.Close())

	reopened, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, ok, err := reopened.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", string(got))
}

func TestKVStore_EmptyBlob(t *testing.T) {
	ctx := context.Background()
	kv, _ := openTemp(t)
	t.Cleanup(func() { _ = kv.Close() })

	require.NoError(t, kv.Set(ctx, "empty", nil))
	got, ok, err := kv.Get(ctx, "empty")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, got)
}
