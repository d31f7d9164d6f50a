package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	pool := NewDBPool()
	t.Cleanup(func() { pool.Close() })

	dsn := filepath.Join(t.TempDir(), "history.db")
	store, err := NewStore(context.Background(), pool, DriverSQLite, dsn)
	require.NoError(t, err)
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := &Record{
		ID:       "req-1",
		Query:    "What is 2+2?",
		Route:    "auto",
		Preset:   "gpt-4o",
		Model:    "gpt-4o",
		Outcome:  "ok",
		Score:    1.0,
		Duration: 420,
	}
	require.NoError(t, store.Append(ctx, rec))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "req-1", got.ID)
	assert.Equal(t, "What is 2+2?", got.Query)
	assert.Equal(t, "auto", got.Route)
	assert.Equal(t, 1.0, got.Score)
	assert.Equal(t, int64(420), got.Duration)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(ctx, &Record{
			ID:        id,
			Query:     "q",
			Route:     "raw",
			Preset:    "gpt-4o",
			Model:     "gpt-4o",
			Outcome:   "ok",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
}

func TestDBPool_SharesConnectionPerDSN(t *testing.T) {
	pool := NewDBPool()
	defer pool.Close()

	dsn := filepath.Join(t.TempDir(), "shared.db")

	first, err := pool.Get(DriverSQLite, dsn)
	require.NoError(t, err)
	second, err := pool.Get(DriverSQLite, dsn)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestDBPool_UnsupportedDriver(t *testing.T) {
	pool := NewDBPool()
	defer pool.Close()

	_, err := pool.Get("oracle", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
}
