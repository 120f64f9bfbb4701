package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/database/testutil"
)

func newTestStore(t *testing.T) (*DatabaseStore, *time.Time) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)

	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestSetGetWithoutExpiry(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "device_id", []byte("abc"), 0))
	*now = now.Add(24 * 365 * time.Hour)

	value, ok, err := store.Get(ctx, "device_id")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", string(value))

	require.NoError(t, store.Set(ctx, "device_id", []byte("xyz"), 0))
	value, _, err = store.Get(ctx, "device_id")
	require.NoError(t, err)
	require.Equal(t, "xyz", string(value))
}

func TestGetDropsExpiredEntries(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	*now = now.Add(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIncrementWithTTLUsesFixedWindow(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "claim|1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	*now = now.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "claim|1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl)

	*now = now.Add(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "claim|1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDeleteAndPurge(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Second))
	require.NoError(t, store.Set(ctx, "c", []byte("3"), time.Hour))

	require.NoError(t, store.Delete(ctx, "a"))
	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	*now = now.Add(time.Minute)
	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, ok, err = store.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNilStoreReportsError(t *testing.T) {
	var store *DatabaseStore
	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
}
