package lock

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func runStoreTests(t *testing.T, store Store) {
	t.Run("acquire and release", func(t *testing.T) {
		lease, err := store.Acquire("owner-a", time.Minute)
		require.NoError(t, err)
		require.NotNil(t, lease)
		assert.Equal(t, "owner-a", lease.Owner)
		assert.NotEmpty(t, lease.ID)

		// Second acquire while held is rejected with the sentinel.
		_, err = store.Acquire("owner-b", time.Minute)
		assert.ErrorIs(t, err, ErrHeld)

		// After release the lease is free again.
		require.NoError(t, store.Release(lease))
		next, err := store.Acquire("owner-b", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Release(next))
	})

	t.Run("expired lease self heals", func(t *testing.T) {
		_, err := store.Acquire("crashed-owner", 50*time.Millisecond)
		require.NoError(t, err)
		// The crashed owner never releases; the TTL frees the lease.
		time.Sleep(120 * time.Millisecond)

		lease, err := store.Acquire("new-owner", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Release(lease))
	})

	t.Run("stale release does not steal", func(t *testing.T) {
		old, err := store.Acquire("owner-a", 50*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(120 * time.Millisecond)

		current, err := store.Acquire("owner-b", time.Minute)
		require.NoError(t, err)

		// Releasing the expired lease must not free owner-b's live lease.
		require.NoError(t, store.Release(old))
		_, err = store.Acquire("owner-c", time.Minute)
		assert.ErrorIs(t, err, ErrHeld)

		require.NoError(t, store.Release(current))
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		_, err := store.Acquire("owner", 0)
		assert.Error(t, err)
		assert.Error(t, store.Release(nil))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestBadgerStore(t *testing.T) {
	runStoreTests(t, NewBadgerStore(openTestDB(t)))
}
