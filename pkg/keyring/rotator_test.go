package keyring

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/statestore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rotatorFixture struct {
	rotator *Rotator
	store   *statestore.MemoryStore
	clock   *fakeClock
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func setupRotator(t *testing.T) *rotatorFixture {
	t.Helper()

	clock := &fakeClock{current: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	store := statestore.NewMemoryStore()

	rotator, err := New(Config{
		Pool: []Credential{
			{ID: "key-a", Key: "sk-aaa"},
			{ID: "key-b", Key: "sk-bbb"},
			{ID: "key-c", Key: "sk-ccc"},
		},
		Privileged: Credential{ID: "key-priv", Key: "sk-privileged"},
		Store:      store,
		TTL:        DefaultLeaseTTL,
		Now:        clock.now,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	return &rotatorFixture{rotator: rotator, store: store, clock: clock}
}

func TestNew(t *testing.T) {
	t.Run("should reject empty pool", func(t *testing.T) {
		_, err := New(Config{Store: statestore.NewMemoryStore()})
		assert.Error(t, err)
	})

	t.Run("should reject missing store", func(t *testing.T) {
		_, err := New(Config{Pool: []Credential{{ID: "a", Key: "k"}}})
		assert.Error(t, err)
	})

	t.Run("should fall back to last pool entry as privileged", func(t *testing.T) {
		r, err := New(Config{
			Pool:  []Credential{{ID: "a", Key: "k1"}, {ID: "b", Key: "k2"}},
			Store: statestore.NewMemoryStore(),
		})
		require.NoError(t, err)
		assert.Equal(t, "k2", r.Privileged().Key)
		assert.True(t, r.Privileged().Privileged)
	})
}

func TestAcquire(t *testing.T) {
	t.Run("should return same credential within lease TTL", func(t *testing.T) {
		f := setupRotator(t)
		ctx := context.Background()

		first, err := f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)

		f.clock.advance(time.Hour)
		second, err := f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)

		assert.Equal(t, first.Key, second.Key)
	})

	t.Run("should mint a fresh lease after expiry", func(t *testing.T) {
		f := setupRotator(t)
		ctx := context.Background()

		_, err := f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)

		f.clock.advance(DefaultLeaseTTL)
		_, err = f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)

		table, err := f.store.Read(ctx, leaseTable)
		require.NoError(t, err)

		var lease Lease
		require.NoError(t, unmarshalLease(table["user-1"], &lease))
		assert.Equal(t, f.clock.current, lease.AssignedAt.UTC())
	})

	t.Run("should give distinct identities independent leases", func(t *testing.T) {
		f := setupRotator(t)
		ctx := context.Background()

		_, err := f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)
		_, err = f.rotator.Acquire(ctx, "user-2")
		require.NoError(t, err)

		table, err := f.store.Read(ctx, leaseTable)
		require.NoError(t, err)
		assert.Len(t, table, 2)
	})

	t.Run("should serve empty identity from pool head without a lease", func(t *testing.T) {
		f := setupRotator(t)

		cred, err := f.rotator.Acquire(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "sk-aaa", cred.Key)

		table, err := f.store.Read(context.Background(), leaseTable)
		require.NoError(t, err)
		assert.Empty(t, table)
	})

	t.Run("should start empty when the lease table is unreadable", func(t *testing.T) {
		f := setupRotator(t)
		f.rotator.store = failingStore{}
		// Write failure surfaces, read failure does not change the pick path.
		_, err := f.rotator.Acquire(context.Background(), "user-1")
		assert.Error(t, err)
	})
}

func TestEscalate(t *testing.T) {
	t.Run("should pin identity to privileged credential", func(t *testing.T) {
		f := setupRotator(t)
		ctx := context.Background()

		_, err := f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)
		require.NoError(t, f.rotator.Escalate(ctx, "user-1"))

		cred, err := f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "sk-privileged", cred.Key)
		assert.True(t, cred.Privileged)
	})

	t.Run("should hold privileged credential until TTL expires", func(t *testing.T) {
		f := setupRotator(t)
		ctx := context.Background()

		require.NoError(t, f.rotator.Escalate(ctx, "user-1"))

		f.clock.advance(DefaultLeaseTTL - time.Minute)
		cred, err := f.rotator.Acquire(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, cred.Privileged)
	})

	t.Run("should be a no-op for empty identity", func(t *testing.T) {
		f := setupRotator(t)
		require.NoError(t, f.rotator.Escalate(context.Background(), ""))

		table, err := f.store.Read(context.Background(), leaseTable)
		require.NoError(t, err)
		assert.Empty(t, table)
	})
}

func TestPrune(t *testing.T) {
	t.Run("should remove only expired leases", func(t *testing.T) {
		f := setupRotator(t)
		ctx := context.Background()

		_, err := f.rotator.Acquire(ctx, "old-user")
		require.NoError(t, err)

		f.clock.advance(DefaultLeaseTTL)
		_, err = f.rotator.Acquire(ctx, "fresh-user")
		require.NoError(t, err)

		require.NoError(t, f.rotator.Prune(ctx))

		table, err := f.store.Read(ctx, leaseTable)
		require.NoError(t, err)
		assert.Len(t, table, 1)
		assert.Contains(t, table, "fresh-user")
	})

	t.Run("should drop corrupt lease rows", func(t *testing.T) {
		f := setupRotator(t)
		ctx := context.Background()

		require.NoError(t, f.store.Write(ctx, leaseTable, statestore.Table{
			"broken": []byte("not json"),
		}))
		require.NoError(t, f.rotator.Prune(ctx))

		table, err := f.store.Read(ctx, leaseTable)
		require.NoError(t, err)
		assert.Empty(t, table)
	})
}

func unmarshalLease(raw []byte, lease *Lease) error {
	return json.Unmarshal(raw, lease)
}

type failingStore struct{}

func (failingStore) Read(context.Context, string) (statestore.Table, error) {
	return nil, assert.AnError
}

func (failingStore) Write(context.Context, string, statestore.Table) error {
	return assert.AnError
}

func (failingStore) Close() error { return nil }
