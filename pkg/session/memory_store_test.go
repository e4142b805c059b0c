package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/guardkit/pkg/session"
)

func runStoreContract(t *testing.T, store session.Store) {
	ctx := context.Background()
	now := time.Now()

	t.Run("save and get returns a copy", func(t *testing.T) {
		s := &session.Session{
			ID:        "sid-1",
			Data:      map[string]any{"user": "42"},
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, "sid-1")
		require.NoError(t, err)
		assert.Equal(t, "42", got.Data["user"])

		got.Data["user"] = "7"
		again, err := store.Get(ctx, "sid-1")
		require.NoError(t, err)
		assert.Equal(t, "42", again.Data["user"])
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &session.Session{ID: "sid-old", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}))
		_, err := store.Get(ctx, "sid-old")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "sid-1"))
		require.NoError(t, store.Delete(ctx, "sid-1"))
		_, err := store.Get(ctx, "sid-1")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("invalid session", func(t *testing.T) {
		assert.ErrorIs(t, store.Save(ctx, nil), session.ErrInvalidSession)
		assert.ErrorIs(t, store.Save(ctx, &session.Session{}), session.ErrInvalidSession)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	runStoreContract(t, store)
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore(0)
	now := time.Now()

	require.NoError(t, store.Save(ctx, &session.Session{ID: "a", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, &session.Session{ID: "b", ExpiresAt: now.Add(time.Hour)}))

	assert.Equal(t, 1, store.DeleteExpired(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CleanupLoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore(10 * time.Millisecond)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Save(ctx, &session.Session{ID: "a", ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
}
