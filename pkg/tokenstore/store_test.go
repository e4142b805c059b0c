package tokenstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// storeFactory returns an access token store and a remember-me store that
// share one backend.
type storeFactory func(t *testing.T, clock *fakeClock) (access, remember tokenstore.Store)

func newAccessToken(t *testing.T, clock *fakeClock, owner string, expiresIn time.Duration) *opaque.Token {
	t.Helper()
	tok, err := opaque.Create(opaque.AccessToken, opaque.CreateParams{
		TokenableID: owner,
		Name:        "cli",
		Abilities:   []string{"read", "write"},
		ExpiresIn:   expiresIn,
		Now:         clock.Now(),
	})
	require.NoError(t, err)
	return tok
}

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, factory storeFactory) {
	ctx := context.Background()

	t.Run("create and fetch", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, store.CreateToken(ctx, tok))
		assert.Equal(t, tokenstore.AccessTokenType, tok.Type)

		got, err := store.GetTokenBySeries(ctx, tok.Identifier)
		require.NoError(t, err)
		assert.Equal(t, tok.Identifier, got.Identifier)
		assert.Equal(t, tok.Hash, got.Hash)
		assert.Equal(t, "1", got.TokenableID)
		assert.Equal(t, "cli", got.Name)
		assert.Equal(t, []string{"read", "write"}, got.Abilities)
		assert.Nil(t, got.Value)
		require.NotNil(t, got.ExpiresAt)
		assert.WithinDuration(t, *tok.ExpiresAt, *got.ExpiresAt, time.Millisecond)
	})

	t.Run("unknown series", func(t *testing.T) {
		store, _ := factory(t, newFakeClock())
		_, err := store.GetTokenBySeries(ctx, "missing")
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
	})

	t.Run("foreign bucket is not found", func(t *testing.T) {
		clock := newFakeClock()
		access, remember := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, access.CreateToken(ctx, tok))

		_, err := remember.GetTokenBySeries(ctx, tok.Identifier)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)

		err = remember.UpdateTokenBySeries(ctx, tok.Identifier, "x", nil)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)

		require.NoError(t, remember.DeleteTokenBySeries(ctx, tok.Identifier))
		_, err = access.GetTokenBySeries(ctx, tok.Identifier)
		assert.NoError(t, err)
	})

	t.Run("expired is not found", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Minute)
		require.NoError(t, store.CreateToken(ctx, tok))

		clock.Advance(2 * time.Minute)
		_, err := store.GetTokenBySeries(ctx, tok.Identifier)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
	})

	t.Run("expiring at now is still live", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Minute)
		require.NoError(t, store.CreateToken(ctx, tok))

		clock.Advance(time.Minute)
		_, err := store.GetTokenBySeries(ctx, tok.Identifier)
		require.NoError(t, err)

		list, err := store.ListByTokenable(ctx, "1")
		require.NoError(t, err)
		assert.Len(t, list, 1)

		clock.Advance(time.Millisecond)
		_, err = store.GetTokenBySeries(ctx, tok.Identifier)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
	})

	t.Run("non expiring token", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", 0)
		require.NoError(t, store.CreateToken(ctx, tok))

		clock.Advance(24 * 365 * time.Hour)
		got, err := store.GetTokenBySeries(ctx, tok.Identifier)
		require.NoError(t, err)
		assert.Nil(t, got.ExpiresAt)
	})

	t.Run("duplicate series", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, store.CreateToken(ctx, tok))
		assert.ErrorIs(t, store.CreateToken(ctx, tok), tokenstore.ErrDuplicateSeries)
	})

	t.Run("update rotates hash and expiry", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, store.CreateToken(ctx, tok))

		clock.Advance(time.Minute)
		exp := clock.Now().Add(2 * time.Hour)
		require.NoError(t, store.UpdateTokenBySeries(ctx, tok.Identifier, "new-hash", &exp))

		got, err := store.GetTokenBySeries(ctx, tok.Identifier)
		require.NoError(t, err)
		assert.Equal(t, tok.Identifier, got.Identifier)
		assert.Equal(t, "new-hash", got.Hash)
		require.NotNil(t, got.ExpiresAt)
		assert.WithinDuration(t, exp, *got.ExpiresAt, time.Millisecond)
		assert.WithinDuration(t, clock.Now(), got.UpdatedAt, time.Millisecond)
		assert.WithinDuration(t, tok.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("update unknown series", func(t *testing.T) {
		store, _ := factory(t, newFakeClock())
		err := store.UpdateTokenBySeries(ctx, "missing", "h", nil)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, store.CreateToken(ctx, tok))

		require.NoError(t, store.DeleteTokenBySeries(ctx, tok.Identifier))
		require.NoError(t, store.DeleteTokenBySeries(ctx, tok.Identifier))

		_, err := store.GetTokenBySeries(ctx, tok.Identifier)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)
	})

	t.Run("list by tokenable", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		first := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, store.CreateToken(ctx, first))
		clock.Advance(time.Second)
		second := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, store.CreateToken(ctx, second))
		clock.Advance(time.Second)
		short := newAccessToken(t, clock, "1", time.Minute)
		require.NoError(t, store.CreateToken(ctx, short))
		other := newAccessToken(t, clock, "2", time.Hour)
		require.NoError(t, store.CreateToken(ctx, other))

		clock.Advance(2 * time.Minute)

		list, err := store.ListByTokenable(ctx, "1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.Identifier, list[0].Identifier)
		assert.Equal(t, first.Identifier, list[1].Identifier)

		require.NoError(t, store.DeleteByTokenable(ctx, "1"))
		list, err = store.ListByTokenable(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = store.GetTokenBySeries(ctx, other.Identifier)
		assert.NoError(t, err)
	})

	t.Run("touch last used", func(t *testing.T) {
		clock := newFakeClock()
		store, _ := factory(t, clock)

		tok := newAccessToken(t, clock, "1", time.Hour)
		require.NoError(t, store.CreateToken(ctx, tok))

		at := clock.Now().Add(time.Minute)
		require.NoError(t, store.TouchLastUsed(ctx, tok.Identifier, at))

		got, err := store.GetTokenBySeries(ctx, tok.Identifier)
		require.NoError(t, err)
		require.NotNil(t, got.LastUsedAt)
		assert.WithinDuration(t, at, *got.LastUsedAt, time.Millisecond)

		assert.ErrorIs(t, store.TouchLastUsed(ctx, "missing", at), tokenstore.ErrTokenNotFound)
	})

	t.Run("nil token", func(t *testing.T) {
		store, _ := factory(t, newFakeClock())
		assert.ErrorIs(t, store.CreateToken(ctx, nil), tokenstore.ErrNilToken)
	})
}
