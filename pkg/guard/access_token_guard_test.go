package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/opaque"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

func newAccessTokens(clock *fakeClock) *tokenstore.AccessTokens {
	store := tokenstore.NewMemory(tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, tokenstore.WithClock(clock.Now))
	return tokenstore.NewAccessTokens(store, tokenstore.WithServiceClock(clock.Now))
}

func bearerRequest(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.Header.Set("Authorization", value)
	}
	return req
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer oat_abc.def", "oat_abc.def", true},
		{"bearer oat_abc.def", "oat_abc.def", true},
		{"BEARER   oat_abc.def  ", "oat_abc.def", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer    ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := guard.BearerToken(bearerRequest(tt.header))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessTokenGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	tokens := newAccessTokens(clock)
	users := newUserStore(&user{ID: "1"})
	provider := guard.UserProvider[*user](users)

	issuer := guard.NewAccessTokenGuard("api", provider, tokens, bearerRequest(""))
	tok, err := issuer.CreateToken(ctx, users.users["1"], tokenstore.CreateOptions{Name: "cli", Abilities: []string{"read"}})
	require.NoError(t, err)
	value := tok.Value.Release()

	t.Run("valid token", func(t *testing.T) {
		events := &eventLog{}
		g := guard.NewAccessTokenGuard("api", provider, tokens, bearerRequest("Bearer "+value), guard.WithEmitter(events))

		u, err := g.Authenticate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", u.ID)

		current, ok := g.CurrentToken()
		require.True(t, ok)
		assert.Equal(t, tok.Identifier, current.Identifier)
		assert.NoError(t, g.Authorize("read"))
		assert.ErrorIs(t, g.Authorize("write"), opaque.ErrForbidden)
		assert.Equal(t, []string{guard.EventAttempted, guard.EventSucceeded}, events.names())
	})

	t.Run("idempotent after header change", func(t *testing.T) {
		req := bearerRequest("")
		g := guard.NewAccessTokenGuard("api", provider, tokens, req)

		_, first := g.Authenticate(ctx)
		ue, ok := guard.AsUnauthorized(first)
		require.True(t, ok)
		assert.Equal(t, guard.DriverAccessToken, ue.Driver)

		req.Header.Set("Authorization", "Bearer "+value)
		_, second := g.Authenticate(ctx)
		assert.Same(t, first, second)

		_, ok = g.CurrentToken()
		assert.False(t, ok)
		assert.ErrorIs(t, g.Authorize("read"), guard.ErrUnauthorized)
	})

	t.Run("tampered secret", func(t *testing.T) {
		g := guard.NewAccessTokenGuard("api", provider, tokens,
			bearerRequest("Bearer "+opaque.Encode(opaque.AccessToken, tok.Identifier, "guess")))
		ok, err := g.Check(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("owner deleted", func(t *testing.T) {
		orphan, err := tokens.Create(ctx, "404", tokenstore.CreateOptions{})
		require.NoError(t, err)

		g := guard.NewAccessTokenGuard("api", provider, tokens, bearerRequest("Bearer "+orphan.Value.Release()))
		_, err = g.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrUnauthorized)
	})

	t.Run("invalidate", func(t *testing.T) {
		disposable, err := tokens.Create(ctx, "1", tokenstore.CreateOptions{})
		require.NoError(t, err)
		header := "Bearer " + disposable.Value.Release()

		g := guard.NewAccessTokenGuard("api", provider, tokens, bearerRequest(header))
		_, err = g.Authenticate(ctx)
		require.NoError(t, err)

		deleted, err := g.Invalidate(ctx)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.True(t, g.IsLoggedOut())

		again := guard.NewAccessTokenGuard("api", provider, tokens, bearerRequest(header))
		_, err = again.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrUnauthorized)

		none := guard.NewAccessTokenGuard("api", provider, tokens, bearerRequest(""))
		deleted, err = none.Invalidate(ctx)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestAccessTokenGuard_DefaultTTL(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	users := newUserStore(&user{ID: "1"})

	cfg := guard.DefaultConfig()
	cfg.AccessTokenTTL = time.Hour
	g := guard.NewAccessTokenGuard("api", guard.UserProvider[*user](users), newAccessTokens(clock), bearerRequest(""), guard.WithConfig(cfg))

	tok, err := g.CreateToken(context.Background(), users.users["1"], tokenstore.CreateOptions{})
	require.NoError(t, err)
	require.NotNil(t, tok.ExpiresAt)
	assert.Equal(t, clock.Now().Add(cfg.AccessTokenTTL), *tok.ExpiresAt)
}
