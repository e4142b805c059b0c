package guard_test

import (
	"context"
	"errors"
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

func TestSessionGuard_ViaSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sess := newFakeSession()
	sess.data["auth_web"] = "1"

	g, rec := e.request(sess, nil)
	u, err := g.Authenticate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.True(t, g.IsAuthenticated())
	assert.False(t, g.ViaRemember())
	assert.Equal(t, 0, sess.regenerated)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, []string{guard.EventAttempted, guard.EventSucceeded}, e.events.names())

	got, ok := g.User()
	require.True(t, ok)
	assert.Same(t, u, got)
}

func TestSessionGuard_AuthenticateIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sess := newFakeSession()
	g, _ := e.request(sess, nil)

	_, first := g.Authenticate(ctx)
	require.ErrorIs(t, first, guard.ErrUnauthorized)

	// A valid session appearing later must not change the outcome.
	sess.data["auth_web"] = "1"
	calls := e.users.calls

	_, second := g.Authenticate(ctx)
	assert.Same(t, first, second)
	assert.Equal(t, calls, e.users.calls)
	assert.True(t, g.AuthenticationAttempted())

	ok, err := g.Check(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.GetUserOrFail()
	assert.Same(t, first, err)
	assert.Equal(t, []string{guard.EventAttempted, guard.EventFailed}, e.events.names())
}

func TestSessionGuard_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown user in session", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sess := newFakeSession()
		sess.data["auth_web"] = "404"

		g, _ := e.request(sess, nil)
		_, err := g.Authenticate(ctx)

		ue, ok := guard.AsUnauthorized(err)
		require.True(t, ok)
		assert.Equal(t, guard.DriverSession, ue.Driver)
		assert.Equal(t, "web", ue.Guard)
		assert.Equal(t, "/login", ue.RedirectTo)
	})

	t.Run("provider failure is not unauthorized", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		boom := errors.New("db down")
		e.users.err = boom

		sess := newFakeSession()
		sess.data["auth_web"] = "1"

		g, _ := e.request(sess, nil)
		_, err := g.Authenticate(ctx)
		require.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, guard.ErrUnauthorized)

		_, err = g.Check(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no session store", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		g, _ := e.request(nil, nil)

		_, err := g.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrNoSession)
		assert.ErrorIs(t, g.Login(ctx, e.users.users["1"], false), guard.ErrNoSession)
		assert.ErrorIs(t, g.Logout(ctx), guard.ErrNoSession)
	})

	t.Run("tampered remember cookie", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		tok, err := e.remember.Create(ctx, "1", time.Hour)
		require.NoError(t, err)

		forged := httptest.NewRecorder()
		require.NoError(t, e.jar.SetEncrypted(forged, "remember_web", opaque.Encode(opaque.RememberMe, tok.Identifier, "guess")))

		g, _ := e.request(newFakeSession(), forged.Result().Cookies())
		_, err = g.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrUnauthorized)

		stored, err := e.tokens.GetTokenBySeries(ctx, tok.Identifier)
		require.NoError(t, err)
		assert.Equal(t, tok.Hash, stored.Hash)
	})

	t.Run("plain cookie is ignored", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		g, _ := e.request(newFakeSession(), []*http.Cookie{{Name: "remember_web", Value: "garbage"}})
		_, err := g.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrUnauthorized)
	})
}

func TestSessionGuard_RememberMeRecycling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	alice := e.users.users["1"]

	login, rec := e.request(newFakeSession(), nil)
	require.NoError(t, login.Login(ctx, alice, true))
	cookies := rec.Result().Cookies()
	original := e.rememberValue(t, rec)

	decoded, ok := opaque.Decode(opaque.RememberMe, original)
	require.True(t, ok)
	issued, err := e.tokens.GetTokenBySeries(ctx, decoded.Identifier)
	require.NoError(t, err)

	t.Run("fresh token is reused", func(t *testing.T) {
		e.clock.Advance(30 * time.Second)

		sess := newFakeSession()
		g, rec := e.request(sess, cookies)
		u, err := g.Authenticate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", u.ID)
		assert.True(t, g.ViaRemember())
		assert.Equal(t, "1", sess.data["auth_web"])
		assert.Equal(t, 1, sess.regenerated)

		assert.Equal(t, original, e.rememberValue(t, rec))

		stored, err := e.tokens.GetTokenBySeries(ctx, decoded.Identifier)
		require.NoError(t, err)
		assert.Equal(t, issued.Hash, stored.Hash)
	})

	t.Run("stale token is rotated", func(t *testing.T) {
		e.clock.Advance(30 * time.Second)

		g, rec := e.request(newFakeSession(), cookies)
		_, err := g.Authenticate(ctx)
		require.NoError(t, err)

		rotated := e.rememberValue(t, rec)
		assert.NotEqual(t, original, rotated)

		next, ok := opaque.Decode(opaque.RememberMe, rotated)
		require.True(t, ok)
		assert.Equal(t, decoded.Identifier, next.Identifier)

		stored, err := e.tokens.GetTokenBySeries(ctx, decoded.Identifier)
		require.NoError(t, err)
		assert.NotEqual(t, issued.Hash, stored.Hash)
		require.NotNil(t, stored.ExpiresAt)
		assert.Equal(t, e.clock.Now().Add(20*time.Minute), *stored.ExpiresAt)

		// The old cookie is no longer accepted.
		old, _ := e.request(newFakeSession(), cookies)
		_, err = old.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrUnauthorized)

		cookies = rec.Result().Cookies()
	})

	t.Run("expired token", func(t *testing.T) {
		e.clock.Advance(21 * time.Minute)

		g, _ := e.request(newFakeSession(), cookies)
		_, err := g.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrUnauthorized)
	})
}

func TestSessionGuard_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("remember without token provider", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sess := newFakeSession()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		g := guard.NewSessionGuard("web", guard.UserProvider[*user](e.users), rec, req,
			guard.WithSession(sess), guard.WithCookieJar(e.jar), guard.WithEmitter(e.events))

		err := g.Login(ctx, e.users.users["1"], true)
		require.ErrorIs(t, err, guard.ErrRememberMeDisabled)

		assert.Zero(t, sess.puts)
		assert.Zero(t, sess.regenerated)
		assert.Empty(t, rec.Result().Cookies())
		assert.Empty(t, e.events.names())
		assert.False(t, g.IsAuthenticated())
	})

	t.Run("without remember clears an existing cookie", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sess := newFakeSession()

		g, rec := e.request(sess, []*http.Cookie{{Name: "remember_web", Value: "old"}})
		require.NoError(t, g.Login(ctx, e.users.users["1"], false))

		assert.Equal(t, "1", sess.data["auth_web"])
		assert.Equal(t, 1, sess.regenerated)
		assert.True(t, g.IsAuthenticated())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "remember_web", cookies[0].Name)
		assert.Negative(t, cookies[0].MaxAge)

		u, err := g.Authenticate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", u.ID)
		assert.Equal(t, []string{guard.EventLogin}, e.events.names())
	})

	t.Run("with remember persists a token", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		g, rec := e.request(newFakeSession(), nil)
		require.NoError(t, g.Login(ctx, e.users.users["1"], true))

		decoded, ok := opaque.Decode(opaque.RememberMe, e.rememberValue(t, rec))
		require.True(t, ok)

		tok, err := e.tokens.GetTokenBySeries(ctx, decoded.Identifier)
		require.NoError(t, err)
		assert.Equal(t, "1", tok.TokenableID)
		assert.Equal(t, tokenstore.RememberMeType("web"), tok.Type)
		assert.True(t, tok.Verify(decoded.Secret.Release()))
	})
}

func TestSessionGuard_Logout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("deletes the remember token", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		login, rec := e.request(newFakeSession(), nil)
		require.NoError(t, login.Login(ctx, e.users.users["1"], true))
		decoded, ok := opaque.Decode(opaque.RememberMe, e.rememberValue(t, rec))
		require.True(t, ok)

		sess := newFakeSession()
		sess.data["auth_web"] = "1"
		g, rec := e.request(sess, rec.Result().Cookies())
		_, err := g.Authenticate(ctx)
		require.NoError(t, err)

		require.NoError(t, g.Logout(ctx))
		assert.True(t, g.IsLoggedOut())
		assert.False(t, g.IsAuthenticated())
		_, ok = sess.Get("auth_web")
		assert.False(t, ok)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Negative(t, cookies[0].MaxAge)

		_, err = e.tokens.GetTokenBySeries(ctx, decoded.Identifier)
		assert.ErrorIs(t, err, tokenstore.ErrTokenNotFound)

		_, err = g.Authenticate(ctx)
		assert.ErrorIs(t, err, guard.ErrUnauthorized)

		names := e.events.names()
		assert.Equal(t, guard.EventLoggedOut, names[len(names)-1])
		assert.Equal(t, "1", e.events.events[len(names)-1].UserID)
	})

	t.Run("malformed cookie is skipped", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sess := newFakeSession()
		sess.data["auth_web"] = "1"

		g, rec := e.request(sess, []*http.Cookie{{Name: "remember_web", Value: "garbage"}})
		require.NoError(t, g.Logout(ctx))
		require.Len(t, rec.Result().Cookies(), 1)
	})
}

// Remember-me token for user 1, 20 minute expiry, guard "web".
func TestRememberMeToken_Scenario(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	tok, err := e.remember.Create(context.Background(), "1", 20*time.Minute)
	require.NoError(t, err)

	decoded, ok := opaque.Decode(opaque.RememberMe, tok.Value.Release())
	require.True(t, ok)
	assert.True(t, tok.Verify(decoded.Secret.Release()))

	e.clock.Advance(21 * time.Minute)
	assert.True(t, tok.IsExpiredAt(e.clock.Now()))
}
