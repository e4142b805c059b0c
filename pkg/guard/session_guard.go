package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/guardkit/pkg/cookie"
	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// CookieJar reads and writes encrypted cookies. *cookie.Manager implements it.
type CookieJar interface {
	GetEncrypted(r *http.Request, name string) (string, error)
	SetEncrypted(w http.ResponseWriter, name, value string, opts ...cookie.Option) error
	Delete(w http.ResponseWriter, name string, opts ...cookie.Option)
}

const sessionFailureMessage = "Invalid or expired user session"

// SessionGuard authenticates browser requests from the session, falling
// back to a remember-me cookie. It is request scoped and not safe for
// concurrent use.
type SessionGuard[U any] struct {
	state[U]

	provider UserProvider[U]
	session  SessionStore
	remember RememberTokenProvider
	jar      CookieJar
	config   Config
	w        http.ResponseWriter
	r        *http.Request
}

// NewSessionGuard creates a session guard for one request. Use WithSession
// to pass the request session, and WithRememberTokens plus WithCookieJar to
// enable remember-me.
func NewSessionGuard[U any](name string, provider UserProvider[U], w http.ResponseWriter, r *http.Request, opts ...Option) *SessionGuard[U] {
	o := applyOptions(opts)
	return &SessionGuard[U]{
		state:    newState(name, DriverSession, provider.UserID, o),
		provider: provider,
		session:  o.session,
		remember: o.remember,
		jar:      o.jar,
		config:   o.config,
		w:        w,
		r:        r,
	}
}

// SessionKey is the session key holding the user id.
func (g *SessionGuard[U]) SessionKey() string {
	return "auth_" + g.name
}

// RememberMeCookie is the name of the remember-me cookie.
func (g *SessionGuard[U]) RememberMeCookie() string {
	return "remember_" + g.name
}

// ViaRemember reports whether the user was restored from a remember-me token.
func (g *SessionGuard[U]) ViaRemember() bool {
	return g.viaRemember
}

// Authenticate resolves the user from the session or the remember-me
// cookie. Only the first call does any work; later calls replay its result.
func (g *SessionGuard[U]) Authenticate(ctx context.Context) (U, error) {
	return g.run(ctx, g.sessionID, g.attempt)
}

// Check is Authenticate that reports an authentication failure as false.
func (g *SessionGuard[U]) Check(ctx context.Context) (bool, error) {
	return check(ctx, g.Authenticate)
}

func (g *SessionGuard[U]) attempt(ctx context.Context) (U, bool, error) {
	var zero U
	if g.session == nil {
		return zero, false, ErrNoSession
	}

	if raw, ok := g.session.Get(g.SessionKey()); ok {
		user, err := g.provider.FindByID(ctx, fmt.Sprint(raw))
		if err != nil {
			return zero, false, g.fail(err)
		}
		return user, false, nil
	}

	user, err := g.attemptRemember(ctx)
	if err != nil {
		return zero, false, err
	}
	return user, true, nil
}

func (g *SessionGuard[U]) attemptRemember(ctx context.Context) (U, error) {
	var zero U
	if g.remember == nil || g.jar == nil {
		return zero, g.unauthorized()
	}

	raw, err := g.jar.GetEncrypted(g.r, g.RememberMeCookie())
	if err != nil || raw == "" {
		return zero, g.unauthorized()
	}

	decoded, ok := opaque.Decode(opaque.RememberMe, raw)
	if !ok {
		return zero, g.unauthorized()
	}

	tok, err := g.remember.Verify(ctx, decoded)
	if err != nil {
		return zero, g.fail(err)
	}

	user, err := g.provider.FindByID(ctx, tok.TokenableID)
	if err != nil {
		return zero, g.fail(err)
	}

	value := raw
	if !tok.IsFresh(g.now(), g.config.RecycleWindow) {
		if err := g.remember.Recycle(ctx, tok, g.config.RememberMeAge); err != nil {
			return zero, fmt.Errorf("recycle remember-me token: %w", err)
		}
		value = tok.Value.Release()
	}
	if err := g.jar.SetEncrypted(g.w, g.RememberMeCookie(), value, cookie.WithLifetime(g.config.RememberMeAge)); err != nil {
		return zero, fmt.Errorf("set remember-me cookie: %w", err)
	}

	if err := g.startSession(ctx, g.provider.UserID(user)); err != nil {
		return zero, err
	}
	return user, nil
}

// Login stores user in the session and regenerates the session id. With
// remember set, it also issues a remember-me token and cookie.
func (g *SessionGuard[U]) Login(ctx context.Context, user U, remember bool) error {
	if g.session == nil {
		return ErrNoSession
	}
	if remember && (g.remember == nil || g.jar == nil) {
		return ErrRememberMeDisabled
	}

	id := g.provider.UserID(user)

	var tok *opaque.Token
	if remember {
		var err error
		if tok, err = g.remember.Create(ctx, id, g.config.RememberMeAge); err != nil {
			return fmt.Errorf("create remember-me token: %w", err)
		}
	}

	if err := g.startSession(ctx, id); err != nil {
		return err
	}

	switch {
	case tok != nil:
		if err := g.jar.SetEncrypted(g.w, g.RememberMeCookie(), tok.Value.Release(), cookie.WithLifetime(g.config.RememberMeAge)); err != nil {
			return fmt.Errorf("set remember-me cookie: %w", err)
		}
	case g.jar != nil && g.hasRememberCookie():
		g.jar.Delete(g.w, g.RememberMeCookie())
	}

	g.succeed(user, false)
	g.emit(ctx, Event{Name: EventLogin, UserID: id, SessionID: g.sessionID()})
	return nil
}

// Logout forgets the user, clears the remember-me cookie and deletes its
// token. A malformed cookie or a failed delete does not fail the logout.
func (g *SessionGuard[U]) Logout(ctx context.Context) error {
	if g.session == nil {
		return ErrNoSession
	}

	userID := ""
	if g.authenticated {
		userID = g.provider.UserID(g.user)
	}

	g.session.Forget(g.SessionKey())

	if g.jar != nil && g.hasRememberCookie() {
		raw, err := g.jar.GetEncrypted(g.r, g.RememberMeCookie())
		g.jar.Delete(g.w, g.RememberMeCookie())

		if err == nil && g.remember != nil {
			if decoded, ok := opaque.Decode(opaque.RememberMe, raw); ok {
				if err := g.remember.Delete(ctx, decoded.Identifier); err != nil {
					g.log.WarnContext(ctx, "failed to delete remember-me token",
						logger.Guard(g.name), logger.TokenID(decoded.Identifier), logger.Error(err))
				}
			}
		}
	}

	g.reset()
	g.emit(ctx, Event{Name: EventLoggedOut, UserID: userID, SessionID: g.sessionID()})
	return nil
}

func (g *SessionGuard[U]) startSession(ctx context.Context, userID string) error {
	g.session.Put(g.SessionKey(), userID)
	if err := g.session.Regenerate(ctx); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	return nil
}

func (g *SessionGuard[U]) hasRememberCookie() bool {
	_, err := g.r.Cookie(g.RememberMeCookie())
	return err == nil
}

func (g *SessionGuard[U]) sessionID() string {
	if g.session == nil {
		return ""
	}
	return g.session.ID()
}

// fail maps credential errors to an *UnauthorizedError and wraps the rest.
func (g *SessionGuard[U]) fail(err error) error {
	if isAuthFailure(err) {
		return g.unauthorized()
	}
	return fmt.Errorf("session guard %q: %w", g.name, err)
}

func (g *SessionGuard[U]) unauthorized() error {
	return &UnauthorizedError{
		Guard:      g.name,
		Driver:     DriverSession,
		Message:    sessionFailureMessage,
		RedirectTo: g.config.LoginURL,
	}
}

func check[U any](ctx context.Context, authenticate func(context.Context) (U, error)) (bool, error) {
	_, err := authenticate(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrUnauthorized):
		return false, nil
	default:
		return false, err
	}
}
