package guard

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

// AccessTokenGuard authenticates requests carrying
// "Authorization: Bearer <token>".
type AccessTokenGuard[U any] struct {
	state[U]

	provider UserProvider[U]
	tokens   AccessTokenProvider
	config   Config
	r        *http.Request
	current  *opaque.Token
}

// NewAccessTokenGuard creates an access token guard for one request.
func NewAccessTokenGuard[U any](name string, provider UserProvider[U], tokens AccessTokenProvider, r *http.Request, opts ...Option) *AccessTokenGuard[U] {
	o := applyOptions(opts)
	return &AccessTokenGuard[U]{
		state:    newState(name, DriverAccessToken, provider.UserID, o),
		provider: provider,
		tokens:   tokens,
		config:   o.config,
		r:        r,
	}
}

// CurrentToken returns the token the request authenticated with.
func (g *AccessTokenGuard[U]) CurrentToken() (*opaque.Token, bool) {
	return g.current, g.current != nil
}

// Authenticate verifies the bearer token and loads its owner. Only the
// first call does any work.
func (g *AccessTokenGuard[U]) Authenticate(ctx context.Context) (U, error) {
	return g.run(ctx, noSessionID, g.attempt)
}

func (g *AccessTokenGuard[U]) Check(ctx context.Context) (bool, error) {
	return check(ctx, g.Authenticate)
}

func (g *AccessTokenGuard[U]) attempt(ctx context.Context) (U, bool, error) {
	var zero U

	value, ok := BearerToken(g.r)
	if !ok {
		return zero, false, g.unauthorized()
	}

	tok, err := g.tokens.Verify(ctx, value)
	if err != nil {
		return zero, false, g.fail(err)
	}

	user, err := g.provider.FindByID(ctx, tok.TokenableID)
	if err != nil {
		return zero, false, g.fail(err)
	}

	g.current = tok
	return user, false, nil
}

// Authorize checks that the current token grants ability.
func (g *AccessTokenGuard[U]) Authorize(ability string) error {
	if g.current == nil {
		return g.unauthorized()
	}
	return g.current.Authorize(ability)
}

// CreateToken issues a new access token for user. The plaintext value is
// only available on the returned token.
func (g *AccessTokenGuard[U]) CreateToken(ctx context.Context, user U, opts tokenstore.CreateOptions) (*opaque.Token, error) {
	if opts.ExpiresIn == 0 && g.config.AccessTokenTTL > 0 {
		opts.ExpiresIn = g.config.AccessTokenTTL
	}
	return g.tokens.Create(ctx, g.provider.UserID(user), opts)
}

// Invalidate deletes the token sent with the request. It reports whether a
// token was deleted.
func (g *AccessTokenGuard[U]) Invalidate(ctx context.Context) (bool, error) {
	value, ok := BearerToken(g.r)
	if !ok {
		return false, nil
	}

	userID := ""
	if g.authenticated {
		userID = g.provider.UserID(g.user)
	}

	deleted, err := g.tokens.Invalidate(ctx, value)
	if err != nil {
		return false, err
	}

	g.current = nil
	g.reset()
	g.emit(ctx, Event{Name: EventLoggedOut, UserID: userID})
	return deleted, nil
}

func (g *AccessTokenGuard[U]) fail(err error) error {
	if isAuthFailure(err) {
		return g.unauthorized()
	}
	return fmt.Errorf("access token guard %q: %w", g.name, err)
}

func (g *AccessTokenGuard[U]) unauthorized() error {
	return &UnauthorizedError{Guard: g.name, Driver: DriverAccessToken, Message: "Unauthorized access"}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
