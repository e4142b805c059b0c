package guard

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// BasicAuthGuard authenticates requests with HTTP basic credentials.
type BasicAuthGuard[U any] struct {
	state[U]

	provider CredentialsProvider[U]
	config   Config
	r        *http.Request
}

// NewBasicAuthGuard creates a basic auth guard for one request.
func NewBasicAuthGuard[U any](name string, provider CredentialsProvider[U], r *http.Request, opts ...Option) *BasicAuthGuard[U] {
	o := applyOptions(opts)
	return &BasicAuthGuard[U]{
		state:    newState(name, DriverBasicAuth, provider.UserID, o),
		provider: provider,
		config:   o.config,
		r:        r,
	}
}

func (g *BasicAuthGuard[U]) Authenticate(ctx context.Context) (U, error) {
	return g.run(ctx, noSessionID, g.attempt)
}

func (g *BasicAuthGuard[U]) Check(ctx context.Context) (bool, error) {
	return check(ctx, g.Authenticate)
}

func (g *BasicAuthGuard[U]) attempt(ctx context.Context) (U, bool, error) {
	var zero U

	uid, password, ok := basicCredentials(g.r)
	if !ok {
		return zero, false, g.unauthorized()
	}

	user, err := g.provider.VerifyCredentials(ctx, uid, password)
	if err != nil {
		if isAuthFailure(err) {
			return zero, false, g.unauthorized()
		}
		return zero, false, fmt.Errorf("basic auth guard %q: %w", g.name, err)
	}
	return user, false, nil
}

func (g *BasicAuthGuard[U]) unauthorized() error {
	return &UnauthorizedError{
		Guard:   g.name,
		Driver:  DriverBasicAuth,
		Message: "Invalid basic auth credentials",
		Realm:   g.config.BasicRealm,
	}
}

// basicCredentials parses "Authorization: Basic base64(uid:password)". The
// password may contain colons.
func basicCredentials(r *http.Request) (string, string, bool) {
	scheme, encoded, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}

	uid, password, ok := strings.Cut(string(raw), ":")
	if !ok || uid == "" || password == "" {
		return "", "", false
	}
	return uid, password, true
}
