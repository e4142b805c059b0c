package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Guard is the behaviour shared by every driver.
type Guard[U any] interface {
	Name() string
	Driver() string
	Authenticate(ctx context.Context) (U, error)
	Check(ctx context.Context) (bool, error)
	User() (U, bool)
	GetUserOrFail() (U, error)
	IsAuthenticated() bool
}

var (
	_ Guard[string] = (*SessionGuard[string])(nil)
	_ Guard[string] = (*AccessTokenGuard[string])(nil)
	_ Guard[string] = (*BasicAuthGuard[string])(nil)
)

// Factory builds a guard for one request.
type Factory[U any] func(w http.ResponseWriter, r *http.Request) Guard[U]

// Manager holds the configured guards by name.
type Manager[U any] struct {
	defaultGuard string
	factories    map[string]Factory[U]
	log          *slog.Logger
}

// NewManager creates a Manager. defaultGuard must be one of the factories.
func NewManager[U any](defaultGuard string, factories map[string]Factory[U], opts ...Option) (*Manager[U], error) {
	if _, ok := factories[defaultGuard]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownGuard, defaultGuard)
	}
	o := applyOptions(opts)
	return &Manager[U]{
		defaultGuard: defaultGuard,
		factories:    factories,
		log:          o.log,
	}, nil
}

// DefaultGuard returns the name of the default guard.
func (m *Manager[U]) DefaultGuard() string {
	return m.defaultGuard
}

// Authenticator returns a request-scoped authenticator.
func (m *Manager[U]) Authenticator(w http.ResponseWriter, r *http.Request) *Authenticator[U] {
	return &Authenticator[U]{
		manager: m,
		w:       w,
		r:       r,
		guards:  make(map[string]Guard[U], len(m.factories)),
	}
}

// Authenticator resolves guards for one request and remembers which one
// authenticated it.
type Authenticator[U any] struct {
	manager *Manager[U]
	w       http.ResponseWriter
	r       *http.Request
	guards  map[string]Guard[U]
	via     string
}

// Use returns the named guard, creating it on first use. An empty name
// selects the default guard.
func (a *Authenticator[U]) Use(name string) (Guard[U], error) {
	if name == "" {
		name = a.manager.defaultGuard
	}
	if g, ok := a.guards[name]; ok {
		return g, nil
	}

	factory, ok := a.manager.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGuard, name)
	}
	g := factory(a.w, a.r)
	a.guards[name] = g
	return g, nil
}

// Authenticate authenticates with the default guard.
func (a *Authenticator[U]) Authenticate(ctx context.Context) (U, error) {
	return a.AuthenticateUsing(ctx)
}

// AuthenticateUsing tries the named guards in order and stops at the first
// success. If all of them fail, the last guard's error is returned. Errors
// other than ErrUnauthorized stop the loop.
func (a *Authenticator[U]) AuthenticateUsing(ctx context.Context, names ...string) (U, error) {
	if len(names) == 0 {
		names = []string{a.manager.defaultGuard}
	}

	var zero U
	var lastErr error
	for _, name := range names {
		if name == "" {
			name = a.manager.defaultGuard
		}
		g, err := a.Use(name)
		if err != nil {
			return zero, err
		}

		user, err := g.Authenticate(ctx)
		if err == nil {
			a.via = name
			return user, nil
		}
		if !errors.Is(err, ErrUnauthorized) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// Check is AuthenticateUsing that reports an authentication failure as false.
func (a *Authenticator[U]) Check(ctx context.Context, names ...string) (bool, error) {
	return check(ctx, func(ctx context.Context) (U, error) {
		return a.AuthenticateUsing(ctx, names...)
	})
}

// AuthenticatedVia returns the name of the guard, as registered with the
// Manager, that authenticated the request.
func (a *Authenticator[U]) AuthenticatedVia() (string, bool) {
	return a.via, a.via != ""
}

// User returns the authenticated user, if any.
func (a *Authenticator[U]) User() (U, bool) {
	var zero U
	if a.via == "" {
		return zero, false
	}
	return a.guards[a.via].User()
}

// GetUserOrFail returns the authenticated user or the default guard's error.
func (a *Authenticator[U]) GetUserOrFail() (U, error) {
	if user, ok := a.User(); ok {
		return user, nil
	}
	g, err := a.Use("")
	if err != nil {
		var zero U
		return zero, err
	}
	return g.GetUserOrFail()
}
