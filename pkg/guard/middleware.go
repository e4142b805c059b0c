package guard

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/guardkit/pkg/logger"
)

type authenticatorContextKey struct{}

// WithAuthenticator stores a in ctx.
func WithAuthenticator[U any](ctx context.Context, a *Authenticator[U]) context.Context {
	return context.WithValue(ctx, authenticatorContextKey{}, a)
}

// FromContext returns the authenticator installed by Middleware or Silent.
func FromContext[U any](ctx context.Context) (*Authenticator[U], bool) {
	a, ok := ctx.Value(authenticatorContextKey{}).(*Authenticator[U])
	return a, ok && a != nil
}

// UserFromContext returns the authenticated user for the request.
func UserFromContext[U any](ctx context.Context) (U, bool) {
	a, ok := FromContext[U](ctx)
	if !ok {
		var zero U
		return zero, false
	}
	return a.User()
}

// Middleware rejects requests that none of the named guards (default guard
// if none) can authenticate. Failures are rendered by onError; a nil onError
// uses ErrorHandler.
func Middleware[U any](m *Manager[U], onError ErrorHandlerFunc, names ...string) func(http.Handler) http.Handler {
	if onError == nil {
		onError = ErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := m.Authenticator(w, r)
			ctx := WithAuthenticator(r.Context(), a)
			r = r.WithContext(ctx)

			if _, err := a.AuthenticateUsing(ctx, names...); err != nil {
				if !errors.Is(err, ErrUnauthorized) {
					m.log.ErrorContext(ctx, "authentication failed", logger.Component("guard"), logger.Error(err))
				}
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Silent installs an authenticator and tries the named guards without ever
// rejecting the request.
func Silent[U any](m *Manager[U], names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := m.Authenticator(w, r)
			ctx := WithAuthenticator(r.Context(), a)

			if _, err := a.AuthenticateUsing(ctx, names...); err != nil && !errors.Is(err, ErrUnauthorized) {
				m.log.WarnContext(ctx, "silent authentication failed", logger.Component("guard"), logger.Error(err))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
