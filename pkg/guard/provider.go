package guard

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

// UserProvider loads principals of type U.
type UserProvider[U any] interface {
	UserID(user U) string
	// FindByID returns ErrUserNotFound for unknown ids.
	FindByID(ctx context.Context, id string) (U, error)
}

// CredentialsProvider also checks a uid and password pair.
type CredentialsProvider[U any] interface {
	UserProvider[U]
	// VerifyCredentials returns ErrInvalidCredentials on any mismatch.
	VerifyCredentials(ctx context.Context, uid, password string) (U, error)
}

// SessionStore is the request session a SessionGuard reads and writes.
type SessionStore interface {
	ID() string
	Get(key string) (any, bool)
	Put(key string, value any)
	Forget(key string)
	Regenerate(ctx context.Context) error
}

// RememberTokenProvider issues and checks remember-me tokens.
// *tokenstore.RememberTokens implements it.
type RememberTokenProvider interface {
	Create(ctx context.Context, tokenableID string, expiresIn time.Duration) (*opaque.Token, error)
	Verify(ctx context.Context, decoded opaque.Decoded) (*opaque.Token, error)
	Recycle(ctx context.Context, tok *opaque.Token, expiresIn time.Duration) error
	Delete(ctx context.Context, series string) error
}

// AccessTokenProvider issues and checks access tokens.
// *tokenstore.AccessTokens implements it.
type AccessTokenProvider interface {
	Create(ctx context.Context, tokenableID string, opts tokenstore.CreateOptions) (*opaque.Token, error)
	Verify(ctx context.Context, value string) (*opaque.Token, error)
	Invalidate(ctx context.Context, value string) (bool, error)
}

// isAuthFailure reports whether err means bad credentials rather than a
// broken dependency.
func isAuthFailure(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, tokenstore.ErrTokenNotFound)
}
