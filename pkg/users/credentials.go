package users

import (
	"context"
	"errors"
)

// Finder looks up a principal by uid and exposes its password hash.
type Finder[U any] interface {
	FindByUID(ctx context.Context, uid string) (U, error)
	PasswordHash(user U) []byte
}

// VerifyCredentials checks uid and password against finder. Unknown users
// and wrong passwords both return ErrInvalidCredentials after a hash
// comparison. Lookup failures other than ErrUserNotFound are returned as is.
func VerifyCredentials[U any](ctx context.Context, finder Finder[U], hasher Hasher, uid, password string) (U, error) {
	var zero U

	user, err := finder.FindByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return zero, err
		}
		_ = hasher.Compare(hasher.DummyHash(), password)
		return zero, ErrInvalidCredentials
	}

	if err := hasher.Compare(finder.PasswordHash(user), password); err != nil {
		return zero, ErrInvalidCredentials
	}
	return user, nil
}
