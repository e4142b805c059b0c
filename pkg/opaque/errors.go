package opaque

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidToken      = errors.New("opaque.invalid_token")
	ErrInvalidIdentifier = errors.New("opaque.invalid_identifier")
	ErrExpiryRequired    = errors.New("opaque.expiry_required")
	ErrSecretGeneration  = errors.New("opaque.secret_generation_failed")

	// ErrForbidden is matched by *ForbiddenError.
	ErrForbidden = errors.New("opaque.forbidden")
)

// ForbiddenError is returned by Token.Authorize when the token lacks an ability.
type ForbiddenError struct {
	Ability string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("token is not allowed to %q", e.Ability)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
