package guard

import (
	"errors"
	"fmt"
)

// Driver names reported by guards and carried by UnauthorizedError.
const (
	DriverSession     = "session"
	DriverAccessToken = "access_token"
	DriverBasicAuth   = "basic_auth"
)

var (
	// ErrUnauthorized matches every *UnauthorizedError.
	ErrUnauthorized = errors.New("guard.unauthorized")

	// ErrRememberMeDisabled is returned by SessionGuard.Login when remember
	// is requested but no remember-me token provider is configured.
	ErrRememberMeDisabled = errors.New("guard.remember_me_disabled")

	// ErrNoSession is returned when a session guard runs without a session
	// store, usually because the session middleware is not installed.
	ErrNoSession = errors.New("guard.no_session")

	// ErrUserNotFound is returned by user providers for unknown ids.
	ErrUserNotFound = errors.New("guard.user_not_found")

	// ErrInvalidCredentials is returned by credential providers on a bad
	// uid or password.
	ErrInvalidCredentials = errors.New("guard.invalid_credentials")

	ErrUnknownGuard = errors.New("guard.unknown_guard")
)

// UnauthorizedError is the single error a guard reports for a failed
// authentication. It does not say which check failed.
type UnauthorizedError struct {
	Guard      string
	Driver     string
	Message    string
	RedirectTo string // session driver only
	Realm      string // basic_auth driver only
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s guard %q: %s", e.Driver, e.Guard, e.Message)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// AsUnauthorized extracts the *UnauthorizedError from err.
func AsUnauthorized(err error) (*UnauthorizedError, bool) {
	var ue *UnauthorizedError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
