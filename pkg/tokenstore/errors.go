package tokenstore

import "errors"

var (
	// ErrTokenNotFound covers absent, expired, tampered and foreign-bucket tokens.
	ErrTokenNotFound = errors.New("tokenstore.token_not_found")

	// ErrDuplicateSeries is returned when a token with the same identifier exists.
	ErrDuplicateSeries = errors.New("tokenstore.duplicate_series")

	// ErrNilToken is returned when a nil token is passed to CreateToken.
	ErrNilToken = errors.New("tokenstore.nil_token")

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("tokenstore.unknown_driver")

	// ErrMissingBackend is returned by Open when the driver's client is nil.
	ErrMissingBackend = errors.New("tokenstore.missing_backend")
)
