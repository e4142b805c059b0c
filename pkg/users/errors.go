package users

import "errors"

var (
	ErrUserNotFound       = errors.New("users.not_found")
	ErrEmailTaken         = errors.New("users.email_taken")
	ErrInvalidCredentials = errors.New("users.invalid_credentials")
	ErrInvalidEmail       = errors.New("users.invalid_email")
	ErrWeakPassword       = errors.New("users.weak_password")
)
