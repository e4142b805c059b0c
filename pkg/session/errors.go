package session

import "errors"

var (
	// ErrSessionNotFound indicates no live session exists for the id.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrInvalidSession indicates a nil session or one without an id.
	ErrInvalidSession = errors.New("session.invalid")

	// ErrTokenGeneration indicates session id generation failed.
	ErrTokenGeneration = errors.New("session.token_generation_failed")
)
