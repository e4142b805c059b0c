package session

import "context"

// Store persists sessions by id.
type Store interface {
	// Get returns ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)

	// Save creates or replaces the session.
	Save(ctx context.Context, s *Session) error

	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
}
