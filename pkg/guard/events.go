package guard

import (
	"context"
	"time"
)

// Event names.
const (
	EventAttempted = "auth.attempted"
	EventSucceeded = "auth.succeeded"
	EventFailed    = "auth.failed"
	EventLogin     = "auth.login"
	EventLoggedOut = "auth.logged_out"
)

// Event describes a guard state transition.
type Event struct {
	Name        string
	Guard       string
	Driver      string
	UserID      string
	ViaRemember bool
	SessionID   string
	Err         error
	At          time.Time
}

// Emitter receives guard events. Emit must not block for long; it runs on
// the request goroutine.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, e Event)

func (f EmitterFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }
