package guard

import (
	"context"
	"log/slog"
	"time"
)

// state is the per-request bookkeeping shared by all guards.
type state[U any] struct {
	name    string
	driver  string
	userID  func(U) string
	emitter Emitter
	log     *slog.Logger
	now     func() time.Time

	attempted     bool
	authenticated bool
	loggedOut     bool
	viaRemember   bool
	user          U
	err           error
}

func newState[U any](name, driver string, userID func(U) string, o options) state[U] {
	return state[U]{
		name:    name,
		driver:  driver,
		userID:  userID,
		emitter: o.emitter,
		log:     o.log,
		now:     o.now,
	}
}

// Name returns the guard name.
func (s *state[U]) Name() string { return s.name }

// Driver returns the guard driver.
func (s *state[U]) Driver() string { return s.driver }

// AuthenticationAttempted reports whether Authenticate ran for this request.
func (s *state[U]) AuthenticationAttempted() bool { return s.attempted }

func (s *state[U]) IsAuthenticated() bool { return s.authenticated }

func (s *state[U]) IsLoggedOut() bool { return s.loggedOut }

// User returns the authenticated user.
func (s *state[U]) User() (U, bool) {
	return s.user, s.authenticated
}

// GetUserOrFail returns the authenticated user or an *UnauthorizedError.
func (s *state[U]) GetUserOrFail() (U, error) {
	if s.authenticated {
		return s.user, nil
	}
	var zero U
	if s.err != nil {
		return zero, s.err
	}
	return zero, &UnauthorizedError{Guard: s.name, Driver: s.driver, Message: "Unauthorized access"}
}

// run performs the first authentication attempt and replays its outcome on
// later calls.
func (s *state[U]) run(ctx context.Context, sessionID func() string, attempt func(ctx context.Context) (U, bool, error)) (U, error) {
	if s.attempted {
		return s.GetUserOrFail()
	}
	s.attempted = true
	s.emit(ctx, Event{Name: EventAttempted, SessionID: sessionID()})

	user, viaRemember, err := attempt(ctx)
	if err != nil {
		s.err = err
		s.emit(ctx, Event{Name: EventFailed, SessionID: sessionID(), Err: err})
		var zero U
		return zero, err
	}

	s.succeed(user, viaRemember)
	s.emit(ctx, Event{Name: EventSucceeded, UserID: s.userID(user), ViaRemember: viaRemember, SessionID: sessionID()})
	return user, nil
}

func (s *state[U]) succeed(user U, viaRemember bool) {
	s.attempted = true
	s.authenticated = true
	s.loggedOut = false
	s.viaRemember = viaRemember
	s.user = user
	s.err = nil
}

func (s *state[U]) reset() {
	var zero U
	s.authenticated = false
	s.loggedOut = true
	s.viaRemember = false
	s.user = zero
	s.err = nil
}

func (s *state[U]) emit(ctx context.Context, e Event) {
	if s.emitter == nil {
		return
	}
	e.Guard = s.name
	e.Driver = s.driver
	e.At = s.now()
	s.emitter.Emit(ctx, e)
}

func noSessionID() string { return "" }
