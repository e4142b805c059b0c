package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/guardkit/pkg/cookie"
	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

const secret = "this-is-a-very-long-secret-key-32-chars-long"

type user struct {
	ID       string
	Email    string
	Password string
}

type userStore struct {
	users map[string]*user
	err   error
	calls int
}

func newUserStore(users ...*user) *userStore {
	s := &userStore{users: make(map[string]*user)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStore) UserID(u *user) string { return u.ID }

func (s *userStore) FindByID(_ context.Context, id string) (*user, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, guard.ErrUserNotFound
	}
	return u, nil
}

func (s *userStore) VerifyCredentials(_ context.Context, uid, password string) (*user, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Email == uid && u.Password == password {
			return u, nil
		}
	}
	return nil, guard.ErrInvalidCredentials
}

type fakeSession struct {
	id          string
	data        map[string]any
	puts        int
	regenerated int
}

func newFakeSession() *fakeSession {
	return &fakeSession{id: "sid-0", data: make(map[string]any)}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *fakeSession) Put(key string, value any) {
	s.puts++
	s.data[key] = value
}

func (s *fakeSession) Forget(key string) { delete(s.data, key) }

func (s *fakeSession) Regenerate(context.Context) error {
	s.regenerated++
	s.id = "sid-" + strconv.Itoa(s.regenerated)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []guard.Event
}

func (l *eventLog) Emit(_ context.Context, e guard.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.events))
	for i, e := range l.events {
		names[i] = e.Name
	}
	return names
}

// env wires one session guard name to in-memory collaborators.
type env struct {
	clock    *fakeClock
	users    *userStore
	jar      *cookie.Manager
	tokens   *tokenstore.Memory
	remember *tokenstore.RememberTokens
	events   *eventLog
	config   guard.Config
}

func newEnv(t *testing.T) *env {
	t.Helper()
	jar, err := cookie.New([]string{secret}, cookie.WithSecure(false))
	require.NoError(t, err)

	clock := newFakeClock()
	tokens := tokenstore.NewMemory(tokenstore.RememberMeMapper(), tokenstore.RememberMeType("web"), tokenstore.WithClock(clock.Now))

	cfg := guard.DefaultConfig()
	cfg.RememberMeAge = 20 * time.Minute

	return &env{
		clock:    clock,
		users:    newUserStore(&user{ID: "1", Email: "ada@example.com", Password: "secret"}),
		jar:      jar,
		tokens:   tokens,
		remember: tokenstore.NewRememberTokens(tokens, "web", tokenstore.WithServiceClock(clock.Now)),
		events:   &eventLog{},
		config:   cfg,
	}
}

func (e *env) options(sess guard.SessionStore) []guard.Option {
	opts := []guard.Option{
		guard.WithConfig(e.config),
		guard.WithClock(e.clock.Now),
		guard.WithEmitter(e.events),
		guard.WithRememberTokens(e.remember),
		guard.WithCookieJar(e.jar),
	}
	if sess != nil {
		opts = append(opts, guard.WithSession(sess))
	}
	return opts
}

// request builds a session guard for a request carrying cookies.
func (e *env) request(sess *fakeSession, cookies []*http.Cookie, extra ...guard.Option) (*guard.SessionGuard[*user], *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()

	var store guard.SessionStore
	if sess != nil {
		store = sess
	}
	opts := append(e.options(store), extra...)
	return guard.NewSessionGuard("web", guard.UserProvider[*user](e.users), rec, req, opts...), rec
}

// rememberValue decrypts the remember-me cookie set on rec.
func (e *env) rememberValue(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	v, err := e.jar.GetEncrypted(req, "remember_web")
	require.NoError(t, err)
	return v
}
