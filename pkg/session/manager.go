package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/guardkit/pkg/cookie"
	"github.com/dmitrymomot/guardkit/pkg/logger"
)

// ErrUnknownDriver is returned by NewFromConfig for unsupported drivers.
var ErrUnknownDriver = errors.New("session.unknown_driver")

// Manager loads sessions for incoming requests and commits them on the way out.
type Manager struct {
	store     Store
	transport Transport
	config    Config
	log       *slog.Logger
	now       func() time.Time
}

// New creates a session manager.
func New(store Store, transport Transport, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		transport: transport,
		config:    DefaultConfig(),
		log:       logger.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewFromConfig builds the store selected by cfg.Driver and a signed cookie
// transport. rdb may be nil unless the redis driver is selected.
func NewFromConfig(cfg Config, jar *cookie.Manager, rdb redis.UniversalClient, opts ...Option) (*Manager, error) {
	var store Store
	switch cfg.Driver {
	case "", "memory":
		store = NewMemoryStore(cfg.CleanupInterval)
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis client is required", ErrUnknownDriver)
		}
		store = NewRedisStore(rdb, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	opts = append([]Option{WithConfig(cfg)}, opts...)
	return New(store, NewCookieTransport(jar, cfg.CookieName), opts...), nil
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// Load returns the session referenced by the request, or a fresh unsaved one.
// A stored session that is expired by the manager clock counts as missing.
// Storage failures other than a missing session are returned.
func (m *Manager) Load(r *http.Request) (*Handle, error) {
	ctx := r.Context()

	if id, err := m.transport.GetToken(r); err == nil {
		sess, err := m.store.Get(ctx, id)
		switch {
		case err == nil && sess.IsExpiredAt(m.now()):
		case err == nil:
			return &Handle{manager: m, sess: sess}, nil
		case !errors.Is(err, ErrSessionNotFound):
			return nil, fmt.Errorf("load session: %w", err)
		}
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	return &Handle{
		manager: m,
		sess:    newSession(id, m.now(), m.config.IdleTimeout),
		isNew:   true,
	}, nil
}

// Commit persists the session if needed and, when setCookie is true, writes
// the session cookie.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, h *Handle, setCookie bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		if setCookie {
			return m.transport.ClearToken(w)
		}
		return nil
	}

	now := m.now()
	touch := !h.isNew && now.Sub(h.sess.LastActivityAt) >= m.config.ActivityUpdateThreshold
	if !h.dirty && !touch {
		return nil
	}

	h.sess.LastActivityAt = now
	h.sess.ExpiresAt = m.config.expiry(h.sess.CreatedAt, now)
	if err := m.store.Save(ctx, h.sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	h.isNew = false
	h.dirty = false

	if setCookie {
		return m.transport.SetToken(w, h.sess.ID, h.sess.TTL(now))
	}
	return nil
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
