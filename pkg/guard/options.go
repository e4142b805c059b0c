package guard

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/logger"
)

// Option configures guards and the Manager.
type Option func(*options)

type options struct {
	config   Config
	emitter  Emitter
	log      *slog.Logger
	now      func() time.Time
	session  SessionStore
	remember RememberTokenProvider
	jar      CookieJar
}

func applyOptions(opts []Option) options {
	o := options{
		config: DefaultConfig(),
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithEmitter sets the event sink. A nil emitter drops events.
func WithEmitter(e Emitter) Option {
	return func(o *options) { o.emitter = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSession sets the request session used by a SessionGuard.
func WithSession(s SessionStore) Option {
	return func(o *options) { o.session = s }
}

// WithRememberTokens enables remember-me on a SessionGuard.
func WithRememberTokens(p RememberTokenProvider) Option {
	return func(o *options) { o.remember = p }
}

// WithCookieJar sets the jar for the remember-me cookie.
func WithCookieJar(j CookieJar) Option {
	return func(o *options) { o.jar = j }
}
