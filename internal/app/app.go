package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/guardkit/pkg/authevents"
	"github.com/dmitrymomot/guardkit/pkg/cookie"
	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/session"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
	"github.com/dmitrymomot/guardkit/pkg/users"
)

// Guard names served by the HTTP API.
const (
	GuardWeb   = "web"
	GuardAPI   = "api"
	GuardBasic = "basic"
)

// App wires users, token buckets, sessions and guards together.
type App struct {
	cfg   Config
	log   *slog.Logger
	infra *Infra

	Users          *users.Service
	Provider       *users.Provider
	AccessTokens   *tokenstore.AccessTokens
	RememberTokens *tokenstore.RememberTokens
	Cookies        *cookie.Manager
	Sessions       *session.Manager
	Guards         *guard.Manager[*users.User]
	Registry       *prometheus.Registry
}

// Option adjusts an App before it is assembled.
type Option func(*buildOptions)

type buildOptions struct {
	guardOpts   []guard.Option
	sessionOpts []session.Option
	userOpts    []users.ServiceOption
	tokenOpts   []tokenstore.Option
	serviceOpts []tokenstore.ServiceOption
}

// WithClock replaces time.Now in every component that reads the clock.
func WithClock(now func() time.Time) Option {
	return func(o *buildOptions) {
		o.guardOpts = append(o.guardOpts, guard.WithClock(now))
		o.sessionOpts = append(o.sessionOpts, session.WithClock(now))
		o.userOpts = append(o.userOpts, users.WithClock(now))
		o.tokenOpts = append(o.tokenOpts, tokenstore.WithClock(now))
		o.serviceOpts = append(o.serviceOpts, tokenstore.WithServiceClock(now))
	}
}

// WithGuardOptions appends options passed to every guard.
func WithGuardOptions(opts ...guard.Option) Option {
	return func(o *buildOptions) { o.guardOpts = append(o.guardOpts, opts...) }
}

func WithSessionOptions(opts ...session.Option) Option {
	return func(o *buildOptions) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

func WithUserOptions(opts ...users.ServiceOption) Option {
	return func(o *buildOptions) { o.userOpts = append(o.userOpts, opts...) }
}

func WithTokenStoreOptions(opts ...tokenstore.Option) Option {
	return func(o *buildOptions) { o.tokenOpts = append(o.tokenOpts, opts...) }
}

// WithTokenServiceOptions appends options passed to both token services.
func WithTokenServiceOptions(opts ...tokenstore.ServiceOption) Option {
	return func(o *buildOptions) { o.serviceOpts = append(o.serviceOpts, opts...) }
}

// New assembles the application on top of connected infrastructure.
func New(cfg Config, infra *Infra, log *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	a := &App{cfg: cfg, log: log, infra: infra, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repo, err := a.userRepository()
	if err != nil {
		return nil, err
	}
	userOpts := append([]users.ServiceOption{users.WithHasher(users.NewBcryptHasher(cfg.BcryptCost))}, bo.userOpts...)
	a.Users = users.NewService(repo, userOpts...)
	a.Provider = users.NewProvider(a.Users)

	if err := a.openTokenBuckets(bo.tokenOpts, bo.serviceOpts); err != nil {
		return nil, err
	}

	a.Cookies, err = cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return nil, fmt.Errorf("cookie manager: %w", err)
	}

	sessionOpts := append([]session.Option{session.WithLogger(log)}, bo.sessionOpts...)
	a.Sessions, err = session.NewFromConfig(cfg.Session, a.Cookies, infra.RedisClient(), sessionOpts...)
	if err != nil {
		return nil, err
	}

	emitter := authevents.Multi(
		authevents.NewLog(log),
		authevents.NewPrometheus(authevents.WithRegistry(a.Registry)),
	)
	guardOpts := append([]guard.Option{
		guard.WithConfig(cfg.Guard),
		guard.WithEmitter(emitter),
		guard.WithLogger(log),
	}, bo.guardOpts...)

	a.Guards, err = guard.NewManager(GuardWeb, a.factories(guardOpts), guardOpts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) userRepository() (users.Repository, error) {
	if a.cfg.UsersDriver != UsersPostgres {
		return users.NewMemory(), nil
	}
	if a.infra.Postgres == nil {
		return nil, fmt.Errorf("%w: users driver postgres without a pool", ErrInvalidConfig)
	}
	return users.NewPostgres(a.infra.Postgres), nil
}

func (a *App) openTokenBuckets(opts []tokenstore.Option, serviceOpts []tokenstore.ServiceOption) error {
	var b tokenstore.Backends
	if a.infra.Postgres != nil {
		b.Postgres = a.infra.Postgres
	}
	b.Redis = a.infra.RedisClient()
	if a.infra.Mongo != nil {
		b.Mongo = a.infra.Mongo
	}
	if a.cfg.Tokens.Driver == tokenstore.DriverMemory {
		b.Memory = tokenstore.NewMemory(tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, opts...)
	}

	access, err := tokenstore.Open(a.cfg.Tokens, b, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, opts...)
	if err != nil {
		return fmt.Errorf("access token store: %w", err)
	}
	remember, err := tokenstore.Open(a.cfg.Tokens, b, tokenstore.RememberMeMapper(), tokenstore.RememberMeType(GuardWeb), opts...)
	if err != nil {
		return fmt.Errorf("remember-me token store: %w", err)
	}

	serviceOpts = append([]tokenstore.ServiceOption{tokenstore.WithServiceLogger(a.log)}, serviceOpts...)
	a.AccessTokens = tokenstore.NewAccessTokens(access, serviceOpts...)
	a.RememberTokens = tokenstore.NewRememberTokens(remember, GuardWeb, serviceOpts...)
	return nil
}

func (a *App) factories(opts []guard.Option) map[string]guard.Factory[*users.User] {
	return map[string]guard.Factory[*users.User]{
		GuardWeb: func(w http.ResponseWriter, r *http.Request) guard.Guard[*users.User] {
			webOpts := append([]guard.Option{
				guard.WithRememberTokens(a.RememberTokens),
				guard.WithCookieJar(a.Cookies),
			}, opts...)
			if h, ok := session.FromContext(r.Context()); ok {
				webOpts = append(webOpts, guard.WithSession(h))
			}
			return guard.NewSessionGuard[*users.User](GuardWeb, a.Provider, w, r, webOpts...)
		},
		GuardAPI: func(w http.ResponseWriter, r *http.Request) guard.Guard[*users.User] {
			return guard.NewAccessTokenGuard[*users.User](GuardAPI, a.Provider, a.AccessTokens, r, opts...)
		},
		GuardBasic: func(w http.ResponseWriter, r *http.Request) guard.Guard[*users.User] {
			return guard.NewBasicAuthGuard[*users.User](GuardBasic, a.Provider, r, opts...)
		},
	}
}

// Close releases the in-memory session sweeper. Infrastructure is owned by
// the caller.
func (a *App) Close(ctx context.Context) {
	if c, ok := a.Sessions.Store().(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.log.WarnContext(ctx, "close session store", logger.Error(err))
		}
	}
}
