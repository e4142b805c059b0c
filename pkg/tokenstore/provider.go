package tokenstore

import (
	"context"
	"time"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// Provider is the persistence port consumed by guards.
type Provider interface {
	// CreateToken persists the token hash and metadata. The store sets
	// token.Type to its own bucket.
	CreateToken(ctx context.Context, token *opaque.Token) error

	// GetTokenBySeries returns ErrTokenNotFound for absent, expired or
	// foreign-bucket tokens.
	GetTokenBySeries(ctx context.Context, series string) (*opaque.Token, error)

	// DeleteTokenBySeries is idempotent.
	DeleteTokenBySeries(ctx context.Context, series string) error

	// UpdateTokenBySeries replaces the hash and expiry and bumps updated_at,
	// keeping the identifier.
	UpdateTokenBySeries(ctx context.Context, series, hash string, expiresAt *time.Time) error
}

// Lister is implemented by stores that can enumerate tokens per owner.
type Lister interface {
	ListByTokenable(ctx context.Context, tokenableID string) ([]*opaque.Token, error)
	DeleteByTokenable(ctx context.Context, tokenableID string) error
	TouchLastUsed(ctx context.Context, series string, at time.Time) error
}

// Store is a Provider that also implements Lister. All bundled backends are Stores.
type Store interface {
	Provider
	Lister
}

// Config selects and configures a backend through environment variables.
type Config struct {
	Driver          string `env:"TOKENSTORE_DRIVER" envDefault:"memory"`
	Table           string `env:"TOKENSTORE_TABLE" envDefault:"auth_tokens"`
	RedisPrefix     string `env:"TOKENSTORE_REDIS_PREFIX" envDefault:"auth_tokens"`
	MongoCollection string `env:"TOKENSTORE_MONGO_COLLECTION" envDefault:"auth_tokens"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// Option configures a backend.
type Option func(*options)

type options struct {
	now        func() time.Time
	table      string
	prefix     string
	collection string
}

func defaultOptions() options {
	return options{
		now:        time.Now,
		table:      "auth_tokens",
		prefix:     "auth_tokens",
		collection: "auth_tokens",
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides time.Now, used for expiry filtering and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTable sets the Postgres table name.
func WithTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.table = table
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithCollection sets the Mongo collection name.
func WithCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.collection = name
		}
	}
}

// FromConfig turns a Config into backend options.
func FromConfig(cfg Config) []Option {
	return []Option{
		WithTable(cfg.Table),
		WithKeyPrefix(cfg.RedisPrefix),
		WithCollection(cfg.MongoCollection),
	}
}
