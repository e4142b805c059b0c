package app

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/guardkit/pkg/config"
	"github.com/dmitrymomot/guardkit/pkg/cookie"
	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/httpserver"
	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/session"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

const (
	UsersMemory   = "memory"
	UsersPostgres = "postgres"
)

// ErrInvalidConfig wraps configuration combinations that cannot be served.
var ErrInvalidConfig = errors.New("app.invalid_config")

// Config is the complete service configuration. Connection settings for
// Postgres, Redis and MongoDB are loaded separately by Connect, only when a
// driver needs them.
type Config struct {
	Logger  logger.Config
	HTTP    httpserver.Config
	Cookie  cookie.Config
	Session session.Config
	Guard   guard.Config
	Tokens  tokenstore.Config

	UsersDriver string `env:"USERS_DRIVER" envDefault:"memory"`
	// TrustedProxyHeaders lists client address headers to honour, in order.
	TrustedProxyHeaders []string `env:"TRUSTED_PROXY_HEADERS" envSeparator:","`
	MetricsEnabled      bool     `env:"METRICS_ENABLED" envDefault:"true"`
	BcryptCost          int      `env:"BCRYPT_COST" envDefault:"12"`
}

// LoadConfig reads Config from the environment and .env.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects driver names no component understands.
func (c Config) Validate() error {
	switch c.UsersDriver {
	case UsersMemory, UsersPostgres:
	default:
		return fmt.Errorf("%w: users driver %q", ErrInvalidConfig, c.UsersDriver)
	}
	switch c.Tokens.Driver {
	case tokenstore.DriverMemory, tokenstore.DriverPostgres, tokenstore.DriverRedis, tokenstore.DriverMongo:
	default:
		return fmt.Errorf("%w: token driver %q", ErrInvalidConfig, c.Tokens.Driver)
	}
	switch c.Session.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: session driver %q", ErrInvalidConfig, c.Session.Driver)
	}
	return nil
}

func (c Config) needsPostgres() bool {
	return c.UsersDriver == UsersPostgres || c.Tokens.Driver == tokenstore.DriverPostgres
}

func (c Config) needsRedis() bool {
	return c.Session.Driver == "redis" || c.Tokens.Driver == tokenstore.DriverRedis
}

func (c Config) needsMongo() bool {
	return c.Tokens.Driver == tokenstore.DriverMongo
}
