package session

import "time"

// Config holds session settings.
type Config struct {
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	// IdleTimeout slides forward on activity; MaxLifetime caps it.
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	MaxLifetime time.Duration `env:"SESSION_MAX_LIFETIME" envDefault:"720h"`

	// ActivityUpdateThreshold is the minimum time between idle extensions of
	// an unchanged session.
	ActivityUpdateThreshold time.Duration `env:"SESSION_ACTIVITY_UPDATE_THRESHOLD" envDefault:"5m"`

	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	Driver      string `env:"SESSION_DRIVER" envDefault:"memory"` // memory | redis
	RedisPrefix string `env:"SESSION_REDIS_PREFIX" envDefault:"session"`
}

// DefaultConfig mirrors the envDefault values.
func DefaultConfig() Config {
	return Config{
		CookieName:              "sid",
		IdleTimeout:             2 * time.Hour,
		MaxLifetime:             30 * 24 * time.Hour,
		ActivityUpdateThreshold: 5 * time.Minute,
		CleanupInterval:         5 * time.Minute,
		Driver:                  "memory",
		RedisPrefix:             "session",
	}
}

// expiry returns the next expiry: now+idle capped at createdAt+max.
func (c Config) expiry(createdAt, now time.Time) time.Time {
	idle := now.Add(c.IdleTimeout)
	if c.MaxLifetime <= 0 {
		return idle
	}
	if limit := createdAt.Add(c.MaxLifetime); limit.Before(idle) {
		return limit
	}
	return idle
}
