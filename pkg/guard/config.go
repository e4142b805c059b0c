package guard

import "time"

// Config holds guard settings shared by all drivers.
type Config struct {
	RememberMeAge  time.Duration `env:"AUTH_REMEMBER_ME_AGE" envDefault:"17520h"`
	RecycleWindow  time.Duration `env:"AUTH_RECYCLE_WINDOW" envDefault:"60s"`
	LoginURL       string        `env:"AUTH_LOGIN_URL" envDefault:"/login"`
	BasicRealm     string        `env:"AUTH_BASIC_REALM" envDefault:"Authenticate"`
	AccessTokenTTL time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"0s"`
}

// DefaultConfig mirrors the envDefault values.
func DefaultConfig() Config {
	return Config{
		RememberMeAge: 2 * 365 * 24 * time.Hour,
		RecycleWindow: 60 * time.Second,
		LoginURL:      "/login",
		BasicRealm:    "Authenticate",
	}
}
