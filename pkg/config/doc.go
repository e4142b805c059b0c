// Package config loads typed configuration from the environment.
//
// It combines github.com/joho/godotenv, which reads optional .env files, with
// github.com/caarlos0/env/v11, which maps variables onto struct fields through
// `env` and `envDefault` tags. Every package that needs settings (pg, redis,
// mongo, cookie, session, guard, tokenstore) declares its own Config struct;
// the command line entry point loads them all through Load.
//
// Parsed values are cached per type, so repeated Load calls for the same
// struct are cheap and see a consistent snapshot. Call Reset in tests after
// changing the environment.
//
// # Usage
//
//	if err := config.LoadEnv(".env.local"); err != nil {
//		return err
//	}
//
//	var cfg guard.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config
