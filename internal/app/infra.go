package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/guardkit/pkg/config"
	"github.com/dmitrymomot/guardkit/pkg/httpserver"
	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/mongo"
	"github.com/dmitrymomot/guardkit/pkg/pg"
	"github.com/dmitrymomot/guardkit/pkg/redis"
)

// Infra holds the external clients the configured drivers need. Unused
// clients stay nil.
type Infra struct {
	Postgres   *pgxpool.Pool
	PostgresDB pg.Config
	Redis      *goredis.Client
	Mongo      *mongodrv.Database
}

// Connect opens every backend cfg refers to. On failure the clients opened
// so far are closed.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Infra, error) {
	infra := &Infra{}

	if cfg.needsPostgres() {
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		infra.Postgres, infra.PostgresDB = pool, pgCfg
		log.InfoContext(ctx, "connected", logger.Component("postgres"))
	}

	if cfg.needsRedis() {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			infra.Close(ctx, log)
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			infra.Close(ctx, log)
			return nil, err
		}
		infra.Redis = client
		log.InfoContext(ctx, "connected", logger.Component("redis"))
	}

	if cfg.needsMongo() {
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			infra.Close(ctx, log)
			return nil, err
		}
		db, err := mongo.NewWithDatabase(ctx, mongoCfg)
		if err != nil {
			infra.Close(ctx, log)
			return nil, err
		}
		infra.Mongo = db
		log.InfoContext(ctx, "connected", logger.Component("mongo"))
	}

	return infra, nil
}

// Checks returns a readiness probe per connected backend.
func (i *Infra) Checks() []httpserver.Check {
	var checks []httpserver.Check
	if i.Postgres != nil {
		checks = append(checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(i.Postgres)})
	}
	if i.Redis != nil {
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(i.Redis)})
	}
	if i.Mongo != nil {
		checks = append(checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(i.Mongo.Client())})
	}
	return checks
}

// RedisClient returns the client as an interface, or a nil interface when
// Redis is not connected.
func (i *Infra) RedisClient() goredis.UniversalClient {
	if i.Redis == nil {
		return nil
	}
	return i.Redis
}

func (i *Infra) Close(ctx context.Context, log *slog.Logger) {
	if i.Postgres != nil {
		i.Postgres.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			log.WarnContext(ctx, "close redis", logger.Error(err))
		}
	}
	if i.Mongo != nil {
		if err := i.Mongo.Client().Disconnect(ctx); err != nil {
			log.WarnContext(ctx, "close mongo", logger.Error(err))
		}
	}
}
