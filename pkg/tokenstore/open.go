package tokenstore

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Backends carries the clients Open may choose from. Only the one matching
// the configured driver is required.
type Backends struct {
	Postgres DBTX
	Redis    redis.UniversalClient
	Mongo    *mongo.Database
	// Memory lets several buckets share one in-memory table.
	Memory *Memory
}

// Open returns the store selected by cfg.Driver for the given bucket.
func Open(cfg Config, b Backends, mapper Mapper, tokenType string, opts ...Option) (Store, error) {
	opts = append(FromConfig(cfg), opts...)

	switch cfg.Driver {
	case "", DriverMemory:
		if b.Memory != nil {
			return b.Memory.Share(mapper, tokenType), nil
		}
		return NewMemory(mapper, tokenType, opts...), nil
	case DriverPostgres:
		if b.Postgres == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingBackend, cfg.Driver)
		}
		return NewPostgres(b.Postgres, mapper, tokenType, opts...), nil
	case DriverRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingBackend, cfg.Driver)
		}
		return NewRedis(b.Redis, mapper, tokenType, opts...), nil
	case DriverMongo:
		if b.Mongo == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingBackend, cfg.Driver)
		}
		return NewMongo(b.Mongo, mapper, tokenType, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
