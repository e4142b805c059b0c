// Package redis connects guardkit to Redis through go-redis/v9.
//
// Connect retries until the server answers a PING, and Healthcheck exposes
// the same check for the /healthz endpoint. The resulting client backs the
// Redis token store in tokenstore and the Redis session store in session.
//
// # Usage
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
