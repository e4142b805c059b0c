// Package mongo opens MongoDB connections for the Mongo token store.
//
// New connects with pool settings from Config and retries until the
// deployment answers a ping. NewWithDatabase additionally selects
// Config.Database. Healthcheck plugs the client into /healthz.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := tokenstore.NewMongo(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType)
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
package mongo
