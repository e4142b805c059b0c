// Package tokenstore persists opaque tokens.
//
// Every backend implements Provider, keyed by the token identifier (the
// "series"). A store is bound to a single bucket through its type
// discriminator, so several token families can share one physical table,
// Redis keyspace or Mongo collection without seeing each other's rows. Rows
// from a different bucket and rows whose expiry has passed are reported as
// ErrTokenNotFound.
//
// Only hashes are stored. The plaintext secret lives in opaque.Token.Value and
// is never written by any backend.
//
// Backends:
//
//   - Memory   – mutex-guarded map, expiry checked after fetch
//   - Postgres – pgx/v5 over a DBTX, expiry filtered in SQL
//   - Redis    – go-redis/v9 JSON records with key TTLs
//   - Mongo    – mongo-driver/v2 documents with a TTL index
//
// Row mapping is explicit: a Mapper converts between opaque.Token and the flat
// Record every backend reads and writes. AccessTokenMapper and
// RememberMeMapper cover the two built-in kinds.
//
// # Usage
//
//	store := tokenstore.NewPostgres(pool, tokenstore.AccessTokenMapper(), "access_token")
//	tokens := tokenstore.NewAccessTokens(store)
//
//	tok, err := tokens.Create(ctx, user.ID.String(), tokenstore.CreateOptions{
//	    Name:      "deploy",
//	    Abilities: []string{"deploy:write"},
//	})
//	fmt.Println(tok.Value.Release()) // shown once
//
//	verified, err := tokens.Verify(ctx, bearer)
//	if errors.Is(err, tokenstore.ErrTokenNotFound) {
//	    // malformed, unknown, tampered and expired tokens all land here
//	}
package tokenstore
