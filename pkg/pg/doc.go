// Package pg wires PostgreSQL into guardkit: a pgx/v5 connection pool with
// startup retries, goose/v3 migrations read from an fs.FS, a health probe and
// helpers that classify pgx errors.
//
// The Postgres token store and the Postgres user repository both run on the
// pool returned by Connect.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
//		return err
//	}
//
// # Error Handling
//
// IsNotFoundError, IsDuplicateKeyError and IsForeignKeyViolationError let
// repositories map driver errors onto their own sentinels without importing
// pgconn.
package pg
