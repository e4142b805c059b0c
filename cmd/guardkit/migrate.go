package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/guardkit/migrations"
	"github.com/dmitrymomot/guardkit/pkg/pg"
)

var errPostgresNotConfigured = errors.New("neither USERS_DRIVER nor TOKENSTORE_DRIVER is postgres")

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations for users and auth tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, log, infra, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if infra.Postgres == nil {
				return errPostgresNotConfigured
			}
			if err := pg.Migrate(ctx, infra.Postgres, infra.PostgresDB, migrations.FS, log); err != nil {
				return err
			}
			log.InfoContext(ctx, "migrations applied")
			return nil
		},
	}
}
