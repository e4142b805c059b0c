package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/guardkit/internal/app"
	"github.com/dmitrymomot/guardkit/pkg/httpserver"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, infra, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.New(cfg, infra, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
			return srv.Run(ctx, a.Router())
		},
	}
}
