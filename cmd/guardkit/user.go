package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/guardkit/internal/app"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, infra, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if cfg.UsersDriver == app.UsersMemory {
				return errEphemeralStore
			}

			a, err := app.New(cfg, infra, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			u, err := a.Users.Register(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "user email")
	create.Flags().StringVar(&password, "password", "", "user password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
