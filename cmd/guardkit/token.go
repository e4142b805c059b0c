package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/guardkit/internal/app"
	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
	"github.com/dmitrymomot/guardkit/pkg/users"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}
	cmd.AddCommand(tokenIssueCmd(), tokenListCmd(), tokenRevokeCmd())
	return cmd
}

// withUser runs fn with an assembled app and the user owning email.
func withUser(cmd *cobra.Command, email string, fn func(a *app.App, u *users.User) error) error {
	ctx := cmd.Context()
	cfg, log, infra, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Tokens.Driver == tokenstore.DriverMemory || cfg.UsersDriver == app.UsersMemory {
		return errEphemeralStore
	}

	a, err := app.New(cfg, infra, log)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	u, err := a.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return fn(a, u)
}

func tokenIssueCmd() *cobra.Command {
	var (
		email     string
		name      string
		abilities []string
		expiresIn time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access token; the value is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, email, func(a *app.App, u *users.User) error {
				tok, err := a.AccessTokens.Create(cmd.Context(), a.Provider.UserID(u), tokenstore.CreateOptions{
					Name:      name,
					Abilities: abilities,
					ExpiresIn: expiresIn,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok.Value.Release())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "owner email")
	cmd.Flags().StringVar(&name, "name", "", "token name")
	cmd.Flags().StringSliceVar(&abilities, "ability", nil, "granted ability, repeatable (default *)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime, 0 uses AUTH_ACCESS_TOKEN_TTL, negative never expires")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func tokenListCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's access tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, email, func(a *app.App, u *users.User) error {
				list, err := a.AccessTokens.All(cmd.Context(), a.Provider.UserID(u))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tABILITIES\tLAST USED\tEXPIRES")
				for _, tok := range list {
					fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\n", tok.Identifier, tok.Name, tok.Abilities, formatTime(tok.LastUsedAt), formatTime(tok.ExpiresAt))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "owner email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func tokenRevokeCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "revoke ID",
		Short: "Revoke an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, email, func(a *app.App, u *users.User) error {
				return a.AccessTokens.Delete(cmd.Context(), a.Provider.UserID(u), args[0])
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "owner email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
