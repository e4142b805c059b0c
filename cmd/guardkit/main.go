package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/guardkit/internal/app"
	"github.com/dmitrymomot/guardkit/pkg/clientip"
	"github.com/dmitrymomot/guardkit/pkg/config"
	"github.com/dmitrymomot/guardkit/pkg/logger"
	"github.com/dmitrymomot/guardkit/pkg/requestid"
)

var errEphemeralStore = errors.New("the memory driver does not outlive the command; configure postgres, redis or mongo")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "guardkit",
		Short:         "Session, remember-me, access token and basic auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(envFiles) > 0 {
				return config.LoadEnv(envFiles...)
			}
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "load variables from these .env files")

	root.AddCommand(serveCmd(), migrateCmd(), userCmd(), tokenCmd())
	return root
}

// setup loads configuration and builds the logger and infrastructure shared
// by every command. The returned cleanup closes the infrastructure.
func setup(ctx context.Context) (app.Config, *slog.Logger, *app.Infra, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	opts := append(logger.FromConfig(cfg.Logger),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	)
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	infra, err := app.Connect(ctx, cfg, log)
	if err != nil {
		return app.Config{}, nil, nil, nil, fmt.Errorf("connect: %w", err)
	}
	return cfg, log, infra, func() { infra.Close(context.WithoutCancel(ctx), log) }, nil
}
