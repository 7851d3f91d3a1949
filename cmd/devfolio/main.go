package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devfolio/devfolio-server/internal/app"
	"github.com/devfolio/devfolio-server/internal/config"
	"github.com/devfolio/devfolio-server/internal/observability"
	"github.com/devfolio/devfolio-server/internal/repository"
	"github.com/devfolio/devfolio-server/internal/service"
	"github.com/devfolio/devfolio-server/internal/tools/common"
	"github.com/devfolio/devfolio-server/internal/tools/smoke"
)

func main() {
	root := &cobra.Command{
		Use:          "devfolio",
		Short:        "Portfolio and community server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.LoadEnvFile(".env")
		},
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newReapCommand(), smoke.NewRootCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, lp, err := observability.NewLogger(ctx, cfg)
			if err != nil {
				return err
			}

			a, err := app.Build(ctx, cfg, logger, lp)
			if err != nil {
				return err
			}
			if err := app.Migrate(a.DB); err != nil {
				return err
			}

			logger.Info("starting", "profile", cfg.Profile, "addr", cfg.HTTPAddr)
			return a.Run(ctx)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := app.OpenDatabase(cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			if err := app.Migrate(db); err != nil {
				return err
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func newReapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Delete expired refresh tokens once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, _, err := observability.NewLogger(ctx, cfg)
			if err != nil {
				return err
			}
			db, err := app.OpenDatabase(cfg.DatabaseDSN)
			if err != nil {
				return err
			}

			reaper := service.NewReaper(repository.NewRefreshTokenRepository(db), cfg.ReapInterval, logger)
			removed, err := reaper.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired refresh tokens\n", removed)
			return nil
		},
	}
}
