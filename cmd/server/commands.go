package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=... -X main.BuildTime=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const appName = "sessionkeeper"

// Seams for tests.
var (
	runServer = func(ctx context.Context, c *config.Config, logger logging.Logger) error {
		app, err := server.NewApp(ctx, c, logger)
		if err != nil {
			return err
		}
		return app.Run(ctx)
	}
	migrate = func(ctx context.Context, c *config.Config) error {
		db, err := dbx.OpenPostgres(ctx, c.DatabaseDSN, 10*time.Second)
		if err != nil {
			return err
		}
		defer db.Close()
		return repomanager.RunMigrations(ctx, db)
	}
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Flags(), os.LookupEnv)
}

func newLogger(w io.Writer, c *config.Config) logging.Logger {
	return logging.NewJSONLogger(w, c.LogLevel).With("app", appName)
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Session and credential lifecycle service",
		Long: `sessionkeeper issues cookie-based access and refresh tokens for
signup and login, checks access tokens on protected routes and keeps one
current refresh token per user.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), c, newLogger(cmd.ErrOrStderr(), c))
		},
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(migrateCmd(), versionCmd())
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := migrate(cmd.Context(), c); err != nil {
				return fmt.Errorf("migration error: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}
