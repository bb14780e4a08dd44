package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yalmoalm/JaMoveo/internal/config"
	"github.com/yalmoalm/JaMoveo/internal/database"
	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/logging"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		cfg     *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "jamoveo",
		Short:         "JaMoveo rehearsal server",
		Long:          "Runs the JaMoveo API and realtime session channel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			// Initialize structured logging (reads LOGGING_LEVEL env var)
			logging.Initialize()
			cfg = config.Load()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	serveCmd := newServeCmd(func() *config.Config { return cfg })
	rootCmd.AddCommand(
		serveCmd,
		newMigrateCmd(func() *config.Config { return cfg }),
		newCreateAdminCmd(func() *config.Config { return cfg }),
		newImportSongsCmd(func() *config.Config { return cfg }),
	)
	// Running the bare binary serves.
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

// openStore opens the database, applies migrations and seeds the roles.
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	sqlDB, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.RunMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if err := services.SeedRoles(ctx, db.New(sqlDB)); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	slog.Info("database ready", slog.String("path", cfg.DatabasePath))
	return sqlDB, nil
}
