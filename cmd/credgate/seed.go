// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth"
	authpg "github.com/credgate/credgate/internal/auth/postgres"
	"github.com/credgate/credgate/internal/seed"
	"github.com/credgate/credgate/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
	migrate bool
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Create initial user accounts from a seed file",
		Long: `Validates a seed YAML file and registers the accounts it lists.
This command is idempotent - accounts that already exist are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0], cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.migrate, "migrate", true, "apply pending migrations before seeding")

	return cmd
}

func runSeed(cmd *cobra.Command, path string, cfg *seedConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return oops.Code("SEED_FAILED").With("path", path).Wrap(err)
	}

	f, err := seed.Parse(data)
	if err != nil {
		return oops.Code("SEED_FAILED").With("path", path).Wrap(err)
	}

	databaseURL, err := resolveDatabaseURL()
	if err != nil {
		return err
	}

	// Use cmd.Context() so SIGINT/SIGTERM interrupt the run.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	if cfg.migrate {
		cmd.Println("Running migrations...")
		migrator, err := store.NewMigrator(databaseURL)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close() //nolint:errcheck // migration error takes precedence
			return err
		}
		if err := migrator.Close(); err != nil {
			return err
		}
	}

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	service, err := auth.NewService(
		authpg.NewUserRepository(pool),
		authpg.NewSessionStore(pool),
		auth.NewBcryptHasher(auth.DefaultBcryptCost),
	)
	if err != nil {
		return err
	}

	res, err := seed.Apply(ctx, service, f, slog.Default())
	if err != nil {
		return err
	}

	cmd.Printf("Seed complete: %d created, %d skipped\n", res.Created, res.Skipped)
	return nil
}
