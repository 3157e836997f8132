package main

import (
	"fmt"

	"keystone/internal/config"
	"keystone/internal/db"
	"keystone/internal/logger"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init()

			database, err := db.Connect(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
				return err
			}
			logger.Info("Migrations completed", "path", cfg.MigrationsPath)
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init()

			database, err := db.Connect(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.RollbackMigrations(database, cfg.MigrationsPath, steps); err != nil {
				return err
			}
			logger.Info("Migrations rolled back", "steps", steps)
			return nil
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}
