package main

import (
	"github.com/spf13/cobra"

	"github.com/osse101/CardVault_Go/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			return database.Migrate(cmd.Context(), pool)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			return database.MigrationStatus(cmd.Context(), pool)
		},
	})

	return cmd
}
