package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osse101/CardVault_Go/internal/bootstrap"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage catalog reference data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.json>",
		Short: "Upsert catalog cards from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			repos := bootstrap.InitializeRepositories(pool)
			n, err := bootstrap.ImportCatalog(cmd.Context(), repos.Catalog, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d cards\n", n)
			return nil
		},
	})

	return cmd
}
