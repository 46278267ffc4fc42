package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankur-foundation/ngo-portal/internal/config"
	"github.com/ankur-foundation/ngo-portal/internal/database"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Administer the NGO portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newSetRoleCmd(),
		newHashPasswordCmd(),
		newRolesCmd(),
	)
	return root
}

// openDB connects using the DB_* environment variables.
func openDB() (*sql.DB, error) {
	c := config.LoadDB()
	return database.Open(c.User, c.Pass, c.Host, c.Port, c.Name)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the portal tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements\n", len(database.Statements()))
			return nil
		},
	}
}
