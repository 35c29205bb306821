package cli

import (
	"github.com/medadvisor/advisor-api/internal/config"
	"github.com/medadvisor/advisor-api/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := database.Connect(cfg); err != nil {
			return err
		}
		defer database.Close()
		return database.Migrate()
	},
}
