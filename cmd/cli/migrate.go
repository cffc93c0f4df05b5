package cli

import (
	"fmt"

	"github.com/axellelanca/visittracker/cmd"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/services"
	"github.com/spf13/cobra"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update the visitors table.",
	Long: `This command connects to the configured database (SQLite or PostgreSQL)
and executes GORM automatic migrations to create the 'visitors' table
based on the Go model.`,
	RunE: func(command *cobra.Command, args []string) error {
		db, repo, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer repository.Close(db)

		// Migrate is allowed regardless of admin.enable_reset
		if err := services.NewAdminService(repo, false).Migrate(command.Context()); err != nil {
			return err
		}

		fmt.Fprintln(command.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	// Register this command with the root command so it can be executed via CLI
	cmd.RootCmd.AddCommand(MigrateCmd)
}
