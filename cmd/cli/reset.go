package cli

import (
	"errors"
	"fmt"

	"github.com/axellelanca/visittracker/cmd"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/services"
	"github.com/spf13/cobra"
)

var resetConfirmed bool

// ResetCmd représente la commande 'reset'
var ResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drops and recreates the visitors table.",
	Long: `This command deletes every stored visit by dropping the 'visitors' table
and creating it again. It is the command line counterpart of GET /api/init
and runs even when admin.enable_reset is false.

Example:
  visittracker reset --yes`,
	RunE: func(command *cobra.Command, args []string) error {
		if !resetConfirmed {
			return errors.New("refusing to drop the visitors table without --yes")
		}

		db, repo, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer repository.Close(db)

		if err := services.NewAdminService(repo, true).ResetSchema(command.Context()); err != nil {
			return err
		}

		fmt.Fprintln(command.OutOrStdout(), "Visitor database initialized successfully!")
		return nil
	},
}

func init() {
	ResetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm that all visits may be deleted")
	cmd.RootCmd.AddCommand(ResetCmd)
}
