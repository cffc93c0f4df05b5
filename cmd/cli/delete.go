package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/axellelanca/visittracker/cmd"
	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/services"
	"github.com/spf13/cobra"
)

// DeleteCmd représente la commande 'delete'
var DeleteCmd = &cobra.Command{
	Use:   "delete [visitor-id]",
	Short: "Deletes one recorded visit.",
	Args:  cobra.ExactArgs(1),
	RunE: func(command *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 0)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid visitor id %q", args[0])
		}

		db, repo, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer repository.Close(db)

		visitService := services.NewVisitService(repo, nil, nil)
		visit, err := visitService.Delete(command.Context(), uint(id))
		if errors.Is(err, customerrors.ErrVisitNotFound) {
			return fmt.Errorf("visit %d not found", id)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(command.OutOrStdout(), "Deleted visit %d (%s)\n", visit.ID, visit.VisitedURL)
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(DeleteCmd)
}
