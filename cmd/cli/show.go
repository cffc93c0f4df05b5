package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/axellelanca/visittracker/cmd"
	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/models"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/services"
	"github.com/spf13/cobra"
)

// ShowCmd représente la commande 'show'
var ShowCmd = &cobra.Command{
	Use:   "show [visitor-id]",
	Short: "Prints every field of one recorded visit.",
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
		visit, err := visitService.Get(command.Context(), uint(id))
		if errors.Is(err, customerrors.ErrVisitNotFound) {
			return fmt.Errorf("visit %d not found", id)
		}
		if err != nil {
			return err
		}

		printVisit(command.OutOrStdout(), visit)
		return nil
	},
}

func printVisit(out io.Writer, v *models.Visit) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	row := func(label, value string) { fmt.Fprintf(w, "%s:\t%s\n", label, value) }

	row("ID", strconv.FormatUint(uint64(v.ID), 10))
	row("URL", v.VisitedURL)
	row("Visited at", v.VisitedAt.Format("2006-01-02 15:04:05"))
	row("IP address", deref(v.IPAddress))
	row("Country", v.Country)
	row("City", v.City)
	row("ISP", v.ISP)
	row("Browser", v.Browser)
	row("OS", v.OS)
	row("Device", v.Device)
	row("Screen", v.ScreenResolution)
	row("Battery", v.BatteryInfo)
	row("Last action", v.LastAction)
	row("Motion", v.MotionStatus)
	row("Location", deref(v.Geolocation))
	row("Status", visitStatus(v))
	if v.Closed() {
		row("Left at", v.LeftAt.Format("2006-01-02 15:04:05"))
		row("Duration", fmt.Sprintf("%ds", v.DurationSeconds))
	}
	w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func init() {
	cmd.RootCmd.AddCommand(ShowCmd)
}
