package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/axellelanca/visittracker/cmd"
	"github.com/axellelanca/visittracker/internal/models"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/services"
	"github.com/spf13/cobra"
)

// VisitorsCmd représente la commande 'visitors'
var VisitorsCmd = &cobra.Command{
	Use:   "visitors",
	Short: "Lists recorded visits, most recent first.",
	RunE: func(command *cobra.Command, args []string) error {
		db, repo, err := cmd.OpenDatabase(cmd.Cfg)
		if err != nil {
			return err
		}
		defer repository.Close(db)

		visitService := services.NewVisitService(repo, nil, nil)
		visits, err := visitService.List(command.Context())
		if err != nil {
			return err
		}

		printVisits(command.OutOrStdout(), visits)
		return nil
	},
}

func printVisits(out io.Writer, visits []models.Visit) {
	if len(visits) == 0 {
		fmt.Fprintln(out, "No visits recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVISITED AT\tURL\tCOUNTRY\tISP\tDEVICE\tACTION\tSTATUS\tDURATION")
	for _, v := range visits {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%ds\n",
			v.ID,
			v.VisitedAt.Format("2006-01-02 15:04:05"),
			v.VisitedURL,
			v.Country,
			v.ISP,
			v.Device,
			v.LastAction,
			visitStatus(&v),
			v.DurationSeconds,
		)
	}
	w.Flush()
}

func visitStatus(v *models.Visit) string {
	if v.Closed() {
		return "closed"
	}
	return "open"
}

func init() {
	cmd.RootCmd.AddCommand(VisitorsCmd)
}
