package cli

import (
	"fmt"

	"github.com/axellelanca/visittracker/cmd"
	"github.com/axellelanca/visittracker/internal/connection"
	"github.com/spf13/cobra"
)

// LookupCmd représente la commande 'lookup'
var LookupCmd = &cobra.Command{
	Use:   "lookup [ip]",
	Short: "Runs geolocation enrichment and connection classification for one address.",
	Long: `This command queries the configured geolocation service for the given
address and prints what would be stored on a visit.

Example:
  visittracker lookup 8.8.8.8`,
	Args: cobra.ExactArgs(1),
	RunE: func(command *cobra.Command, args []string) error {
		res := cmd.NewGeoClient(cmd.Cfg).Lookup(command.Context(), args[0])
		if !res.OK() {
			return fmt.Errorf("lookup unavailable: %w", res.Reason)
		}

		out := command.OutOrStdout()
		fmt.Fprintf(out, "Country: %s\n", res.Country)
		fmt.Fprintf(out, "City:    %s\n", res.City)
		fmt.Fprintf(out, "ISP:     %s\n", connection.Annotate(res.Org))
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(LookupCmd)
}
