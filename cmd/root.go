package cmd

import (
	"fmt"
	"os"

	"github.com/axellelanca/visittracker/internal/config"
	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/spf13/cobra"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (run-server, migrate, reset, visitors, delete, lookup) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "visittracker",
	Short: "A visit telemetry ingestion service",
	Long: `A visit telemetry service that records page visits, enriches them with
geolocation, connection type and device information, and tracks each
session from enter to leave.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Set up configuration initialization to run before any command executes
	cobra.OnInitialize(initConfig)

	// Subcommands register themselves via their own init() functions
	// (see cmd/server and cmd/cli) to avoid import cycles.
}

// initConfig loads the configuration and sets up the global logger.
// Called at the beginning of every Cobra command execution.
func initConfig() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	Cfg = cfg

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
}
