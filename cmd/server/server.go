package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/axellelanca/visittracker/cmd"
	"github.com/axellelanca/visittracker/internal/api"
	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/axellelanca/visittracker/internal/monitor"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/services"
	"github.com/axellelanca/visittracker/internal/useragent"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the visit tracking API server and the background monitor.",
	Long: `This command opens the database, migrates the visitors table,
configures the API routes, starts the enrichment service monitor
and then serves HTTP until SIGINT or SIGTERM.`,
	RunE: func(command *cobra.Command, args []string) error {
		cfg := cmd.Cfg

		ctx, stop := signal.NotifyContext(command.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Initialiser la base de données
		db, repo, err := cmd.OpenDatabase(cfg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer func() {
			if err := repository.Close(db); err != nil {
				logging.Error().Err(err).Msg("Failed to close database")
			}
		}()

		adminService := services.NewAdminService(repo, cfg.Admin.EnableReset)
		if err := adminService.Migrate(ctx); err != nil {
			return err
		}

		geoClient := cmd.NewGeoClient(cfg)
		visitService := services.NewVisitService(repo, geoClient, useragent.NewUAPParser())
		logging.Info().Str("db_driver", cfg.Database.Driver).Msg("Services initialized")

		// Initialiser et lancer le moniteur du service de géolocalisation.
		if interval := cfg.MonitorInterval(); interval > 0 {
			enrichmentMonitor := monitor.NewEnrichmentMonitor(interval, geoClient.BaseURL())
			go enrichmentMonitor.Start(ctx)
		} else {
			logging.Info().Msg("[MONITOR] Enrichment monitor disabled")
		}

		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery(), api.RequestID(), api.RequestLogger())
		api.SetupRoutes(router, visitService, adminService)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Démarrer le serveur dans une goroutine pour ne pas bloquer.
		serverErr := make(chan error, 1)
		go func() {
			logging.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		// Arrêt propre du serveur HTTP avec un timeout.
		logging.Info().Dur("timeout", cfg.ShutdownTimeout()).Msg("Shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		logging.Info().Msg("Server stopped cleanly")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
