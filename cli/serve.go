package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/handlers"
	api "github.com/Dosada05/swiss-tournament/routes"
	"github.com/Dosada05/swiss-tournament/services"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

type serveOptions struct {
	port int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and live updates server",
		Long: `Serve the tournament over HTTP: read endpoints, organizer endpoints protected
by JWT (when JWT_SECRET_KEY is set) and a websocket feed of tournament events.
Periodic R2 backups run when BACKUP_INTERVAL is set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port (overrides SERVER_PORT)")
	return cmd
}

func runServe(rootOpts *RootOptions, opts *serveOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := rootOpts.newRuntime(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger
	cfg := rt.cfg

	hubDone := make(chan struct{})
	defer close(hubDone)
	go rt.hub.Run(hubDone)
	logger.Info("WebSocket Hub started")

	if cfg.BackupInterval > 0 {
		sched, err := services.StartBackupScheduler(rt.service, rt.objects, cfg.TournamentSlug, cfg.BackupInterval, logger)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to start backup scheduler", err)
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				logger.Error("failed to stop backup scheduler", slog.Any("error", err))
			}
		}()
	}

	room := brackets.RoomForTournament(cfg.TournamentSlug)
	tournamentHandler := handlers.NewTournamentHandler(rt.service, logger)
	authHandler := handlers.NewAuthHandler(cfg.AdminPasswordHash, cfg.JWTSecretKey)
	webSocketHandler := handlers.NewWebSocketHandler(rt.hub, room, rt.service, cfg.CORSAllowedOrigins, logger)

	router := chi.NewRouter()
	routeOpts := api.Options{AllowedOrigins: cfg.CORSAllowedOrigins}
	if cfg.AuthEnabled() {
		routeOpts.JWTSecret = []byte(cfg.JWTSecretKey)
	} else {
		logger.Warn("JWT_SECRET_KEY is not set: organizer endpoints are unprotected")
	}
	api.SetupRoutes(router, routeOpts, tournamentHandler, authHandler, webSocketHandler)

	port := cfg.ServerPort
	if opts.port > 0 {
		port = opts.port
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr), slog.String("store", cfg.StoreBackend))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return WrapExitError(ExitFailure, "graceful shutdown failed", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
