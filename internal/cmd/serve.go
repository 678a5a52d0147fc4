package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tetherhq/tether/internal/server"
	"github.com/tetherhq/tether/internal/trigger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP dispatch API and cron schedules",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cfg, manifest, store, err := buildAgent(true)
	if err != nil {
		return err
	}
	defer closeStore(store)

	srv := server.NewServer(a,
		server.WithAuditStore(store),
		server.WithAPIKey(cfg.ServerAPIKey),
		server.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		server.WithVersion(resolvedVersion()),
	)

	scheduler := trigger.NewScheduler(a)
	if manifest != nil {
		if err := scheduler.RegisterSchedules(manifest.Schedules); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	addr := cfg.ServerAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Int("tools", a.Registry().Len()).
		Int("cron_entries", scheduler.Entries()).
		Bool("auth", cfg.ServerAPIKey != "").
		Msg("tether_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
