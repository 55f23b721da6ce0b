package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/snarg/speechscope/internal/api"
	"github.com/snarg/speechscope/internal/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	cfg, log, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	log.Info().Str("version", version).Msg("speechscope starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}
	defer a.Close()

	opts := api.ServerOptions{
		Runs:           a.orch,
		AnalyzerName:   a.analyzerName,
		ToolsAvailable: a.audio.Available,
		Version:        version,
		StartTime:      startTime,
		Log:            log.With().Str("component", "http").Logger(),
	}
	var pool *pgxpool.Pool
	if a.db != nil {
		opts.DB = a.db
		pool = a.db.Pool
	}
	if a.mqtt != nil {
		opts.MQTT = a.mqtt
	}
	prometheus.MustRegister(metrics.NewCollector(pool, a.orch))

	srv := api.NewServer(cfg, opts)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error().Err(serveErr).Msg("http server error")
		}
	}

	// In-flight runs can take minutes; give them a bounded window.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("speechscope stopped")
	return serveErr
}
