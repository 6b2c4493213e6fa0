package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Arash-Rostami/AI-Agent-sub000/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway with background maintenance and metrics",
	Long: `Run the gateway as a long-lived process: the docs watcher keeps the
knowledge base fresh, the scheduler prunes leases and idle sessions, and the
metrics endpoint serves Prometheus scrapes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.watchDocs(); err != nil {
		return err
	}
	a.sched.Start()

	var metricsSrv *http.Server
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

		go func() {
			log.Info().Str("addr", a.cfg.Metrics.Addr).Msg("Metrics listener started")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	log.Info().
		Str("provider", a.cfg.Provider.Name).
		Str("model", a.cfg.Provider.Model).
		Msg("Gateway running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics listener shutdown failed")
		}
	}
	return nil
}
