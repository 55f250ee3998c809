package main

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

	"github.com/aretw0/signoff"
	"github.com/aretw0/signoff/internal/presentation/tui"
	httpAdapter "github.com/aretw0/signoff/pkg/adapters/http"
	"github.com/aretw0/signoff/pkg/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the approval engine as a JSON API over HTTP.
Workflow files are re-read on every request, so edits in the workflow
directory take effect without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		logger := rt.Logger

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithIdempotencyTTL(cfg.HTTP.IdempotencyTTL),
		}
		if rt.Registry != nil {
			opts = append(opts, httpAdapter.WithMetricsHandler(promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{})))
		} else {
			opts = append(opts, httpAdapter.WithMetricsHandler(http.NotFoundHandler()))
		}

		tui.PrintBanner(cmd.OutOrStdout(), signoff.Version)

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           httpAdapter.NewHandler(rt.Engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if w, ok := rt.Workflows.(ports.Watchable); ok {
			go logWorkflowChanges(ctx, w, logger)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting signoff server",
				"address", srv.Addr,
				"workflows", cfg.Workflows.Dir,
				"store", cfg.Store.Driver,
			)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("close server: %w", err)
				}
			}
			logger.Info("signoff server stopped gracefully")
			return nil
		}
	},
}

func logWorkflowChanges(ctx context.Context, w ports.Watchable, logger *slog.Logger) {
	changes, err := w.Watch(ctx)
	if err != nil {
		logger.Warn("workflow watch unavailable", "error", err)
		return
	}
	for id := range changes {
		logger.Info("workflow changed", "workflow_id", id)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from http.addr)")
	if err := settings.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}
