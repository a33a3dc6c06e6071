package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/cautela/internal/api"
	"github.com/erazemk/cautela/internal/store"
	"github.com/erazemk/cautela/internal/summary"
	"github.com/erazemk/cautela/internal/syncer"
)

type serveOptions struct {
	Addr         string
	SyncInterval time.Duration
	OpenAIKey    string
	CORSOrigins  []string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.OpenAIKey == "" {
				opts.OpenAIKey = os.Getenv("CAUTELA_OPENAI_KEY")
			}
			return runServe(cmd.Context(), root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Addr, "addr", "a", ":8080", "listen address")
	f.DurationVar(&opts.SyncInterval, "sync-interval", syncer.DefaultInterval, "periodic background sync interval")
	f.StringVar(&opts.OpenAIKey, "openai-key", "", "OpenAI API key for pending summaries (env CAUTELA_OPENAI_KEY)")
	f.StringSliceVar(&opts.CORSOrigins, "cors-origin", nil, "allowed CORS origins (default: any)")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, root)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	jwtSecret, err := store.GetJWTSecret(ctx, a.DB)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		return err
	}

	// Initial load; units that fail fall back to their cache.
	if err := a.Units.SyncAll(ctx, syncer.ModeBackground); err != nil {
		slog.Warn("initial sync incomplete", "error", err)
	}

	scheduler := syncer.NewScheduler(opts.SyncInterval)
	a.Units.Schedule(scheduler)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr: opts.Addr,
		Handler: api.NewRouter(api.Config{
			DB:          a.DB,
			JWTSecret:   jwtSecret,
			Units:       a.Units,
			Summarizer:  summary.NewOpenAI(opts.OpenAIKey),
			CORSOrigins: opts.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", opts.Addr, "units", len(a.Units.Units()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("server stopped, flushing notifications")
	return nil
}
