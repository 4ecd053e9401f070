package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rafhmansano/finpro/internal/api"
	"github.com/rafhmansano/finpro/internal/config"
	"github.com/rafhmansano/finpro/internal/export"
	"github.com/rafhmansano/finpro/internal/portfolio"
	"github.com/rafhmansano/finpro/internal/worker"
)

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API with the quote and report workers",
		Action: func(c *cli.Context) error {
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				return serve(c.Context, rt)
			})
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	cfg := rt.cfg

	// Start workers
	quoteWorker := worker.NewQuoteWorker(portfolio.NewQuoteJob(rt.portfolio, rt.quotes), cfg.QuoteWorkerInterval)
	go quoteWorker.Run(ctx)

	var hook worker.AfterSnapshotHook
	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentials != "" {
		sheets, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentials)
		if err != nil {
			return err
		}
		hook = export.NewService(sheets, rt.snapRepo)
		slog.Info("Google Sheets export enabled", "spreadsheet", cfg.GoogleSheetsID)
	}
	reportWorker := worker.NewReportWorker(rt.snapshots, rt.store, cfg.ReportWorkerInterval, hook)
	go reportWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate and import endpoints are unprotected")
	}

	// Start HTTP server
	srv := api.NewServer(cfg.HTTPPort, rt.portfolio, rt.snapshots, rt.store, cfg.AdminAPIKey)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
	}
	slog.Info("Shutdown complete")
	return nil
}
