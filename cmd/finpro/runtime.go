package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/rafhmansano/finpro/internal/classifier"
	"github.com/rafhmansano/finpro/internal/config"
	"github.com/rafhmansano/finpro/internal/database"
	"github.com/rafhmansano/finpro/internal/portfolio"
	"github.com/rafhmansano/finpro/internal/quote"
	"github.com/rafhmansano/finpro/internal/snapshot"
	"github.com/rafhmansano/finpro/internal/store"
	"github.com/rafhmansano/finpro/internal/valuation"
)

// runtime wires the services every command needs on top of one record store.
type runtime struct {
	cfg       config.Config
	store     store.Store
	quoteRepo quote.Repository
	snapRepo  snapshot.Repository
	quotes    *quote.Service
	portfolio *portfolio.Service
	snapshots *snapshot.Service
	close     func()
}

// openRuntime uses PostgreSQL when DATABASE_URL is set and the local SQLite
// file otherwise.
func openRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return nil, err
		}
		rt.store = store.NewPgStore(pool)
		rt.quoteRepo = quote.NewPgRepository(pool)
		rt.snapRepo = snapshot.NewPgRepository(pool)
		rt.close = pool.Close
		slog.Debug("using PostgreSQL store")
	} else {
		st, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		rt.store = st
		rt.quoteRepo = st
		rt.snapRepo = st.Snapshots()
		rt.close = func() {
			if err := st.Close(); err != nil {
				slog.Warn("closing sqlite store", "error", err)
			}
		}
		slog.Debug("using SQLite store", "path", cfg.SQLitePath)
	}

	var fetcher quote.Fetcher
	if cfg.QuoteURLTemplate != "" {
		fetcher = quote.NewClient(cfg.QuoteURLTemplate, cfg.QuotePricePath, cfg.QuoteAPIToken,
			cfg.QuoteRetryBaseDelay, cfg.QuoteRetryMax)
	}
	rt.quotes = quote.NewService(fetcher, rt.quoteRepo, cfg.QuoteStaleThreshold, cfg.ValuationConcurrency)

	rt.portfolio = portfolio.NewService(
		rt.store,
		rt.quotes,
		valuation.NewEngine(policy.Valuation),
		classifier.New(policy.Classifier),
		portfolio.Options{
			DividendWindowMonths: cfg.DividendWindowMonths,
			Concurrency:          cfg.ValuationConcurrency,
		},
	)
	rt.snapshots = snapshot.NewService(rt.portfolio, rt.snapRepo)
	return rt, nil
}

// withRuntime opens the runtime for the duration of fn.
func withRuntime(ctx context.Context, cfg config.Config, fn func(*runtime) error) error {
	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(rt)
}
