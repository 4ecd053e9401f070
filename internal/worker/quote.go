// Package worker runs the periodic background jobs of the server.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteRefresher refreshes the stored quote of every ticker some user holds
// and reports how many tickers it covered.
type QuoteRefresher interface {
	RefreshHeldQuotes(ctx context.Context) (int, error)
}

// QuoteWorker keeps held-ticker quotes fresh so valuations rarely wait on the provider.
type QuoteWorker struct {
	refresher QuoteRefresher
	interval  time.Duration
}

// NewQuoteWorker creates a QuoteWorker.
func NewQuoteWorker(refresher QuoteRefresher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		refresher: refresher,
		interval:  interval,
	}
}

func (w *QuoteWorker) refresh(ctx context.Context, phase string) {
	start := time.Now()
	n, err := w.refresher.RefreshHeldQuotes(ctx)
	if err != nil {
		slog.Error("QuoteWorker: "+phase+" failed", "tickers", n, "error", err)
		return
	}
	if n == 0 {
		slog.Info("QuoteWorker: no held tickers to refresh")
		return
	}
	slog.Info("QuoteWorker: "+phase+" completed", "tickers", n, "elapsed", time.Since(start))
}

// Run refreshes once, then on every tick until ctx is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	w.refresh(ctx, "initial refresh")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx, "refresh")
		}
	}
}
