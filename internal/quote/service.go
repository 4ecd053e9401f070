// Package quote resolves current prices: an in-memory TTL cache in front of
// persisted quotes, refreshed from an HTTP provider when stale.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

// Fetcher retrieves a live price from a provider.
type Fetcher interface {
	FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// Service resolves prices for tickers.
type Service struct {
	fetcher     Fetcher
	repo        Repository
	cache       *priceCache
	staleAfter  time.Duration
	concurrency int
}

// NewService creates a quote service. fetcher may be nil, in which case only
// stored quotes are served.
func NewService(fetcher Fetcher, repo Repository, staleAfter time.Duration, concurrency int) *Service {
	if repo == nil {
		panic("quote.NewService: repo must not be nil")
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		fetcher:     fetcher,
		repo:        repo,
		cache:       newPriceCache(defaultCacheTTL),
		staleAfter:  staleAfter,
		concurrency: concurrency,
	}
}

// LookupPrice returns the current price of ticker. ok is false when no price
// is known. A stale stored quote is served when the provider fails.
func (s *Service) LookupPrice(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	ticker = domain.NormalizeTicker(ticker)
	if price, ok := s.cache.get(ticker); ok {
		return price, true, nil
	}

	stored, err := s.repo.GetQuote(ctx, ticker)
	hasStored := err == nil && stored.Price.IsPositive()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return decimal.Zero, false, fmt.Errorf("loading quote for %s: %w", ticker, err)
	}
	if hasStored && (s.fetcher == nil || time.Since(stored.UpdatedAt) < s.staleAfter) {
		s.cache.set(ticker, stored.Price)
		return stored.Price, true, nil
	}
	if s.fetcher == nil {
		return decimal.Zero, false, nil
	}

	price, err := s.fetcher.FetchPrice(ctx, ticker)
	if err != nil {
		if ctx.Err() != nil {
			return decimal.Zero, false, ctx.Err()
		}
		if hasStored {
			slog.Warn("quote refresh failed, serving stored quote", "ticker", ticker, "updatedAt", stored.UpdatedAt, "error", err)
			s.cache.set(ticker, stored.Price)
			return stored.Price, true, nil
		}
		if errors.Is(err, ErrNoQuote) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("fetching quote for %s: %w", ticker, err)
	}

	if err := s.repo.SaveQuote(ctx, ticker, price); err != nil {
		slog.Warn("failed to store quote", "ticker", ticker, "error", err)
	}
	s.cache.set(ticker, price)
	return price, true, nil
}

// Prices resolves a price for each ticker concurrently. Tickers without a
// price are absent from the result; lookup failures are logged.
func (s *Service) Prices(ctx context.Context, tickers []string) map[string]decimal.Decimal {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = make(map[string]decimal.Decimal, len(tickers))
	)
	sem := make(chan struct{}, s.concurrency)

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			price, ok, err := s.LookupPrice(ctx, ticker)
			if err != nil {
				slog.Warn("price lookup failed", "ticker", ticker, "error", err)
				return
			}
			if !ok {
				return
			}
			mu.Lock()
			result[domain.NormalizeTicker(ticker)] = price
			mu.Unlock()
		}(ticker)
	}

	wg.Wait()
	return result
}

// FetchAndStoreQuotes fetches fresh prices for tickers and stores them.
// Individual failures are logged; an error is returned only when every fetch failed.
func (s *Service) FetchAndStoreQuotes(ctx context.Context, tickers []string) error {
	if s.fetcher == nil {
		return errors.New("no quote provider configured")
	}
	if len(tickers) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		stored  int
		lastErr error
	)
	sem := make(chan struct{}, s.concurrency)

	for _, ticker := range tickers {
		ticker = domain.NormalizeTicker(ticker)
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			price, err := s.fetcher.FetchPrice(ctx, ticker)
			if err == nil {
				err = s.repo.SaveQuote(ctx, ticker, price)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("failed to refresh quote", "ticker", ticker, "error", err)
				lastErr = err
				return
			}
			s.cache.set(ticker, price)
			stored++
		}()
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if stored == 0 && lastErr != nil {
		return fmt.Errorf("refreshing quotes: %w", lastErr)
	}
	slog.Info("quotes refreshed", "stored", stored, "total", len(tickers))
	return nil
}

// Quotes returns every stored quote.
func (s *Service) Quotes(ctx context.Context) ([]Quote, error) {
	return s.repo.GetAllQuotes(ctx)
}
