// Package portfolio assembles a user's derived views from stored records:
// positions, valuations, dividend aggregates and cash balances.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/classifier"
	"github.com/rafhmansano/finpro/internal/dividend"
	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/ledger"
	"github.com/rafhmansano/finpro/internal/position"
	"github.com/rafhmansano/finpro/internal/valuation"
)

// Store defines the record reads the service needs.
type Store interface {
	ListUsers(ctx context.Context) ([]string, error)
	ListTradeRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error)
	ListDividendRecords(ctx context.Context, userID string) ([]ledger.RawRecord, error)
	ListAssets(ctx context.Context, userID string) ([]domain.AssetMeta, error)
	ListFundamentals(ctx context.Context) (map[string]domain.Fundamentals, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	ListCashTransactions(ctx context.Context, userID string) ([]domain.CashTransaction, error)
}

// PriceService resolves current prices.
type PriceService interface {
	valuation.PriceLookup
	Prices(ctx context.Context, tickers []string) map[string]decimal.Decimal
}

// QuoteRefresher fetches and stores fresh quotes for tickers.
type QuoteRefresher interface {
	FetchAndStoreQuotes(ctx context.Context, tickers []string) error
}

// Options tunes the service.
type Options struct {
	DividendWindowMonths int
	Concurrency          int
}

// Service derives portfolio views per user.
type Service struct {
	store      Store
	prices     PriceService
	engine     *valuation.Engine
	classifier *classifier.Classifier
	opts       Options
}

// NewService creates a portfolio Service. All dependencies are required.
func NewService(store Store, prices PriceService, engine *valuation.Engine, cls *classifier.Classifier, opts Options) *Service {
	if store == nil {
		panic("portfolio.NewService: store is nil")
	}
	if prices == nil {
		panic("portfolio.NewService: prices is nil")
	}
	if engine == nil {
		panic("portfolio.NewService: engine is nil")
	}
	if cls == nil {
		panic("portfolio.NewService: classifier is nil")
	}
	if opts.DividendWindowMonths <= 0 {
		opts.DividendWindowMonths = 12
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = valuation.DefaultConcurrency
	}
	return &Service{store: store, prices: prices, engine: engine, classifier: cls, opts: opts}
}

// Positions reconstructs the user's positions as of asOf, priced with current quotes.
func (s *Service) Positions(ctx context.Context, userID string, asOf time.Time) (position.Result, error) {
	records, err := s.store.ListTradeRecords(ctx, userID)
	if err != nil {
		return position.Result{}, fmt.Errorf("loading trades: %w", err)
	}
	assets, err := s.store.ListAssets(ctx, userID)
	if err != nil {
		return position.Result{}, fmt.Errorf("loading assets: %w", err)
	}

	events, warnings := ledger.ReadTrades(records)
	events = lo.Filter(events, func(ev domain.TradeEvent, _ int) bool { return !ev.OccurredAt.After(asOf) })

	// Price only tickers that can end up held.
	tickers := lo.Uniq(append(
		lo.Map(events, func(ev domain.TradeEvent, _ int) string { return domain.NormalizeTicker(ev.Ticker) }),
		lo.FilterMap(assets, func(a domain.AssetMeta, _ int) (string, bool) {
			return domain.NormalizeTicker(a.Ticker), a.HasOpeningHolding()
		})...,
	))
	prices := s.prices.Prices(ctx, tickers)
	if err := ctx.Err(); err != nil {
		return position.Result{}, err
	}

	result := position.Reconstruct(events, assets, position.Options{
		Prices:   prices,
		Classify: s.classifier.ClassifyAsset,
	})
	result.Warnings = append(warnings, result.Warnings...)
	for _, p := range result.Holdings {
		if p.PriceSource == domain.PriceSourceFallback {
			result.Warnings = append(result.Warnings, domain.Warning{
				Kind:    domain.WarningMissingPrice,
				Ticker:  p.Ticker,
				Message: "no current quote; valued at average cost",
			})
		}
	}
	return result, nil
}

// Valuations values the user's open positions.
func (s *Service) Valuations(ctx context.Context, userID string, asOf time.Time) (valuation.Batch, error) {
	positions, err := s.Positions(ctx, userID, asOf)
	if err != nil {
		return valuation.Batch{}, err
	}
	return s.valuate(ctx, positions.Holdings)
}

func (s *Service) valuate(ctx context.Context, holdings []domain.Position) (valuation.Batch, error) {
	fundamentals, err := s.store.ListFundamentals(ctx)
	if err != nil {
		return valuation.Batch{}, fmt.Errorf("loading fundamentals: %w", err)
	}
	batch, err := s.engine.ValuateAll(ctx, holdings, s.prices, fundamentals, s.opts.Concurrency)
	if err != nil {
		return valuation.Batch{}, fmt.Errorf("valuing positions: %w", err)
	}
	return batch, nil
}

// Dividends aggregates the user's dividend receipts up to ref. months <= 0
// uses the configured trailing window.
func (s *Service) Dividends(ctx context.Context, userID string, ref time.Time, months int) (domain.DividendSummary, []domain.Warning, error) {
	if months <= 0 {
		months = s.opts.DividendWindowMonths
	}
	records, err := s.store.ListDividendRecords(ctx, userID)
	if err != nil {
		return domain.DividendSummary{}, nil, fmt.Errorf("loading dividends: %w", err)
	}
	assets, err := s.store.ListAssets(ctx, userID)
	if err != nil {
		return domain.DividendSummary{}, nil, fmt.Errorf("loading assets: %w", err)
	}

	events, warnings := ledger.ReadDividends(records)
	events = lo.Filter(events, func(ev domain.DividendEvent, _ int) bool { return !ev.PaidOn.After(ref) })

	summary := dividend.Aggregate(events, ref, months, dividend.WithClassifier(s.classifier.ForTickers(assets)))
	return summary, warnings, nil
}

// Cash returns per-account balances from transactions up to asOf.
func (s *Service) Cash(ctx context.Context, userID string, asOf time.Time) ([]domain.CashBalance, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	txs, err := s.store.ListCashTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cash transactions: %w", err)
	}
	txs = lo.Filter(txs, func(t domain.CashTransaction, _ int) bool { return !t.OccurredAt.After(asOf) })
	return domain.CashBalances(accounts, txs), nil
}

// Report builds the full portfolio report for userID as of asOf.
func (s *Service) Report(ctx context.Context, userID string, asOf time.Time) (domain.PortfolioReport, error) {
	positions, err := s.Positions(ctx, userID, asOf)
	if err != nil {
		return domain.PortfolioReport{}, err
	}
	batch, err := s.valuate(ctx, positions.Holdings)
	if err != nil {
		return domain.PortfolioReport{}, err
	}
	dividends, divWarnings, err := s.Dividends(ctx, userID, asOf, 0)
	if err != nil {
		return domain.PortfolioReport{}, err
	}
	cash, err := s.Cash(ctx, userID, asOf)
	if err != nil {
		return domain.PortfolioReport{}, err
	}

	warnings := append(append(append([]domain.Warning{}, positions.Warnings...), batch.Warnings...), divWarnings...)

	return domain.PortfolioReport{
		UserID:           userID,
		AsOf:             asOf,
		Holdings:         positions.Holdings,
		Closed:           positions.Closed,
		Totals:           position.Summarize(positions.Holdings),
		Allocation:       position.Allocate(positions.Holdings),
		Valuations:       batch.Results,
		ValuationSummary: batch.Summary(),
		Skipped:          batch.Skipped,
		Dividends:        dividends,
		Cash:             cash,
		Warnings:         warnings,
	}, nil
}

// HeldTickers returns every ticker currently held by any user.
func (s *Service) HeldTickers(ctx context.Context) ([]string, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	var tickers []string
	for _, user := range users {
		records, err := s.store.ListTradeRecords(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("loading trades for %s: %w", user, err)
		}
		assets, err := s.store.ListAssets(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("loading assets for %s: %w", user, err)
		}
		events, _ := ledger.ReadTrades(records)
		// Prices are irrelevant here; the fallback avoids any lookup.
		result := position.Reconstruct(events, assets, position.Options{Classify: s.classifier.ClassifyAsset})
		tickers = append(tickers, lo.Map(result.Holdings, func(p domain.Position, _ int) string { return p.Ticker })...)
	}
	return lo.Uniq(tickers), nil
}

// QuoteJob refreshes quotes for every held ticker. It adapts the service to
// the quote worker.
type QuoteJob struct {
	portfolio *Service
	quotes    QuoteRefresher
}

// NewQuoteJob creates a QuoteJob.
func NewQuoteJob(portfolio *Service, quotes QuoteRefresher) *QuoteJob {
	return &QuoteJob{portfolio: portfolio, quotes: quotes}
}

// RefreshHeldQuotes refreshes quotes for all held tickers and returns how many there were.
func (j *QuoteJob) RefreshHeldQuotes(ctx context.Context) (int, error) {
	tickers, err := j.portfolio.HeldTickers(ctx)
	if err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		return 0, nil
	}
	return len(tickers), j.quotes.FetchAndStoreQuotes(ctx, tickers)
}
