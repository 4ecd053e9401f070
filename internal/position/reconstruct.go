// Package position rebuilds holdings from the trade ledger with the
// weighted-average cost method.
package position

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/classifier"
	"github.com/rafhmansano/finpro/internal/domain"
)

// State is the running holding of one ticker during the fold.
type State struct {
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	TotalCost   decimal.Decimal
}

// Apply folds one trade into the state.
//
// BUY adds quantity*price+fees to the cost and recomputes the average.
// SELL removes quantity*average from the cost and keeps the average.
// Selling more than is held clamps the state to zero and reports oversold.
func Apply(s State, ev domain.TradeEvent) (next State, oversold bool) {
	switch ev.Side {
	case domain.SideBuy:
		total := s.TotalCost.Add(ev.Gross()).Add(ev.Fees)
		qty := s.Quantity.Add(ev.Quantity)
		return State{Quantity: qty, AverageCost: domain.SafeDiv(total, qty), TotalCost: total}, false

	case domain.SideSell:
		if ev.Quantity.GreaterThan(s.Quantity) {
			return State{Quantity: decimal.Zero, AverageCost: decimal.Zero, TotalCost: decimal.Zero}, true
		}
		qty := s.Quantity.Sub(ev.Quantity)
		total := s.TotalCost.Sub(ev.Quantity.Mul(s.AverageCost))
		if qty.IsZero() {
			total = decimal.Zero
		}
		return State{Quantity: qty, AverageCost: s.AverageCost, TotalCost: total}, false
	}
	return s, false
}

// Options controls pricing and classification of reconstructed positions.
type Options struct {
	// Prices holds current quotes by ticker. Missing or non-positive quotes use Fallback.
	Prices map[string]decimal.Decimal
	// Fallback prices a position without a quote. Defaults to the average cost.
	Fallback func(domain.Position) decimal.Decimal
	// Classify resolves the asset class. Defaults to the built-in classifier lists.
	Classify func(domain.AssetMeta) domain.AssetClass
}

// Result is the outcome of a reconstruction.
type Result struct {
	// Holdings are positions with quantity > 0, by market value desc then ticker asc.
	Holdings []domain.Position
	// Closed are positions folded down to zero, kept for audit.
	Closed   []domain.Position
	Warnings []domain.Warning
}

// Reconstruct folds the trade events of every ticker into a position.
// Events are applied in (OccurredAt, InsertionOrder) order. A ticker with no
// valid event and no opening holding yields no position.
func Reconstruct(events []domain.TradeEvent, assets []domain.AssetMeta, opts Options) Result {
	if opts.Fallback == nil {
		opts.Fallback = func(p domain.Position) decimal.Decimal { return p.AverageCost }
	}
	if opts.Classify == nil {
		opts.Classify = classifier.Default().ClassifyAsset
	}

	var result Result

	valid := lo.Filter(events, func(ev domain.TradeEvent, _ int) bool {
		if err := validate(ev); err != nil {
			slog.Warn("skipping malformed trade", "id", ev.ID, "ticker", ev.Ticker, "error", err)
			result.Warnings = append(result.Warnings, domain.Warning{
				Kind:     domain.WarningMalformed,
				Ticker:   ev.Ticker,
				RecordID: ev.ID,
				Message:  err.Error(),
			})
			return false
		}
		return true
	})

	byTicker := lo.GroupBy(valid, func(ev domain.TradeEvent) string {
		return domain.NormalizeTicker(ev.Ticker)
	})
	assetByTicker := lo.SliceToMap(assets, func(a domain.AssetMeta) (string, domain.AssetMeta) {
		a.Ticker = domain.NormalizeTicker(a.Ticker)
		return a.Ticker, a
	})

	tickers := lo.Keys(byTicker)
	for t, a := range assetByTicker {
		if _, seen := byTicker[t]; !seen && a.HasOpeningHolding() {
			tickers = append(tickers, t)
		}
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		asset, ok := assetByTicker[ticker]
		if !ok {
			asset = domain.AssetMeta{Ticker: ticker}
		}
		state, warnings := foldTicker(ticker, asset, byTicker[ticker])
		result.Warnings = append(result.Warnings, warnings...)

		pos := domain.Position{
			Ticker:         ticker,
			Class:          opts.Classify(asset),
			Quantity:       state.Quantity,
			AverageCost:    state.AverageCost,
			TotalCostBasis: state.TotalCost,
			TradeCount:     len(byTicker[ticker]),
		}
		price(&pos, opts)

		if pos.IsOpen() {
			result.Holdings = append(result.Holdings, pos)
		} else {
			result.Closed = append(result.Closed, pos)
		}
	}

	SortByMarketValue(result.Holdings)
	return result
}

func foldTicker(ticker string, asset domain.AssetMeta, events []domain.TradeEvent) (State, []domain.Warning) {
	sorted := make([]domain.TradeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
		}
		return sorted[i].InsertionOrder < sorted[j].InsertionOrder
	})

	var state State
	if asset.HasOpeningHolding() && !asset.OpeningAverageCost.IsNegative() {
		state = State{
			Quantity:    asset.OpeningQuantity,
			AverageCost: asset.OpeningAverageCost,
			TotalCost:   asset.OpeningQuantity.Mul(asset.OpeningAverageCost),
		}
	}

	var warnings []domain.Warning
	for _, ev := range sorted {
		held := state.Quantity
		var oversold bool
		state, oversold = Apply(state, ev)
		if oversold {
			msg := fmt.Sprintf("sell of %s exceeds held quantity %s, position reset to zero", ev.Quantity, held)
			slog.Warn("over-sell clamped", "ticker", ticker, "id", ev.ID, "sold", ev.Quantity.String(), "held", held.String())
			warnings = append(warnings, domain.Warning{
				Kind:     domain.WarningOversell,
				Ticker:   ticker,
				RecordID: ev.ID,
				Message:  msg,
			})
		}
	}
	return state, warnings
}

func validate(ev domain.TradeEvent) error {
	switch {
	case domain.NormalizeTicker(ev.Ticker) == "":
		return fmt.Errorf("missing ticker")
	case ev.Side != domain.SideBuy && ev.Side != domain.SideSell:
		return fmt.Errorf("unknown side %q", ev.Side)
	case !ev.Quantity.IsPositive():
		return fmt.Errorf("quantity must be positive, got %s", ev.Quantity)
	case ev.UnitPrice.IsNegative():
		return fmt.Errorf("negative unit price %s", ev.UnitPrice)
	case ev.Fees.IsNegative():
		return fmt.Errorf("negative fees %s", ev.Fees)
	}
	return nil
}

// price fills the market fields of a position.
func price(pos *domain.Position, opts Options) {
	if quote, ok := opts.Prices[pos.Ticker]; ok && quote.IsPositive() {
		pos.CurrentPrice = quote
		pos.PriceSource = domain.PriceSourceQuote
	} else {
		pos.CurrentPrice = opts.Fallback(*pos)
		pos.PriceSource = domain.PriceSourceFallback
	}
	pos.MarketValue = pos.Quantity.Mul(pos.CurrentPrice)
	pos.GainLoss = pos.MarketValue.Sub(pos.TotalCostBasis)
	pos.GainLossPercent = domain.Percent(pos.GainLoss, pos.TotalCostBasis)
}

// SortByMarketValue orders positions by market value descending, ties by ticker ascending.
func SortByMarketValue(positions []domain.Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		if c := positions[i].MarketValue.Cmp(positions[j].MarketValue); c != 0 {
			return c > 0
		}
		return positions[i].Ticker < positions[j].Ticker
	})
}
