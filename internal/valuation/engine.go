package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

// Engine values positions under a fixed Policy. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine creates an Engine.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Valuate values one position. It returns ErrNotValued, ErrNoFundamentals or
// ErrNoPrice (possibly wrapped) when the ticker has to be skipped.
func (e *Engine) Valuate(ctx context.Context, pos domain.Position, lookup PriceLookup, f *domain.Fundamentals) (domain.ValuationResult, error) {
	res, _, err := e.valuate(ctx, pos, lookup, f)
	return res, err
}

func (e *Engine) valuate(ctx context.Context, pos domain.Position, lookup PriceLookup, f *domain.Fundamentals) (domain.ValuationResult, *domain.Warning, error) {
	switch pos.Class {
	case domain.AssetClassFixedIncome:
		return domain.ValuationResult{}, nil, ErrNotValued
	case domain.AssetClassEquity, domain.AssetClassIncomeTrust:
		if f == nil {
			return domain.ValuationResult{}, nil, ErrNoFundamentals
		}
	}

	price, ok, err := lookup.LookupPrice(ctx, pos.Ticker)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ValuationResult{}, nil, ctxErr
		}
		return domain.ValuationResult{}, nil, fmt.Errorf("%w: %v", ErrNoPrice, err)
	}
	if !ok {
		return domain.ValuationResult{}, nil, ErrNoPrice
	}

	p := price.InexactFloat64()
	intrinsic, model, err := e.policy.intrinsic(pos.Class, p, f)
	if err != nil {
		return domain.ValuationResult{}, nil, err
	}

	margin, rec, coerced := e.policy.Score(p, intrinsic)
	var warning *domain.Warning
	if coerced {
		slog.Warn("non-finite valuation coerced to HOLD", "ticker", pos.Ticker, "model", model)
		warning = &domain.Warning{
			Kind:    domain.WarningNonFinite,
			Ticker:  pos.Ticker,
			Message: fmt.Sprintf("%s model produced a non-finite value", model),
		}
		intrinsic = 0
	}

	return domain.ValuationResult{
		Ticker:         pos.Ticker,
		Class:          pos.Class,
		CurrentPrice:   price,
		IntrinsicValue: decimal.NewFromFloat(intrinsic),
		MarginPercent:  decimal.NewFromFloat(margin),
		Recommendation: rec,
		ModelUsed:      model,
	}, warning, nil
}

// skipWarning maps a skip error to the warning surfaced with the batch.
func skipWarning(ticker string, err error) domain.Warning {
	kind := domain.WarningNotValued
	switch {
	case errors.Is(err, ErrNoPrice):
		kind = domain.WarningMissingPrice
	case errors.Is(err, ErrNoFundamentals):
		kind = domain.WarningMissingFundamentals
	}
	return domain.Warning{Kind: kind, Ticker: ticker, Message: err.Error()}
}

// IsSkip reports whether err only means "leave this ticker out".
func IsSkip(err error) bool {
	return errors.Is(err, ErrNoPrice) || errors.Is(err, ErrNoFundamentals) || errors.Is(err, ErrNotValued)
}
