// Package valuation estimates a fair value per holding and turns the margin
// of safety into a BUY/HOLD/SELL signal.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

// Skip reasons. A valuation failing with one of these is omitted, not fatal.
var (
	ErrNoPrice        = errors.New("no current price")
	ErrNoFundamentals = errors.New("no fundamentals")
	ErrNotValued      = errors.New("asset class is not valued")
)

// Policy holds the model constants and signal thresholds.
type Policy struct {
	GrahamMultiplier float64 `toml:"graham_multiplier"`
	TargetYield      float64 `toml:"target_yield"`
	BuyAbove         float64 `toml:"buy_above"`
	SellBelow        float64 `toml:"sell_below"`
	// DividendDiscount values equities without Graham inputs with the Gordon growth model.
	DividendDiscount bool    `toml:"dividend_discount"`
}

// DefaultPolicy returns the standard constants.
func DefaultPolicy() Policy {
	return Policy{
		GrahamMultiplier: 22.5,
		TargetYield:      0.08,
		BuyAbove:         15,
		SellBelow:        -10,
	}
}

// PriceLookup resolves the current price of a ticker.
// ok is false when no price is known.
type PriceLookup interface {
	LookupPrice(ctx context.Context, ticker string) (price decimal.Decimal, ok bool, err error)
}

// PriceLookupFunc adapts a function to PriceLookup.
type PriceLookupFunc func(ctx context.Context, ticker string) (decimal.Decimal, bool, error)

func (f PriceLookupFunc) LookupPrice(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	return f(ctx, ticker)
}

// GrahamNumber returns sqrt(multiplier*eps*bvps), or 0 if eps or bvps is not positive.
func GrahamNumber(multiplier, eps, bvps float64) float64 {
	if eps <= 0 || bvps <= 0 {
		return 0
	}
	return math.Sqrt(multiplier * eps * bvps)
}

// YieldValue returns price*trailingYield/targetYield.
func YieldValue(price, trailingYield, targetYield float64) float64 {
	return price * trailingYield / targetYield
}

// GordonValue returns dps*(1+g)/(r-g). The model is undefined for r <= g.
func GordonValue(dps, growth, discount float64) float64 {
	spread := discount - growth
	if spread < 0 {
		return math.NaN()
	}
	return dps * (1 + growth) / spread
}

// intrinsic selects the model for the class and evaluates it.
func (p Policy) intrinsic(class domain.AssetClass, price float64, f *domain.Fundamentals) (float64, string, error) {
	switch class {
	case domain.AssetClassIndexFund:
		return price, domain.ModelPassThrough, nil

	case domain.AssetClassIncomeTrust:
		if f == nil {
			return 0, "", ErrNoFundamentals
		}
		yield := f.TrailingDividendYield.InexactFloat64()
		if yield <= 0 && f.DividendPerShare.IsPositive() && price > 0 {
			yield = f.DividendPerShare.InexactFloat64() / price
		}
		if yield <= 0 {
			return 0, "", fmt.Errorf("%w: trailing yield unavailable", ErrNoFundamentals)
		}
		return YieldValue(price, yield, p.TargetYield), domain.ModelDividendYield, nil

	case domain.AssetClassEquity:
		if f == nil {
			return 0, "", ErrNoFundamentals
		}
		eps := f.EPS.InexactFloat64()
		bvps := f.BookValuePerShare.InexactFloat64()
		if p.DividendDiscount && (eps <= 0 || bvps <= 0) && f.DividendPerShare.IsPositive() && f.DiscountRate.IsPositive() {
			v := GordonValue(f.DividendPerShare.InexactFloat64(), f.GrowthRate.InexactFloat64(), f.DiscountRate.InexactFloat64())
			return v, domain.ModelDividendDiscount, nil
		}
		return GrahamNumber(p.GrahamMultiplier, eps, bvps), domain.ModelGraham, nil

	case domain.AssetClassFixedIncome:
		return 0, "", ErrNotValued
	}
	return 0, "", fmt.Errorf("%w: unknown class %q", ErrNotValued, class)
}

// Score computes the margin of safety and the recommendation.
// A non-finite intrinsic value or margin yields margin 0 and HOLD; coerced reports that case.
func (p Policy) Score(price, intrinsic float64) (margin float64, rec domain.Recommendation, coerced bool) {
	if !finite(intrinsic) {
		return 0, domain.RecommendationHold, true
	}
	if price <= 0 {
		return 0, domain.RecommendationHold, false
	}
	margin = (intrinsic - price) * 100 / price
	if !finite(margin) {
		return 0, domain.RecommendationHold, true
	}
	switch {
	case margin > p.BuyAbove:
		rec = domain.RecommendationBuy
	case margin < p.SellBelow:
		rec = domain.RecommendationSell
	default:
		rec = domain.RecommendationHold
	}
	return margin, rec, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
