package domain

import "github.com/shopspring/decimal"

// Recommendation is the signal derived from the margin of safety.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationHold Recommendation = "HOLD"
	RecommendationSell Recommendation = "SELL"
)

// Valuation model identifiers.
const (
	ModelGraham           = "graham"
	ModelDividendYield    = "dividend_yield"
	ModelPassThrough      = "pass_through"
	ModelDividendDiscount = "dividend_discount"
)

// Fundamentals are the per-share inputs of the valuation models.
// Zero means "not reported".
type Fundamentals struct {
	Ticker                string          `json:"ticker"`
	EPS                   decimal.Decimal `json:"eps"`
	BookValuePerShare     decimal.Decimal `json:"bookValuePerShare"`
	DividendPerShare      decimal.Decimal `json:"dividendPerShare"`
	TrailingDividendYield decimal.Decimal `json:"trailingDividendYield"`
	GrowthRate            decimal.Decimal `json:"growthRate"`
	DiscountRate          decimal.Decimal `json:"discountRate"`
}

// ValuationResult is the fair-value estimate for one ticker.
type ValuationResult struct {
	Ticker         string          `json:"ticker"`
	Class          AssetClass      `json:"class"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	IntrinsicValue decimal.Decimal `json:"intrinsicValue"`
	MarginPercent  decimal.Decimal `json:"marginPercent"`
	Recommendation Recommendation  `json:"recommendation"`
	ModelUsed      string          `json:"modelUsed"`
}

// SkippedValuation records a ticker that could not be valued and why.
type SkippedValuation struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// ValuationSummary reports batch completeness.
type ValuationSummary struct {
	Valued  int    `json:"valued"`
	Total   int    `json:"total"`
	Skipped int    `json:"skipped"`
	Message string `json:"message"`
}
