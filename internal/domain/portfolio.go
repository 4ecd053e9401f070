package domain

import "github.com/shopspring/decimal"

// PriceSource tells where a position's current price came from.
type PriceSource string

const (
	PriceSourceQuote    PriceSource = "quote"
	PriceSourceFallback PriceSource = "fallback"
)

// Position is the derived holding for one ticker.
// Quantity * AverageCost equals TotalCostBasis up to decimal rounding.
type Position struct {
	Ticker          string          `json:"ticker"`
	Class           AssetClass      `json:"class"`
	Quantity        decimal.Decimal `json:"quantity"`
	AverageCost     decimal.Decimal `json:"averageCost"`
	TotalCostBasis  decimal.Decimal `json:"totalCostBasis"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	PriceSource     PriceSource     `json:"priceSource"`
	MarketValue     decimal.Decimal `json:"marketValue"`
	GainLoss        decimal.Decimal `json:"gainLoss"`
	GainLossPercent decimal.Decimal `json:"gainLossPercent"`
	TradeCount      int             `json:"tradeCount"`
}

// IsOpen reports whether the position still holds shares.
func (p Position) IsOpen() bool {
	return p.Quantity.IsPositive()
}

// Totals aggregates market value and cost over a set of holdings.
type Totals struct {
	Count           int             `json:"count"`
	MarketValue     decimal.Decimal `json:"marketValue"`
	CostBasis       decimal.Decimal `json:"costBasis"`
	GainLoss        decimal.Decimal `json:"gainLoss"`
	GainLossPercent decimal.Decimal `json:"gainLossPercent"`
}

// Allocation is the share of market value held in one asset class.
type Allocation struct {
	Class       AssetClass      `json:"class"`
	MarketValue decimal.Decimal `json:"marketValue"`
	Percent     decimal.Decimal `json:"percent"`
}
