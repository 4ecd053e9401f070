package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeEvent is a canonical, immutable trade record.
// InsertionOrder breaks ties between events with the same OccurredAt.
type TradeEvent struct {
	ID             string          `json:"id"`
	Ticker         string          `json:"ticker"`
	Side           Side            `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Fees           decimal.Decimal `json:"fees"`
	OccurredAt     time.Time       `json:"occurredAt"`
	InsertionOrder int64           `json:"insertionOrder"`
}

// Gross returns quantity * unit price, fees excluded.
func (t TradeEvent) Gross() decimal.Decimal {
	return t.Quantity.Mul(t.UnitPrice)
}
