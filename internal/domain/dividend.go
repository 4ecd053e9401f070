package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendCategory classifies a cash distribution.
type DividendCategory string

const (
	DividendCategoryDividend         DividendCategory = "DIVIDEND"
	DividendCategoryInterestOnEquity DividendCategory = "INTEREST_ON_EQUITY"
	DividendCategoryFundDistribution DividendCategory = "FUND_DISTRIBUTION"
)

// DividendEvent is a single dividend receipt. ID is the persisted record
// identity and is the only key used for deduplication.
type DividendEvent struct {
	ID       string           `json:"id"`
	Ticker   string           `json:"ticker"`
	Category DividendCategory `json:"category"`
	Amount   decimal.Decimal  `json:"amount"`
	PaidOn   time.Time        `json:"paidOn"`
}

// MonthTotal is one calendar-month bucket of the trailing dividend view.
type MonthTotal struct {
	Month string          `json:"month"` // YYYY-MM
	Total decimal.Decimal `json:"total"`
}

// DividendSummary holds every dividend roll-up of a user.
type DividendSummary struct {
	Total          decimal.Decimal                      `json:"total"`
	ByTicker       map[string]decimal.Decimal           `json:"byTicker"`
	ByYear         map[int]decimal.Decimal              `json:"byYear"`
	ByMonth        map[string]decimal.Decimal           `json:"byMonth"`
	ByAssetClass   map[AssetClass]decimal.Decimal       `json:"byAssetClass"`
	ByCategory     map[DividendCategory]decimal.Decimal `json:"byCategory"`
	Trailing       []MonthTotal                         `json:"trailing"`
	TrailingTotal  decimal.Decimal                      `json:"trailingTotal"`
	MonthlyAverage decimal.Decimal                      `json:"monthlyAverage"`
	MonthlyMedian  decimal.Decimal                      `json:"monthlyMedian"`
	EventCount     int                                  `json:"eventCount"`
	Duplicates     int                                  `json:"duplicates"`
}
