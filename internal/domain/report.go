package domain

import "time"

// PortfolioReport is the full derived view of one user's portfolio.
type PortfolioReport struct {
	UserID           string             `json:"userId"`
	AsOf             time.Time          `json:"asOf"`
	Holdings         []Position         `json:"holdings"`
	Closed           []Position         `json:"closed,omitempty"`
	Totals           Totals             `json:"totals"`
	Allocation       []Allocation       `json:"allocation"`
	Valuations       []ValuationResult  `json:"valuations"`
	ValuationSummary ValuationSummary   `json:"valuationSummary"`
	Skipped          []SkippedValuation `json:"skipped,omitempty"`
	Dividends        DividendSummary    `json:"dividends"`
	Cash             []CashBalance      `json:"cash,omitempty"`
	Warnings         []Warning          `json:"warnings,omitempty"`
}
