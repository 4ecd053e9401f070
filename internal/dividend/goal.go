package dividend

import (
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

// Progress compares trailing monthly income with a monthly target.
type Progress struct {
	Goal           decimal.Decimal `json:"goal"`
	MonthlyAverage decimal.Decimal `json:"monthlyAverage"`
	Percent        decimal.Decimal `json:"percent"`
	Reached        bool            `json:"reached"`
}

// GoalProgress reports how far the trailing monthly average is from monthlyGoal.
// A non-positive goal yields zero percent and is never reached.
func GoalProgress(s domain.DividendSummary, monthlyGoal decimal.Decimal) Progress {
	p := Progress{Goal: monthlyGoal, MonthlyAverage: s.MonthlyAverage, Percent: decimal.Zero}
	if !monthlyGoal.IsPositive() {
		return p
	}
	p.Percent = domain.Percent(s.MonthlyAverage, monthlyGoal)
	p.Reached = s.MonthlyAverage.GreaterThanOrEqual(monthlyGoal)
	return p
}
