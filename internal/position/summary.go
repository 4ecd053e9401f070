package position

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

// Summarize totals market value, cost and gain over the holdings.
func Summarize(holdings []domain.Position) domain.Totals {
	totals := lo.Reduce(holdings, func(acc domain.Totals, p domain.Position, _ int) domain.Totals {
		acc.Count++
		acc.MarketValue = acc.MarketValue.Add(p.MarketValue)
		acc.CostBasis = acc.CostBasis.Add(p.TotalCostBasis)
		return acc
	}, domain.Totals{MarketValue: decimal.Zero, CostBasis: decimal.Zero})

	totals.GainLoss = totals.MarketValue.Sub(totals.CostBasis)
	totals.GainLossPercent = domain.Percent(totals.GainLoss, totals.CostBasis)
	return totals
}

// Allocate splits market value by asset class. Classes with no value are omitted.
func Allocate(holdings []domain.Position) []domain.Allocation {
	total := Summarize(holdings).MarketValue
	byClass := lo.GroupBy(holdings, func(p domain.Position) domain.AssetClass { return p.Class })

	return lo.FilterMap(domain.AllAssetClasses, func(class domain.AssetClass, _ int) (domain.Allocation, bool) {
		positions, ok := byClass[class]
		if !ok {
			return domain.Allocation{}, false
		}
		mv := lo.Reduce(positions, func(sum decimal.Decimal, p domain.Position, _ int) decimal.Decimal {
			return sum.Add(p.MarketValue)
		}, decimal.Zero)
		return domain.Allocation{
			Class:       class,
			MarketValue: mv,
			Percent:     domain.Percent(mv, total),
		}, true
	})
}
