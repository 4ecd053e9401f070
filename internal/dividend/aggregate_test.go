package dividend

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafhmansano/finpro/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func sampleEvents() []domain.DividendEvent {
	return []domain.DividendEvent{
		{ID: "1", Ticker: "TAEE11", Category: domain.DividendCategoryDividend, Amount: d("10"), PaidOn: date(2023, 12, 15)},
		{ID: "2", Ticker: "HGLG11", Category: domain.DividendCategoryFundDistribution, Amount: d("5"), PaidOn: date(2024, 1, 14)},
		{ID: "3", Ticker: "HGLG11", Category: domain.DividendCategoryFundDistribution, Amount: d("5"), PaidOn: date(2024, 3, 14)},
		{ID: "4", Ticker: "ITSA4", Category: domain.DividendCategoryInterestOnEquity, Amount: d("2.5"), PaidOn: date(2024, 3, 1)},
	}
}

func TestAggregateRollups(t *testing.T) {
	s := Aggregate(sampleEvents(), date(2024, 3, 31), 12)

	assert.True(t, s.Total.Equal(d("22.5")))
	assert.True(t, s.ByTicker["HGLG11"].Equal(d("10")))
	assert.True(t, s.ByYear[2023].Equal(d("10")))
	assert.True(t, s.ByYear[2024].Equal(d("12.5")))
	assert.True(t, s.ByMonth["2024-03"].Equal(d("7.5")))
	assert.True(t, s.ByAssetClass[domain.AssetClassEquity].Equal(d("12.5")), "TAEE11 is a unit, ITSA4 an ordinary share")
	assert.True(t, s.ByAssetClass[domain.AssetClassIncomeTrust].Equal(d("10")))
	assert.True(t, s.ByCategory[domain.DividendCategoryInterestOnEquity].Equal(d("2.5")))
	assert.Equal(t, 4, s.EventCount)
}

func TestAggregateDedupesByID(t *testing.T) {
	events := sampleEvents()
	events = append(events, events[1])

	s := Aggregate(events, date(2024, 3, 31), 3)
	assert.Equal(t, 1, s.Duplicates)
	assert.True(t, s.Total.Equal(d("22.5")))
}

func TestAggregateSameContentDifferentIDCountsTwice(t *testing.T) {
	ev := domain.DividendEvent{ID: "a", Ticker: "BBAS3", Category: domain.DividendCategoryDividend, Amount: d("1"), PaidOn: date(2024, 1, 1)}
	twin := ev
	twin.ID = "b"

	s := Aggregate([]domain.DividendEvent{ev, twin}, date(2024, 1, 31), 1)
	assert.True(t, s.Total.Equal(d("2")))
	assert.Zero(t, s.Duplicates)
}

func TestAggregateEventsWithoutIDAllCount(t *testing.T) {
	events := []domain.DividendEvent{
		{Ticker: "BBAS3", Category: domain.DividendCategoryDividend, Amount: d("1.00"), PaidOn: date(2024, 2, 1)},
		{Ticker: "ITSA4", Category: domain.DividendCategoryDividend, Amount: d("7.00"), PaidOn: date(2024, 2, 1)},
		{Ticker: "ITSA4", Category: domain.DividendCategoryDividend, Amount: d("7.00"), PaidOn: date(2024, 2, 1)},
	}

	s := Aggregate(events, date(2024, 2, 29), 12)

	assert.True(t, s.Total.Equal(d("15")), "total = %s", s.Total)
	assert.Equal(t, 3, s.EventCount)
	assert.Equal(t, 0, s.Duplicates)
	assert.True(t, s.ByTicker["ITSA4"].Equal(d("14")))
}

func TestTrailingWindowZeroFilled(t *testing.T) {
	s := Aggregate(sampleEvents(), date(2024, 3, 10), 4)

	require.Len(t, s.Trailing, 4)
	months := []string{}
	for _, m := range s.Trailing {
		months = append(months, m.Month)
	}
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-02", "2024-03"}, months)
	assert.True(t, s.Trailing[2].Total.IsZero())
	assert.True(t, s.Trailing[3].Total.Equal(d("7.5")))
	assert.True(t, s.TrailingTotal.Equal(d("22.5")))
	assert.True(t, s.MonthlyAverage.Equal(d("5.625")))
	assert.True(t, s.MonthlyMedian.Equal(d("6.25")))
}

func TestTrailingWindowAcrossYearBoundary(t *testing.T) {
	buckets := Trailing(map[string]decimal.Decimal{}, date(2024, 1, 31), 3)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2023-11", buckets[0].Month)
	assert.Equal(t, "2024-01", buckets[2].Month)
}

func TestTrailingWindowEmpty(t *testing.T) {
	assert.Empty(t, Trailing(nil, date(2024, 1, 1), 0))

	s := Aggregate(nil, date(2024, 1, 1), 6)
	assert.Len(t, s.Trailing, 6)
	assert.True(t, s.Total.IsZero())
	assert.True(t, s.MonthlyAverage.IsZero())
}

func TestWithClassifier(t *testing.T) {
	s := Aggregate(sampleEvents(), date(2024, 3, 31), 1, WithClassifier(func(string) domain.AssetClass {
		return domain.AssetClassFixedIncome
	}))
	assert.True(t, s.ByAssetClass[domain.AssetClassFixedIncome].Equal(d("22.5")))
	assert.Len(t, s.ByAssetClass, 1)
}

func TestGoalProgress(t *testing.T) {
	s := domain.DividendSummary{MonthlyAverage: d("150")}

	p := GoalProgress(s, d("300"))
	assert.True(t, p.Percent.Equal(d("50")))
	assert.False(t, p.Reached)

	p = GoalProgress(s, d("100"))
	assert.True(t, p.Reached)

	p = GoalProgress(s, decimal.Zero)
	assert.True(t, p.Percent.IsZero())
	assert.False(t, p.Reached)
}

func TestMedian(t *testing.T) {
	assert.True(t, Median([]decimal.Decimal{d("3"), d("1"), d("2")}).Equal(d("2")))
	assert.True(t, Median([]decimal.Decimal{d("4"), d("1"), d("2"), d("3")}).Equal(d("2.5")))
	assert.True(t, Median(nil).IsZero())
}
