// Package dividend rolls dividend receipts up by ticker, period, class and category.
package dividend

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/classifier"
	"github.com/rafhmansano/finpro/internal/domain"
)

type options struct {
	classify func(ticker string) domain.AssetClass
}

// Option configures Aggregate.
type Option func(*options)

// WithClassifier sets the ticker lookup used for the asset-class roll-up.
func WithClassifier(classify func(ticker string) domain.AssetClass) Option {
	return func(o *options) { o.classify = classify }
}

// Aggregate totals dividend events. Events are deduplicated by ID, keeping the
// first occurrence; two events with the same content but different IDs both
// count, and events without an ID always count. The trailing view has exactly windowMonths buckets ending with the
// calendar month of ref, oldest first, with empty months at zero.
func Aggregate(events []domain.DividendEvent, ref time.Time, windowMonths int, opts ...Option) domain.DividendSummary {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.classify == nil {
		c := classifier.Default()
		o.classify = func(ticker string) domain.AssetClass { return c.Classify(ticker, "") }
	}

	seen := make(map[string]struct{}, len(events))
	unique := lo.Filter(events, func(ev domain.DividendEvent, _ int) bool {
		if ev.ID == "" {
			return true
		}
		if _, ok := seen[ev.ID]; ok {
			return false
		}
		seen[ev.ID] = struct{}{}
		return true
	})
	duplicates := len(events) - len(unique)
	if duplicates > 0 {
		slog.Info("dropped duplicate dividend events", "count", duplicates)
	}

	s := domain.DividendSummary{
		Total:        decimal.Zero,
		ByTicker:     make(map[string]decimal.Decimal),
		ByYear:       make(map[int]decimal.Decimal),
		ByMonth:      make(map[string]decimal.Decimal),
		ByAssetClass: make(map[domain.AssetClass]decimal.Decimal),
		ByCategory:   make(map[domain.DividendCategory]decimal.Decimal),
		EventCount:   len(unique),
		Duplicates:   duplicates,
	}

	for _, ev := range unique {
		ticker := domain.NormalizeTicker(ev.Ticker)
		s.Total = s.Total.Add(ev.Amount)
		s.ByTicker[ticker] = s.ByTicker[ticker].Add(ev.Amount)
		s.ByYear[ev.PaidOn.Year()] = s.ByYear[ev.PaidOn.Year()].Add(ev.Amount)
		s.ByMonth[MonthKey(ev.PaidOn)] = s.ByMonth[MonthKey(ev.PaidOn)].Add(ev.Amount)
		class := o.classify(ticker)
		s.ByAssetClass[class] = s.ByAssetClass[class].Add(ev.Amount)
		s.ByCategory[ev.Category] = s.ByCategory[ev.Category].Add(ev.Amount)
	}

	s.Trailing = Trailing(s.ByMonth, ref, windowMonths)
	values := lo.Map(s.Trailing, func(m domain.MonthTotal, _ int) decimal.Decimal { return m.Total })
	s.TrailingTotal = Sum(values)
	s.MonthlyAverage = Mean(values)
	s.MonthlyMedian = Median(values)
	return s
}

// Trailing returns n month buckets ending with ref's month, oldest first.
func Trailing(byMonth map[string]decimal.Decimal, ref time.Time, n int) []domain.MonthTotal {
	if n <= 0 {
		return nil
	}
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)

	buckets := make([]domain.MonthTotal, 0, n)
	for i := range n {
		key := MonthKey(start.AddDate(0, i, 0))
		total, ok := byMonth[key]
		if !ok {
			total = decimal.Zero
		}
		buckets = append(buckets, domain.MonthTotal{Month: key, Total: total})
	}
	return buckets
}

// MonthKey formats the calendar month of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
