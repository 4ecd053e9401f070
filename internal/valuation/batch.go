package valuation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/rafhmansano/finpro/internal/domain"
)

// DefaultConcurrency bounds the number of in-flight price lookups.
const DefaultConcurrency = 4

// Outcome is the result of valuing one position. Exactly one of Result or Err is meaningful.
type Outcome struct {
	Ticker  string
	Result  domain.ValuationResult
	Warning *domain.Warning
	Err     error
}

// Batch collects the outcomes of a run.
type Batch struct {
	Results  []domain.ValuationResult
	Skipped  []domain.SkippedValuation
	Warnings []domain.Warning
	Total    int
}

// Summary reports "N of M positions valued; K skipped".
func (b Batch) Summary() domain.ValuationSummary {
	return domain.ValuationSummary{
		Valued:  len(b.Results),
		Total:   b.Total,
		Skipped: len(b.Skipped),
		Message: fmt.Sprintf("%d of %d positions valued; %d skipped", len(b.Results), b.Total, len(b.Skipped)),
	}
}

// Stream values every position concurrently and sends each outcome as soon as
// it is ready. The channel is closed after the last outcome. At most
// concurrency lookups run at once.
func (e *Engine) Stream(ctx context.Context, positions []domain.Position, lookup PriceLookup, fundamentals map[string]domain.Fundamentals, concurrency int) <-chan Outcome {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	out := make(chan Outcome, len(positions))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, pos := range positions {
		wg.Add(1)
		go func(pos domain.Position) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out <- Outcome{Ticker: pos.Ticker, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			var f *domain.Fundamentals
			if fv, ok := fundamentals[pos.Ticker]; ok {
				f = &fv
			}
			res, warning, err := e.valuate(ctx, pos, lookup, f)
			out <- Outcome{Ticker: pos.Ticker, Result: res, Warning: warning, Err: err}
		}(pos)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ValuateAll values every position and collects the outcomes. Skipped
// tickers are recorded with a warning; the remaining results are sorted by
// ticker. Any other error (including cancellation) is returned.
func (e *Engine) ValuateAll(ctx context.Context, positions []domain.Position, lookup PriceLookup, fundamentals map[string]domain.Fundamentals, concurrency int) (Batch, error) {
	batch := Batch{Total: len(positions)}
	var errs []error

	for o := range e.Stream(ctx, positions, lookup, fundamentals, concurrency) {
		switch {
		case o.Err == nil:
			batch.Results = append(batch.Results, o.Result)
			if o.Warning != nil {
				batch.Warnings = append(batch.Warnings, *o.Warning)
			}
		case IsSkip(o.Err):
			slog.Warn("skipping valuation", "ticker", o.Ticker, "reason", o.Err)
			batch.Skipped = append(batch.Skipped, domain.SkippedValuation{Ticker: o.Ticker, Reason: o.Err.Error()})
			batch.Warnings = append(batch.Warnings, skipWarning(o.Ticker, o.Err))
		default:
			errs = append(errs, fmt.Errorf("valuing %s: %w", o.Ticker, o.Err))
		}
	}

	sort.Slice(batch.Results, func(i, j int) bool { return batch.Results[i].Ticker < batch.Results[j].Ticker })
	sort.Slice(batch.Skipped, func(i, j int) bool { return batch.Skipped[i].Ticker < batch.Skipped[j].Ticker })
	sort.SliceStable(batch.Warnings, func(i, j int) bool { return batch.Warnings[i].Ticker < batch.Warnings[j].Ticker })

	if len(errs) > 0 {
		return batch, errs[0]
	}
	slog.Info("valuation batch complete", "summary", batch.Summary().Message)
	return batch, nil
}

// Recommendations groups results by signal.
func Recommendations(results []domain.ValuationResult) map[domain.Recommendation][]string {
	grouped := lo.GroupBy(results, func(r domain.ValuationResult) domain.Recommendation { return r.Recommendation })
	return lo.MapValues(grouped, func(rs []domain.ValuationResult, _ domain.Recommendation) []string {
		return lo.Map(rs, func(r domain.ValuationResult, _ int) string { return r.Ticker })
	})
}
