// Package export writes portfolio reports to spreadsheets: a local XLSX
// workbook or a Google Sheets document.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/snapshot"
)

// historyPeriods are the look-back windows, in days, of the change columns.
var historyPeriods = []int{7, 30, 90, 365}

// snapshotHistoryLimit bounds how many stored snapshots are scanned for changes.
const snapshotHistoryLimit = 400

// Table is one named sheet of cell rows. The first row is the header.
type Table struct {
	Name string
	Rows [][]any
}

// Changes holds the relative market value change over each look-back period.
// A nil entry means no snapshot old enough was found.
type Changes struct {
	Week    *decimal.Decimal
	Month   *decimal.Decimal
	Quarter *decimal.Decimal
	Year    *decimal.Decimal
}

// Writer writes a user's tables to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, userID string, tables []Table) error
}

// HistoryAppender is implemented by writers that keep a running history sheet.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, row []any) error
}

// Service builds tables from a report and delegates writing to a Writer.
type Service struct {
	writer    Writer
	snapshots snapshot.Repository // optional, enables the change columns
	now       func() time.Time
}

// NewService creates a new export Service. snapshots may be nil.
func NewService(writer Writer, snapshots snapshot.Repository) *Service {
	if writer == nil {
		panic("export.NewService: writer is nil")
	}
	return &Service{
		writer:    writer,
		snapshots: snapshots,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export writes the report tables and, when the writer supports it, appends
// one history row. Implements worker.AfterSnapshotHook.
func (s *Service) Export(ctx context.Context, report domain.PortfolioReport) error {
	changes := s.changes(ctx, report)

	if err := s.writer.Write(ctx, report.UserID, BuildTables(report, changes)); err != nil {
		return fmt.Errorf("writing report tables: %w", err)
	}

	if h, ok := s.writer.(HistoryAppender); ok {
		if err := h.AppendHistory(ctx, buildHistoryRow(report, changes)); err != nil {
			return fmt.Errorf("appending history row: %w", err)
		}
	}
	return nil
}

// changes compares the report's market value with the stored snapshots.
func (s *Service) changes(ctx context.Context, report domain.PortfolioReport) Changes {
	if s.snapshots == nil {
		return Changes{}
	}

	snaps, err := s.snapshots.List(ctx, report.UserID, snapshotHistoryLimit)
	if err != nil {
		slog.Warn("export: historical snapshots unavailable", "user", report.UserID, "error", err)
		return Changes{}
	}

	ref := report.AsOf
	if ref.IsZero() {
		ref = s.now()
	}

	byPeriod := make(map[int]*decimal.Decimal, len(historyPeriods))
	for _, days := range historyPeriods {
		snap, ok := nearestBefore(snaps, ref.AddDate(0, 0, -days))
		if !ok {
			continue
		}
		hist, err := snap.Decode()
		if err != nil {
			slog.Warn("export: failed to decode historical snapshot", "user", report.UserID, "days", days, "error", err)
			continue
		}
		byPeriod[days] = computeChange(report.Totals.MarketValue, hist.Totals.MarketValue)
	}

	return Changes{
		Week:    byPeriod[7],
		Month:   byPeriod[30],
		Quarter: byPeriod[90],
		Year:    byPeriod[365],
	}
}

// nearestBefore returns the latest snapshot dated on or before t.
func nearestBefore(snaps []snapshot.Snapshot, t time.Time) (snapshot.Snapshot, bool) {
	candidates := lo.Filter(snaps, func(s snapshot.Snapshot, _ int) bool { return !s.SnapshotDate.After(t) })
	if len(candidates) == 0 {
		return snapshot.Snapshot{}, false
	}
	return lo.MaxBy(candidates, func(a, b snapshot.Snapshot) bool { return a.SnapshotDate.After(b.SnapshotDate) }), true
}

// computeChange returns (current - historical) / historical, or nil if historical is zero.
func computeChange(current, historical decimal.Decimal) *decimal.Decimal {
	if historical.IsZero() {
		return nil
	}
	pct := current.Sub(historical).Div(historical)
	return &pct
}

// BuildTables lays the report out as SUMMARY, POSITIONS, VALUATIONS,
// ALLOCATION and DIVIDENDS sheets.
func BuildTables(report domain.PortfolioReport, changes Changes) []Table {
	return []Table{
		{Name: "SUMMARY", Rows: buildSummary(report, changes)},
		{Name: "POSITIONS", Rows: buildPositions(report.Holdings)},
		{Name: "VALUATIONS", Rows: buildValuations(report)},
		{Name: "ALLOCATION", Rows: buildAllocation(report.Allocation)},
		{Name: "DIVIDENDS", Rows: buildDividends(report.Dividends)},
	}
}

func buildSummary(report domain.PortfolioReport, changes Changes) [][]any {
	rows := [][]any{
		{"Field", "Value"},
		{"User", report.UserID},
		{"As of", report.AsOf.UTC().Format("2006-01-02")},
		{"Positions", report.Totals.Count},
		{"Market value", toFloat(report.Totals.MarketValue)},
		{"Cost basis", toFloat(report.Totals.CostBasis)},
		{"Gain/loss", toFloat(report.Totals.GainLoss)},
		{"Gain/loss %", toFloat(report.Totals.GainLossPercent)},
		{"Week change", ptrFloat(changes.Week)},
		{"Month change", ptrFloat(changes.Month)},
		{"Quarter change", ptrFloat(changes.Quarter)},
		{"Year change", ptrFloat(changes.Year)},
		{"Dividends (trailing)", toFloat(report.Dividends.TrailingTotal)},
		{"Dividends (monthly average)", toFloat(report.Dividends.MonthlyAverage)},
		{"Valuation", report.ValuationSummary.Message},
	}
	for _, c := range report.Cash {
		rows = append(rows, []any{"Cash: " + c.Name, toFloat(c.Balance)})
	}
	return rows
}

// buildPositions: Ticker | Class | Quantity | Average cost | Cost basis | Price | Source | Market value | Gain/loss | Gain/loss %
func buildPositions(holdings []domain.Position) [][]any {
	data := make([][]any, 0, len(holdings)+1)
	data = append(data, []any{
		"Ticker", "Class", "Quantity", "Average cost", "Cost basis",
		"Price", "Source", "Market value", "Gain/loss", "Gain/loss %",
	})
	for _, p := range holdings {
		data = append(data, []any{
			p.Ticker, string(p.Class),
			toFloat(p.Quantity), toFloat(p.AverageCost), toFloat(p.TotalCostBasis),
			toFloat(p.CurrentPrice), string(p.PriceSource),
			toFloat(p.MarketValue), toFloat(p.GainLoss), toFloat(p.GainLossPercent),
		})
	}
	return data
}

// buildValuations lists valued tickers followed by skipped ones.
// Columns: Ticker | Class | Price | Intrinsic value | Margin % | Recommendation | Model
func buildValuations(report domain.PortfolioReport) [][]any {
	data := [][]any{
		{"Ticker", "Class", "Price", "Intrinsic value", "Margin %", "Recommendation", "Model"},
	}
	for _, v := range report.Valuations {
		data = append(data, []any{
			v.Ticker, string(v.Class),
			toFloat(v.CurrentPrice), toFloat(v.IntrinsicValue), toFloat(v.MarginPercent),
			string(v.Recommendation), v.ModelUsed,
		})
	}
	for _, s := range report.Skipped {
		data = append(data, []any{s.Ticker, "", nil, nil, nil, "SKIPPED", s.Reason})
	}
	return data
}

func buildAllocation(allocation []domain.Allocation) [][]any {
	data := [][]any{{"Class", "Market value", "Percent"}}
	for _, a := range allocation {
		data = append(data, []any{string(a.Class), toFloat(a.MarketValue), toFloat(a.Percent)})
	}
	return data
}

// buildDividends writes the trailing months, a blank row, then totals per ticker
// in descending order.
func buildDividends(summary domain.DividendSummary) [][]any {
	data := [][]any{{"Month", "Total"}}
	for _, m := range summary.Trailing {
		data = append(data, []any{m.Month, toFloat(m.Total)})
	}

	data = append(data, []any{}, []any{"Ticker", "Total"})
	tickers := lo.Keys(summary.ByTicker)
	sort.Slice(tickers, func(i, j int) bool {
		a, b := summary.ByTicker[tickers[i]], summary.ByTicker[tickers[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return tickers[i] < tickers[j]
	})
	for _, t := range tickers {
		data = append(data, []any{t, toFloat(summary.ByTicker[t])})
	}
	return data
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func ptrFloat(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return f
}
