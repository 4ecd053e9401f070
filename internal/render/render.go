// Package render turns derived portfolio data into markdown, and markdown
// into styled terminal output.
package render

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/position"
	"github.com/rafhmansano/finpro/internal/valuation"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	"brl":   FormatBRL,
	"pct":   formatPercent,
	"share": formatShare,
	"num":   formatQuantity,
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"join":  strings.Join,
}

var tmpl = template.Must(template.New("render").Funcs(funcs).ParseFS(templates, "templates/*.md"))

// tickerTotal is one row of a per-ticker dividend table.
type tickerTotal struct {
	Ticker string
	Total  decimal.Decimal
}

type positionsView struct {
	AsOf     time.Time
	Holdings []domain.Position
	Totals   domain.Totals
	Warnings []domain.Warning
}

// signalGroup lists the tickers sharing one recommendation.
type signalGroup struct {
	Recommendation domain.Recommendation
	Tickers        []string
}

type valuationsView struct {
	AsOf     time.Time
	Summary  domain.ValuationSummary
	Signals  []signalGroup
	Results  []domain.ValuationResult
	Skipped  []domain.SkippedValuation
	Warnings []domain.Warning
}

type dividendsView struct {
	Summary  domain.DividendSummary
	ByTicker []tickerTotal
	Warnings []domain.Warning
}

type reportView struct {
	domain.PortfolioReport
	DividendsByTicker []tickerTotal
}

// Positions renders the open positions with their totals.
func Positions(res position.Result, asOf time.Time) (string, error) {
	return execute("positions", positionsView{
		AsOf:     asOf,
		Holdings: res.Holdings,
		Totals:   position.Summarize(res.Holdings),
		Warnings: res.Warnings,
	})
}

// Valuations renders a valuation batch with its completeness summary.
func Valuations(batch valuation.Batch, asOf time.Time) (string, error) {
	return execute("valuations", valuationsView{
		AsOf:     asOf,
		Summary:  batch.Summary(),
		Signals:  signals(batch.Results),
		Results:  batch.Results,
		Skipped:  batch.Skipped,
		Warnings: batch.Warnings,
	})
}

// Dividends renders the dividend roll-ups.
func Dividends(summary domain.DividendSummary, warnings []domain.Warning) (string, error) {
	return execute("dividends", dividendsView{
		Summary:  summary,
		ByTicker: byTicker(summary.ByTicker),
		Warnings: warnings,
	})
}

// Report renders a full portfolio report.
func Report(report domain.PortfolioReport) (string, error) {
	return execute("report", reportView{
		PortfolioReport:   report,
		DividendsByTicker: byTicker(report.Dividends.ByTicker),
	})
}

// Terminal styles markdown for a terminal, wrapping at width columns.
func Terminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func execute(name string, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return b.String(), nil
}

// byTicker orders per-ticker totals by amount desc, then ticker asc.
func byTicker(totals map[string]decimal.Decimal) []tickerTotal {
	rows := make([]tickerTotal, 0, len(totals))
	for t, v := range totals {
		rows = append(rows, tickerTotal{Ticker: t, Total: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Total.Equal(rows[j].Total) {
			return rows[i].Total.GreaterThan(rows[j].Total)
		}
		return rows[i].Ticker < rows[j].Ticker
	})
	return rows
}

// signals groups valued tickers as BUY, then SELL, then HOLD, skipping empty groups.
func signals(results []domain.ValuationResult) []signalGroup {
	grouped := valuation.Recommendations(results)
	var out []signalGroup
	for _, rec := range []domain.Recommendation{domain.RecommendationBuy, domain.RecommendationSell, domain.RecommendationHold} {
		if tickers := grouped[rec]; len(tickers) > 0 {
			out = append(out, signalGroup{Recommendation: rec, Tickers: tickers})
		}
	}
	return out
}
