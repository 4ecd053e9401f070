package render

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/position"
	"github.com/rafhmansano/finpro/internal/valuation"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var asOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "R$0,00"},
		{"1234.56", "R$1.234,56"},
		{"10.005", "R$10,01"},
		{"1000000", "R$1.000.000,00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatBRL(dec(tt.in)); got != tt.want {
				t.Errorf("FormatBRL(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatMoneyUnknownCurrency(t *testing.T) {
	if got := FormatMoney(dec("12.5"), "XYZ"); got != "12.50 XYZ" {
		t.Errorf("got %q, want 12.50 XYZ", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(dec("12.5")); got != "+12.50%" {
		t.Errorf("got %q", got)
	}
	if got := formatPercent(dec("-3.333")); got != "-3.33%" {
		t.Errorf("got %q", got)
	}
}

func TestPositions(t *testing.T) {
	res := position.Result{
		Holdings: []domain.Position{
			{Ticker: "WEGE3", Class: domain.AssetClassEquity, Quantity: dec("50"), AverageCost: dec("15"),
				TotalCostBasis: dec("750"), CurrentPrice: dec("40"), PriceSource: domain.PriceSourceQuote,
				MarketValue: dec("2000"), GainLoss: dec("1250"), GainLossPercent: dec("166.67")},
			{Ticker: "TESOURO", Class: domain.AssetClassFixedIncome, Quantity: dec("1"), AverageCost: dec("1000"),
				TotalCostBasis: dec("1000"), CurrentPrice: dec("1000"), PriceSource: domain.PriceSourceFallback,
				MarketValue: dec("1000"), GainLoss: decimal.Zero, GainLossPercent: decimal.Zero},
		},
		Warnings: []domain.Warning{{Kind: domain.WarningOversell, Ticker: "ITSA4", Message: "sold 10 more than held"}},
	}

	md, err := Positions(res, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# Positions as of 2024-06-30",
		"| WEGE3 | EQUITY | 50 | R$15,00 | R$40,00 | R$2.000,00 | R$1.250,00 | +166.67% |",
		"R$1.000,00 \\*",
		"**Market value:** R$3.000,00",
		"## Warnings",
		"oversell: ITSA4: sold 10 more than held",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestPositionsEmpty(t *testing.T) {
	md, err := Positions(position.Result{}, asOf)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "_No open positions._") {
		t.Errorf("expected empty marker:\n%s", md)
	}
	if strings.Contains(md, "Warnings") {
		t.Errorf("no warnings section expected:\n%s", md)
	}
}

func TestValuations(t *testing.T) {
	batch := valuation.Batch{
		Results: []domain.ValuationResult{
			{Ticker: "HGLG11", Class: domain.AssetClassIncomeTrust, CurrentPrice: dec("100"), IntrinsicValue: dec("125"),
				MarginPercent: dec("25"), Recommendation: domain.RecommendationBuy, ModelUsed: domain.ModelDividendYield},
		},
		Skipped: []domain.SkippedValuation{{Ticker: "TESOURO", Reason: "asset class is not valued"}},
		Total:   2,
	}

	md, err := Valuations(batch, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"1 of 2 positions valued; 1 skipped",
		"- **BUY:** HGLG11",
		"| HGLG11 | INCOME_TRUST | R$100,00 | R$125,00 | +25.00% | **BUY** | dividend_yield |",
		"- TESOURO: asset class is not valued",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestSignalsOrder(t *testing.T) {
	results := []domain.ValuationResult{
		{Ticker: "BBAS3", Recommendation: domain.RecommendationHold},
		{Ticker: "HGLG11", Recommendation: domain.RecommendationBuy},
		{Ticker: "ITSA4", Recommendation: domain.RecommendationSell},
		{Ticker: "WEGE3", Recommendation: domain.RecommendationBuy},
	}

	got := signals(results)
	if len(got) != 3 {
		t.Fatalf("got %d groups, want 3: %+v", len(got), got)
	}
	if got[0].Recommendation != domain.RecommendationBuy || strings.Join(got[0].Tickers, ",") != "HGLG11,WEGE3" {
		t.Errorf("first group = %+v, want BUY HGLG11,WEGE3", got[0])
	}
	if got[1].Recommendation != domain.RecommendationSell || got[2].Recommendation != domain.RecommendationHold {
		t.Errorf("group order = %s, %s, want SELL, HOLD", got[1].Recommendation, got[2].Recommendation)
	}
	if len(signals(nil)) != 0 {
		t.Error("no results should give no groups")
	}
}

func TestDividendsOrdersTickers(t *testing.T) {
	summary := domain.DividendSummary{
		Total:         dec("60"),
		EventCount:    4,
		ByTicker:      map[string]decimal.Decimal{"ITSA4": dec("10"), "HGLG11": dec("40"), "BBAS3": dec("10")},
		Trailing:      []domain.MonthTotal{{Month: "2024-05", Total: dec("20")}, {Month: "2024-06", Total: dec("40")}},
		TrailingTotal: dec("60"),
	}

	md, err := Dividends(summary, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md, "**Total received:** R$60,00 in 4 payments") {
		t.Errorf("missing total:\n%s", md)
	}
	if !strings.Contains(md, "| 2024-06 | R$40,00 |") {
		t.Errorf("missing month row:\n%s", md)
	}
	hglg := strings.Index(md, "| HGLG11 |")
	bbas := strings.Index(md, "| BBAS3 |")
	itsa := strings.Index(md, "| ITSA4 |")
	if hglg < 0 || bbas < 0 || itsa < 0 || !(hglg < bbas && bbas < itsa) {
		t.Errorf("tickers not ordered by total then name:\n%s", md)
	}
}

func TestReport(t *testing.T) {
	report := domain.PortfolioReport{
		UserID: "alice",
		AsOf:   asOf,
		Totals: domain.Totals{Count: 0, MarketValue: decimal.Zero, CostBasis: decimal.Zero},
		Allocation: []domain.Allocation{
			{Class: domain.AssetClassIndexFund, MarketValue: dec("500"), Percent: dec("100")},
		},
		ValuationSummary: domain.ValuationSummary{Message: "0 of 0 positions valued; 0 skipped"},
		Cash:             []domain.CashBalance{{AccountID: "a1", Name: "Corretora", Balance: dec("700")}},
	}

	md, err := Report(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"# Portfolio report: alice",
		"| INDEX_FUND | R$500,00 | 100.00% |",
		"0 of 0 positions valued; 0 skipped",
		"| Corretora | R$700,00 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestTerminal(t *testing.T) {
	out, err := Terminal("# Title\n\nsome **bold** text\n", 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "bold") {
		t.Errorf("rendered output lost content: %q", out)
	}
}
