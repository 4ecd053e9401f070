package ledger

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"github.com/rafhmansano/finpro/internal/domain"
)

var categorySynonyms = map[domain.DividendCategory][]string{
	domain.DividendCategoryDividend: aliases(
		"dividend", "dividends", "dividendo", "dividendos", "div"),
	domain.DividendCategoryInterestOnEquity: aliases(
		"interest_on_equity", "interest on equity", "jcp", "jscp", "juros", "juros sobre capital proprio", "juros sobre capital próprio"),
	domain.DividendCategoryFundDistribution: aliases(
		"fund_distribution", "fund distribution", "distribution", "rendimento", "rendimentos", "distribuicao", "distribuição", "provento fii"),
}

// ParseCategory maps a dividend category word to a DividendCategory.
// Empty input is a plain dividend.
func ParseCategory(s string) (domain.DividendCategory, bool) {
	key := canonicalKey(s)
	if key == "" {
		return domain.DividendCategoryDividend, true
	}
	for cat, words := range categorySynonyms {
		if lo.Contains(words, key) {
			return cat, true
		}
	}
	return "", false
}

// ReadDividends normalizes raw dividend records. A record without an ID is
// identified by its sequence number so it can still be deduplicated.
func ReadDividends(records []RawRecord) ([]domain.DividendEvent, []domain.Warning) {
	ordered := make([]RawRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	var events []domain.DividendEvent
	var warnings []domain.Warning
	for _, rec := range ordered {
		ev, err := readDividend(rec)
		if err != nil {
			slog.Warn("skipping malformed dividend record", "id", ev.ID, "ticker", ev.Ticker, "error", err)
			warnings = append(warnings, domain.Warning{
				Kind:     domain.WarningMalformed,
				Ticker:   ev.Ticker,
				RecordID: ev.ID,
				Message:  err.Error(),
			})
			continue
		}
		events = append(events, ev)
	}
	return events, warnings
}

func readDividend(rec RawRecord) (domain.DividendEvent, error) {
	fs := newFieldSet(rec.Fields)
	ev := domain.DividendEvent{ID: rec.ID}
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("seq:%d", rec.Seq)
	}

	raw, ok := fs.lookup(tickerAliases)
	if !ok {
		return ev, fmt.Errorf("missing ticker")
	}
	ev.Ticker = domain.NormalizeTicker(toText(raw))
	if ev.Ticker == "" {
		return ev, fmt.Errorf("missing ticker")
	}

	var catText string
	if raw, ok := fs.lookup(categoryAliases); ok {
		catText = toText(raw)
	}
	cat, ok := ParseCategory(catText)
	if !ok {
		return ev, fmt.Errorf("unknown category %q", catText)
	}
	ev.Category = cat

	amount, err := requireDecimal(fs, amountAliases, "amount")
	if err != nil {
		return ev, err
	}
	if amount.IsNegative() {
		return ev, fmt.Errorf("negative amount %s", amount)
	}
	ev.Amount = amount

	raw, ok = fs.lookup(paidOnAliases)
	if !ok {
		return ev, fmt.Errorf("missing payment date")
	}
	if ev.PaidOn, err = toTime(raw); err != nil {
		return ev, err
	}
	return ev, nil
}
