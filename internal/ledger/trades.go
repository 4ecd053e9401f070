package ledger

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

// ParseSide maps a buy/sell word in any supported vocabulary to a Side.
func ParseSide(s string) (domain.Side, bool) {
	key := canonicalKey(s)
	switch {
	case lo.Contains(buySynonyms, key):
		return domain.SideBuy, true
	case lo.Contains(sellSynonyms, key):
		return domain.SideSell, true
	}
	return "", false
}

// ReadTrades normalizes raw trade records. Records are returned in insertion
// order (Seq, then input order); a record that cannot be normalized is skipped
// and reported as a warning.
func ReadTrades(records []RawRecord) ([]domain.TradeEvent, []domain.Warning) {
	ordered := make([]RawRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	var events []domain.TradeEvent
	var warnings []domain.Warning
	for i, rec := range ordered {
		ev, err := readTrade(rec)
		if err != nil {
			w := domain.Warning{
				Kind:     domain.WarningMalformed,
				Ticker:   ev.Ticker,
				RecordID: rec.ID,
				Message:  err.Error(),
			}
			slog.Warn("skipping malformed trade record", "id", rec.ID, "ticker", ev.Ticker, "error", err)
			warnings = append(warnings, w)
			continue
		}
		ev.InsertionOrder = int64(i)
		events = append(events, ev)
	}
	return events, warnings
}

// readTrade returns whatever it managed to parse alongside an error so the
// caller can attribute the warning to a ticker.
func readTrade(rec RawRecord) (domain.TradeEvent, error) {
	fs := newFieldSet(rec.Fields)
	ev := domain.TradeEvent{ID: rec.ID}

	raw, ok := fs.lookup(tickerAliases)
	if !ok {
		return ev, fmt.Errorf("missing ticker")
	}
	ev.Ticker = domain.NormalizeTicker(toText(raw))
	if ev.Ticker == "" {
		return ev, fmt.Errorf("missing ticker")
	}

	raw, ok = fs.lookup(sideAliases)
	if !ok {
		return ev, fmt.Errorf("missing side")
	}
	side, ok := ParseSide(toText(raw))
	if !ok {
		return ev, fmt.Errorf("unknown side %q", toText(raw))
	}
	ev.Side = side

	var err error
	if ev.Quantity, err = requireDecimal(fs, quantityAliases, "quantity"); err != nil {
		return ev, err
	}
	if ev.UnitPrice, err = requireDecimal(fs, priceAliases, "unit price"); err != nil {
		return ev, err
	}
	ev.Fees = decimal.Zero
	if raw, ok := fs.lookup(feesAliases); ok {
		if ev.Fees, err = toDecimal(raw); err != nil {
			return ev, fmt.Errorf("fees: %w", err)
		}
	}

	raw, ok = fs.lookup(tradeDateAliases)
	if !ok {
		return ev, fmt.Errorf("missing date")
	}
	if ev.OccurredAt, err = toTime(raw); err != nil {
		return ev, err
	}

	return ev, nil
}

func requireDecimal(fs fieldSet, names []string, label string) (decimal.Decimal, error) {
	raw, ok := fs.lookup(names)
	if !ok {
		return decimal.Zero, fmt.Errorf("missing %s", label)
	}
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", label, err)
	}
	return d, nil
}
