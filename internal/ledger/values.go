package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafhmansano/finpro/internal/domain"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		d, err := domain.ParseLocaleDecimal(x)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid number %q", x)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("unsupported number type %T", v)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date %q", x)
	case map[string]any:
		// Document-store timestamps: {"seconds": 1700000000, "nanoseconds": 0}
		secs, ok := x["seconds"]
		if !ok {
			secs, ok = x["_seconds"]
		}
		if !ok {
			return time.Time{}, fmt.Errorf("timestamp object without seconds")
		}
		d, err := toDecimal(secs)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp seconds: %w", err)
		}
		return time.Unix(d.IntPart(), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date type %T", v)
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
