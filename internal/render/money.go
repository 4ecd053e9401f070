package render

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code amounts are displayed in.
const Currency = money.BRL

// FormatMoney displays amount in the currency's conventions, e.g. "R$1.234,56".
// The amount is rounded half away from zero to the currency's minor unit.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// FormatBRL displays amount in Brazilian reais.
func FormatBRL(amount decimal.Decimal) string {
	return FormatMoney(amount, Currency)
}

// formatPercent renders an already-scaled percentage with a sign, e.g. "+12.50%".
func formatPercent(p decimal.Decimal) string {
	return fmt.Sprintf("%+.2f%%", p.InexactFloat64())
}

// formatShare renders an unsigned percentage, e.g. "42.00%".
func formatShare(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}

// formatQuantity trims trailing zeros: 100 stays "100", 0.50 becomes "0.5".
func formatQuantity(q decimal.Decimal) string {
	return q.String()
}
