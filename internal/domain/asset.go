package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AssetClass is the taxonomy that selects a valuation model.
type AssetClass string

const (
	AssetClassEquity      AssetClass = "EQUITY"
	AssetClassIncomeTrust AssetClass = "INCOME_TRUST"
	AssetClassIndexFund   AssetClass = "INDEX_FUND"
	AssetClassFixedIncome AssetClass = "FIXED_INCOME"
)

// AllAssetClasses lists every class in reporting order.
var AllAssetClasses = []AssetClass{
	AssetClassEquity,
	AssetClassIncomeTrust,
	AssetClassIndexFund,
	AssetClassFixedIncome,
}

var assetClassSynonyms = map[string]AssetClass{
	"equity": AssetClassEquity,
	"stock":  AssetClassEquity,
	"acao":   AssetClassEquity,
	"acoes":  AssetClassEquity,
	"ação":   AssetClassEquity,
	"ações":  AssetClassEquity,
	"unit":   AssetClassEquity,

	"income_trust":      AssetClassIncomeTrust,
	"income trust":      AssetClassIncomeTrust,
	"fii":               AssetClassIncomeTrust,
	"fundo imobiliario": AssetClassIncomeTrust,
	"fundo imobiliário": AssetClassIncomeTrust,
	"reit":              AssetClassIncomeTrust,

	"index_fund": AssetClassIndexFund,
	"index fund": AssetClassIndexFund,
	"etf":        AssetClassIndexFund,

	"fixed_income": AssetClassFixedIncome,
	"fixed income": AssetClassFixedIncome,
	"renda fixa":   AssetClassFixedIncome,
	"rf":           AssetClassFixedIncome,
	"bond":         AssetClassFixedIncome,
	"tesouro":      AssetClassFixedIncome,
}

// ParseAssetClass resolves a class name or one of its synonyms.
// The second return value is false for empty or unknown input.
func ParseAssetClass(s string) (AssetClass, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", false
	}
	c, ok := assetClassSynonyms[key]
	return c, ok
}

// AssetMeta is the per-ticker asset record kept by the user.
// Class is the explicit classification as entered and may be empty or invalid.
// OpeningQuantity and OpeningAverageCost describe a holding loaded before the trade history starts.
type AssetMeta struct {
	Ticker             string          `json:"ticker"`
	Name               string          `json:"name,omitempty"`
	Class              string          `json:"class,omitempty"`
	OpeningQuantity    decimal.Decimal `json:"openingQuantity"`
	OpeningAverageCost decimal.Decimal `json:"openingAverageCost"`
}

// HasOpeningHolding reports whether the asset starts with a pre-loaded position.
func (a AssetMeta) HasOpeningHolding() bool {
	return a.OpeningQuantity.IsPositive()
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
