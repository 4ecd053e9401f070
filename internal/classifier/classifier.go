// Package classifier assigns an asset class to a ticker.
package classifier

import (
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/rafhmansano/finpro/internal/domain"
)

// Lists holds the fixed membership lists used before the ticker-shape heuristic.
type Lists struct {
	// IndexFunds are exchange-traded index trackers. Their tickers look like income trusts.
	IndexFunds []string `toml:"index_funds"`
	// UnitEquities are share units (bundles of ordinary and preferred shares) that also end in 11.
	UnitEquities []string `toml:"unit_equities"`
}

// DefaultLists returns the built-in membership lists.
func DefaultLists() Lists {
	return Lists{
		IndexFunds: []string{
			"BOVA11", "BOVV11", "BOVB11", "BRAX11", "DIVO11", "ECOO11", "FIND11", "GOVE11",
			"HASH11", "IVVB11", "MATB11", "NASD11", "PIBB11", "SMAL11", "SMAC11", "SPXI11",
			"XINA11", "XBOV11", "ACWI11", "GOLD11", "EURP11", "BBSD11", "IMAB11", "FIXA11",
		},
		UnitEquities: []string{
			"ALUP11", "BPAC11", "ENGI11", "IGTI11", "KLBN11", "SANB11", "SAPR11", "TAEE11",
			"BIDI11", "STBP11", "SULA11", "TIET11", "CPLE11", "RNEW11", "AESB11", "BRBI11",
		},
	}
}

// Classifier applies the classification rules in a fixed order.
type Classifier struct {
	indexFunds   map[string]bool
	unitEquities map[string]bool
}

// New creates a Classifier from membership lists. Tickers are normalized.
func New(lists Lists) *Classifier {
	toSet := func(tickers []string) map[string]bool {
		return lo.SliceToMap(tickers, func(t string) (string, bool) {
			return domain.NormalizeTicker(t), true
		})
	}
	return &Classifier{
		indexFunds:   toSet(lists.IndexFunds),
		unitEquities: toSet(lists.UnitEquities),
	}
}

// Default returns a Classifier using DefaultLists.
func Default() *Classifier {
	return New(DefaultLists())
}

// Classify resolves the class of a ticker. First match wins:
//  1. an explicit class that parses to a known value
//  2. the index-fund and unit-equity membership lists
//  3. a six-character ticker ending in "11" is an income trust
//  4. everything else is equity
func (c *Classifier) Classify(ticker, explicit string) domain.AssetClass {
	if explicit != "" {
		if class, ok := domain.ParseAssetClass(explicit); ok {
			return class
		}
		slog.Debug("ignoring unknown explicit asset class", "ticker", ticker, "class", explicit)
	}

	t := domain.NormalizeTicker(ticker)
	if c.indexFunds[t] {
		return domain.AssetClassIndexFund
	}
	if c.unitEquities[t] {
		return domain.AssetClassEquity
	}
	if len(t) == 6 && strings.HasSuffix(t, "11") {
		return domain.AssetClassIncomeTrust
	}
	return domain.AssetClassEquity
}

// ClassifyAsset classifies an asset record.
func (c *Classifier) ClassifyAsset(a domain.AssetMeta) domain.AssetClass {
	return c.Classify(a.Ticker, a.Class)
}

// ForTickers builds a ticker lookup that prefers the explicit class of a known asset.
func (c *Classifier) ForTickers(assets []domain.AssetMeta) func(ticker string) domain.AssetClass {
	byTicker := lo.SliceToMap(assets, func(a domain.AssetMeta) (string, string) {
		return domain.NormalizeTicker(a.Ticker), a.Class
	})
	return func(ticker string) domain.AssetClass {
		return c.Classify(ticker, byTicker[domain.NormalizeTicker(ticker)])
	}
}
