package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/rafhmansano/finpro/internal/classifier"
	"github.com/rafhmansano/finpro/internal/valuation"
)

// Policy is the tunable domain data: valuation constants and classifier lists.
//
//	[valuation]
//	graham_multiplier = 22.5
//	target_yield = 0.08
//	buy_above = 15.0
//	sell_below = -10.0
//
//	[classifier]
//	index_funds = ["BOVA11", "IVVB11"]
//	unit_equities = ["TAEE11"]
type Policy struct {
	Valuation  valuation.Policy `toml:"valuation"`
	Classifier classifier.Lists `toml:"classifier"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		Valuation:  valuation.DefaultPolicy(),
		Classifier: classifier.DefaultLists(),
	}
}

// LoadPolicy reads a TOML policy file over the defaults. Keys absent from the
// file keep their default; a list present in the file replaces the default list.
// An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	return p, nil
}
