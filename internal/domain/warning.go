package domain

import "fmt"

// WarningKind categorizes a non-fatal data problem.
type WarningKind string

const (
	WarningMalformed           WarningKind = "malformed"
	WarningOversell            WarningKind = "oversell"
	WarningMissingPrice        WarningKind = "missing_price"
	WarningMissingFundamentals WarningKind = "missing_fundamentals"
	WarningNotValued           WarningKind = "not_valued"
	WarningNonFinite           WarningKind = "non_finite"
)

// Warning is a non-fatal problem surfaced alongside derived results.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Ticker   string      `json:"ticker,omitempty"`
	RecordID string      `json:"recordId,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Ticker != "" && w.RecordID != "":
		return fmt.Sprintf("%s: %s (record %s): %s", w.Kind, w.Ticker, w.RecordID, w.Message)
	case w.Ticker != "":
		return fmt.Sprintf("%s: %s: %s", w.Kind, w.Ticker, w.Message)
	case w.RecordID != "":
		return fmt.Sprintf("%s: record %s: %s", w.Kind, w.RecordID, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
