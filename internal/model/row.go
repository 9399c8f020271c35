package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownCampaign is the placeholder campaign name substituted when no
// mappable campaign field is found on a source row.
const UnknownCampaign = "UNKNOWN"

// CanonicalRow is one campaign-performance record after schema normalization.
// Numeric fields are never negative by construction only when the source is
// well-formed; the validator is responsible for discarding bad values.
type CanonicalRow struct {
	Campaign    string          `json:"campaign"`
	Date        *time.Time      `json:"date"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Spend       decimal.Decimal `json:"spend"`
	Conversions int64           `json:"conversions"`

	// Line is the 1-based position of the row in its source batch.
	Line int `json:"-"`
}

// IsEmpty reports whether every field holds its zero value. Entirely empty
// rows are skipped silently by the validator rather than discarded.
func (r CanonicalRow) IsEmpty() bool {
	return r.Campaign == "" &&
		r.Date == nil &&
		r.Impressions == 0 &&
		r.Clicks == 0 &&
		r.Spend.IsZero() &&
		r.Conversions == 0
}

// ValidationResult is the outcome of the discard-accounting pass over a
// batch of canonical rows.
type ValidationResult struct {
	ValidRows    []CanonicalRow
	Warnings     []Warning
	Discarded    int
	DiscardedPct int
}

// Warning is one aggregate data-quality warning attached to a run.
type Warning struct {
	Level     Severity       `json:"level"`
	Message   string         `json:"message"`
	Breakdown map[string]int `json:"breakdown,omitempty"`
}
