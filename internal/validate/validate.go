// Package validate classifies canonical rows as valid or discarded and
// produces the aggregate data-quality warning attached to a run.
package validate

import (
	"fmt"
	"math"

	"campaign-insights-service/internal/model"
)

// Discard reasons, phrased exactly as surfaced in warning breakdowns.
const (
	ReasonMissingCampaign      = "missing campaign"
	ReasonInvalidDate          = "invalid date"
	ReasonNegativeImpressions  = "negative impressions"
	ReasonNegativeClicks       = "negative clicks"
	ReasonNegativeSpend        = "negative spend"
	ReasonNegativeConversions  = "negative conversions"
	ReasonClicksExceedImpr     = "clicks > impressions"
	ReasonConversionsExceedClk = "conversions > clicks"
)

// MaxDiscardedPct is the admission-control gate: batches discarding more
// than this percentage of rows are rejected outright.
const MaxDiscardedPct = 50

// rowReasons collects every disqualifying reason for one row, not just the
// first.
func rowReasons(row model.CanonicalRow) []string {
	var reasons []string

	if row.Campaign == "" || row.Campaign == model.UnknownCampaign {
		reasons = append(reasons, ReasonMissingCampaign)
	}
	if row.Date == nil {
		reasons = append(reasons, ReasonInvalidDate)
	}
	if row.Impressions < 0 {
		reasons = append(reasons, ReasonNegativeImpressions)
	}
	if row.Clicks < 0 {
		reasons = append(reasons, ReasonNegativeClicks)
	}
	if row.Spend.IsNegative() {
		reasons = append(reasons, ReasonNegativeSpend)
	}
	if row.Conversions < 0 {
		reasons = append(reasons, ReasonNegativeConversions)
	}
	if row.Clicks > row.Impressions {
		reasons = append(reasons, ReasonClicksExceedImpr)
	}
	if row.Conversions > row.Clicks {
		reasons = append(reasons, ReasonConversionsExceedClk)
	}

	return reasons
}

// Rows partitions a batch into valid rows and discard accounting. Entirely
// empty rows are skipped silently and count toward neither side. When
// anything was discarded a single aggregate warning is emitted: CRITICAL
// above the admission-control threshold, MEDIUM otherwise, with a breakdown
// counting every reason on every discarded row.
func Rows(rows []model.CanonicalRow) model.ValidationResult {
	valid := make([]model.CanonicalRow, 0, len(rows))
	discarded := 0
	breakdown := make(map[string]int)

	for _, row := range rows {
		if row.IsEmpty() {
			continue
		}

		reasons := rowReasons(row)
		if len(reasons) == 0 {
			valid = append(valid, row)
			continue
		}

		discarded++
		for _, r := range reasons {
			breakdown[r]++
		}
	}

	total := len(valid) + discarded
	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(discarded) / float64(total) * 100))
	}

	result := model.ValidationResult{
		ValidRows:    valid,
		Warnings:     []model.Warning{},
		Discarded:    discarded,
		DiscardedPct: pct,
	}

	if discarded > 0 {
		level := model.SeverityMedium
		if pct > MaxDiscardedPct {
			level = model.SeverityCritical
		}
		result.Warnings = append(result.Warnings, model.Warning{
			Level:     level,
			Message:   fmt.Sprintf("%d / %d rows (%d%%) were discarded due to invalid data", discarded, total, pct),
			Breakdown: breakdown,
		})
	}

	return result
}
