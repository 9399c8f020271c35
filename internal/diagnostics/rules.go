package diagnostics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"campaign-insights-service/internal/model"
)

// Thresholds parameterizes the detection rules. Deployments disagree on the
// exact values, so they are configuration rather than constants.
type Thresholds struct {
	// HighSpend is the spend above which zero conversions is an issue.
	HighSpend decimal.Decimal
	// LowCTR is the click-through ratio below which CTR is flagged.
	LowCTR float64
	// LowCTRMinImpr gates the CTR rule: below this many impressions the
	// ratio is too noisy to act on.
	LowCTRMinImpr int64
	// BaselineWindow is how many immediately preceding same-campaign rows
	// form the rolling impressions baseline.
	BaselineWindow int
	// DropRatio is the fraction of baseline below which current impressions
	// count as a sudden drop.
	DropRatio float64
	// MinBaseline gates the drop rule: a baseline at or below this many
	// impressions is too small for a drop to mean anything.
	MinBaseline float64
}

// DefaultThresholds returns the tuned rule parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighSpend:      decimal.NewFromInt(500),
		LowCTR:         0.005,
		LowCTRMinImpr:  500,
		BaselineWindow: 3,
		DropRatio:      0.3,
		MinBaseline:    500,
	}
}

// Issue is one detected anomaly before aggregation.
type Issue struct {
	Type     model.IssueType
	Severity model.Severity
	Notes    string
}

// DetectRowIssues evaluates every rule against one row. rows is the full
// chronological sequence for the row's campaign and index its position in
// it; the rules are independent, so one row can yield several issues.
func DetectRowIssues(current model.CampaignData, rows []model.CampaignData, index int, t Thresholds) []Issue {
	var issues []Issue

	if current.Impressions == 0 {
		issues = append(issues, Issue{
			Type:     model.IssueZeroImpressions,
			Severity: model.SeverityCritical,
			Notes:    fmt.Sprintf("Spent $%s with zero impressions", current.Spend.String()),
		})
	}

	if current.Spend.GreaterThan(t.HighSpend) && current.Conversions == 0 {
		severity := model.SeverityMedium
		switch {
		case current.Impressions == 0:
			severity = model.SeverityCritical
		case current.Clicks >= 10:
			severity = model.SeverityHigh
		}
		issues = append(issues, Issue{
			Type:     model.IssueHighSpendNoConversions,
			Severity: severity,
			Notes: fmt.Sprintf("Spent $%s with zero conversions (%d impressions, %d clicks)",
				current.Spend.String(), current.Impressions, current.Clicks),
		})
	}

	if current.Impressions > t.LowCTRMinImpr {
		ctr := float64(current.Clicks) / float64(current.Impressions)
		if ctr < t.LowCTR {
			issues = append(issues, Issue{
				Type:     model.IssueLowCTR,
				Severity: model.SeverityLow,
				Notes:    fmt.Sprintf("CTR %.2f%%", ctr*100),
			})
		}
	}

	// Cold start: the first BaselineWindow rows of a campaign have no
	// baseline and can never trigger the drop rule.
	if index >= t.BaselineWindow && t.BaselineWindow > 0 {
		sum := int64(0)
		for _, r := range rows[index-t.BaselineWindow : index] {
			sum += r.Impressions
		}
		baseline := float64(sum) / float64(t.BaselineWindow)
		if baseline > t.MinBaseline && float64(current.Impressions) < baseline*t.DropRatio {
			issues = append(issues, Issue{
				Type:     model.IssueSuddenDropImpressions,
				Severity: model.SeverityMedium,
				Notes:    fmt.Sprintf("Impressions dropped to %d against a baseline of %.0f", current.Impressions, baseline),
			})
		}
	}

	return issues
}
