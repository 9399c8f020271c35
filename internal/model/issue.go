package model

import (
	"time"

	"github.com/google/uuid"
)

// Severity ranks how urgent an issue is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the total order used for severity escalation. Unknown
// severities rank below LOW so they can never displace a real one.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// MaxSeverity returns the higher-ranked of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// IssueType tags one anomaly-detection rule.
type IssueType string

const (
	IssueZeroImpressions        IssueType = "ZERO_IMPRESSIONS"
	IssueHighSpendNoConversions IssueType = "HIGH_SPEND_NO_CONVERSIONS"
	IssueLowCTR                 IssueType = "LOW_CTR"
	IssueSuddenDropImpressions  IssueType = "SUDDEN_DROP_IMPRESSIONS"
)

// IssueKey identifies one issue group within a run.
type IssueKey struct {
	Campaign string
	Type     IssueType
}

// IssueGroup is a deduplicated, severity-tracked anomaly bucket, unique per
// (run, campaign, type). Severity only ever escalates.
type IssueGroup struct {
	ID       int64     `json:"id"`
	RunID    uuid.UUID `json:"run_id"`
	Campaign string    `json:"campaign"`
	Type     IssueType `json:"type"`
	Severity Severity  `json:"severity"`
}

// Key returns the group's identity within its run.
func (g IssueGroup) Key() IssueKey {
	return IssueKey{Campaign: g.Campaign, Type: g.Type}
}

// IssueOccurrence is one dated instance of an issue, tied to the campaign
// data row it was detected on.
type IssueOccurrence struct {
	ID             int64     `json:"id"`
	IssueGroupID   int64     `json:"issue_group_id"`
	CampaignDataID int64     `json:"campaign_data_id"`
	Date           time.Time `json:"date"`
	Notes          string    `json:"notes"`
}
