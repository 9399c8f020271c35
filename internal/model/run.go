package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source identifies how a run's data entered the system.
type Source string

const (
	SourceCSV Source = "CSV"
	SourceAPI Source = "API"
)

// Diagnostics bookkeeping states for a run. A run is created in the pending
// state, moves to complete when the anomaly pass finishes, and to failed when
// issue persistence errors out (the run and its rows are kept either way).
const (
	DiagnosticsPending  = "pending"
	DiagnosticsComplete = "complete"
	DiagnosticsFailed   = "failed"
)

// AnalyticsRun is one ingestion batch together with its data-quality
// warnings and a summary of the raw payload it was built from.
type AnalyticsRun struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	Source           Source         `json:"source"`
	Platform         Platform       `json:"platform"`
	Warnings         []Warning      `json:"warnings"`
	RawPayload       PayloadSummary `json:"raw_payload"`
	DiagnosticsState string         `json:"diagnostics_state"`
	CreatedAt        time.Time      `json:"created_at"`
}

// PayloadSummary records what a run was built from without retaining the
// raw rows themselves.
type PayloadSummary struct {
	RowCount         int      `json:"row_count"`
	DiscardedPct     int      `json:"discarded_pct"`
	Headers          []string `json:"headers,omitempty"`
	DetectedPlatform Platform `json:"detected_platform"`
}

// CampaignData is a persisted canonical row scoped to a run. Rows are never
// mutated after creation and are deleted as a cascade unit with their run.
type CampaignData struct {
	ID          int64           `json:"id"`
	RunID       uuid.UUID       `json:"run_id"`
	Campaign    string          `json:"campaign"`
	Date        time.Time       `json:"date"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Spend       decimal.Decimal `json:"spend"`
	Conversions int64           `json:"conversions"`
}

// IngestResult is the persisted-run summary returned to callers after a
// successful ingest.
type IngestResult struct {
	RunID         uuid.UUID `json:"run_id"`
	Platform      Platform  `json:"platform"`
	Warnings      []Warning `json:"warnings"`
	RowsProcessed int       `json:"rows_processed"`
}

// RunDetail is a run expanded with its rows and issue groups.
type RunDetail struct {
	Run          AnalyticsRun       `json:"run"`
	CampaignData []CampaignData     `json:"campaign_data"`
	IssueGroups  []IssueGroupDetail `json:"issue_groups"`
}

// IssueGroupDetail is an issue group expanded with its occurrences.
type IssueGroupDetail struct {
	IssueGroup
	Occurrences []IssueOccurrence `json:"occurrences"`
}
