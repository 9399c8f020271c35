// Package diagnostics runs the rule-based anomaly pass over a run's
// persisted campaign rows and writes deduplicated, severity-ranked issue
// groups with per-occurrence evidence.
package diagnostics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"campaign-insights-service/internal/metrics"
	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/repository"
)

// Engine applies the detection rules to one run at a time. The group
// accumulator lives inside a single Run invocation, so concurrent runs
// never share state beyond the store itself.
type Engine struct {
	repo       repository.RunRepository
	thresholds Thresholds
	log        *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(repo repository.RunRepository, thresholds Thresholds, log *slog.Logger) *Engine {
	return &Engine{repo: repo, thresholds: thresholds, log: log}
}

// pendingOccurrence is an occurrence whose group id is not known yet; it is
// resolved after the bulk group insert via the key lookup.
type pendingOccurrence struct {
	key        model.IssueKey
	occurrence model.IssueOccurrence
}

// Run executes the anomaly pass for one run. A run with no rows is a no-op.
// Both writes are duplicate-skipping on their unique keys, so the whole pass
// is at-least-once safe: re-running it creates nothing new. Persistence
// errors propagate to the caller so the run can be marked diagnostics-failed.
func (e *Engine) Run(ctx context.Context, runID uuid.UUID) error {
	rows, err := e.repo.FindCampaignDataByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load campaign data: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	groups, pending := e.detect(runID, rows)
	if len(groups) == 0 {
		e.log.Info("diagnostics found no issues", slog.String("run_id", runID.String()))
		return nil
	}

	lookup, err := e.repo.BulkUpsertIssueGroups(ctx, runID, groups)
	if err != nil {
		return fmt.Errorf("persist issue groups: %w", err)
	}

	occurrences := make([]model.IssueOccurrence, 0, len(pending))
	for _, p := range pending {
		groupID, ok := lookup[p.key]
		if !ok {
			// A group we just inserted must be resolvable; anything else
			// means the lookup read raced a concurrent delete of the run.
			return fmt.Errorf("issue group %q/%s missing after upsert", p.key.Campaign, p.key.Type)
		}
		occ := p.occurrence
		occ.IssueGroupID = groupID
		occurrences = append(occurrences, occ)
	}

	if err := e.repo.BulkInsertOccurrences(ctx, occurrences); err != nil {
		return fmt.Errorf("persist occurrences: %w", err)
	}

	perType := make(map[model.IssueType]int)
	for _, occ := range pending {
		perType[occ.key.Type]++
	}
	for t, n := range perType {
		metrics.IssuesDetected(t, n)
	}

	e.log.Info("diagnostics complete",
		slog.String("run_id", runID.String()),
		slog.Int("issue_groups", len(groups)),
		slog.Int("occurrences", len(occurrences)),
	)
	return nil
}

// detect partitions rows by campaign, evaluates the rules per row in
// chronological order, and aggregates issues by (campaign, type) with
// monotonic severity escalation. One occurrence is recorded per (row, rule)
// pair regardless of whether its group already existed.
func (e *Engine) detect(runID uuid.UUID, rows []model.CampaignData) ([]model.IssueGroup, []pendingOccurrence) {
	byCampaign := make(map[string][]model.CampaignData)
	var order []string
	for _, row := range rows {
		if _, seen := byCampaign[row.Campaign]; !seen {
			order = append(order, row.Campaign)
		}
		byCampaign[row.Campaign] = append(byCampaign[row.Campaign], row)
	}

	groupIndex := make(map[model.IssueKey]int)
	var groups []model.IssueGroup
	var pending []pendingOccurrence

	for _, campaign := range order {
		campaignRows := byCampaign[campaign]
		for i, current := range campaignRows {
			for _, issue := range DetectRowIssues(current, campaignRows, i, e.thresholds) {
				key := model.IssueKey{Campaign: campaign, Type: issue.Type}

				if idx, ok := groupIndex[key]; ok {
					groups[idx].Severity = model.MaxSeverity(groups[idx].Severity, issue.Severity)
				} else {
					groupIndex[key] = len(groups)
					groups = append(groups, model.IssueGroup{
						RunID:    runID,
						Campaign: campaign,
						Type:     issue.Type,
						Severity: issue.Severity,
					})
				}

				pending = append(pending, pendingOccurrence{
					key: key,
					occurrence: model.IssueOccurrence{
						CampaignDataID: current.ID,
						Date:           current.Date,
						Notes:          issue.Notes,
					},
				})
			}
		}
	}

	return groups, pending
}
