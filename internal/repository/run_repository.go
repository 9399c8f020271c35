package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"campaign-insights-service/internal/model"
)

// ErrRunNotFound is returned when a run id resolves to nothing.
var ErrRunNotFound = errors.New("run not found")

// RunRepository is the persistence gateway consumed by the ingest pipeline
// and the anomaly engine. All writes are scoped to a run; issue writes are
// duplicate-tolerant so the diagnostics pass is safe to retry.
type RunRepository interface {
	// SaveRun creates a run and bulk-inserts its valid rows in one
	// transaction, so an ingest either fully persists or leaves no state.
	SaveRun(ctx context.Context, run model.AnalyticsRun, rows []model.CanonicalRow) error

	ListRuns(ctx context.Context) ([]model.AnalyticsRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (model.AnalyticsRun, error)

	// DeleteRun removes a run and, through FK cascades, its rows, issue
	// groups and occurrences.
	DeleteRun(ctx context.Context, id uuid.UUID) error

	SetDiagnosticsState(ctx context.Context, id uuid.UUID, state string) error

	// FindCampaignDataByRun returns a run's rows ordered by campaign then
	// date ascending, the order the anomaly engine requires.
	FindCampaignDataByRun(ctx context.Context, runID uuid.UUID) ([]model.CampaignData, error)

	// BulkUpsertIssueGroups inserts groups with duplicate-skip on
	// (run_id, campaign, type) and returns the id of every group for the
	// run, keyed for occurrence resolution.
	BulkUpsertIssueGroups(ctx context.Context, runID uuid.UUID, groups []model.IssueGroup) (map[model.IssueKey]int64, error)

	// BulkInsertOccurrences inserts occurrences in fixed-size batches with
	// duplicate-skip on (issue_group_id, campaign_data_id).
	BulkInsertOccurrences(ctx context.Context, occurrences []model.IssueOccurrence) error

	FindIssueGroupsByRun(ctx context.Context, runID uuid.UUID) ([]model.IssueGroup, error)
	FindOccurrencesByRun(ctx context.Context, runID uuid.UUID) ([]model.IssueOccurrence, error)
}

// DB is the subset of *pgxpool.Pool the repository uses, factored out so
// tests can substitute a mock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

type runRepository struct {
	db                  DB
	occurrenceBatchSize int
}

// defaultOccurrenceBatchSize keeps each occurrence insert batch well inside
// Postgres's parameter limits on very large uploads.
const defaultOccurrenceBatchSize = 500

// NewRunRepository creates a RunRepository backed by PostgreSQL.
// occurrenceBatchSize <= 0 selects the default.
func NewRunRepository(db DB, occurrenceBatchSize int) RunRepository {
	if occurrenceBatchSize <= 0 {
		occurrenceBatchSize = defaultOccurrenceBatchSize
	}
	return &runRepository{db: db, occurrenceBatchSize: occurrenceBatchSize}
}

const insertRunQuery = `
	INSERT INTO analytics_runs (id, name, source, platform, warnings, raw_payload, diagnostics_state, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const insertCampaignDataQuery = `
	INSERT INTO campaign_data (run_id, campaign, date, impressions, clicks, spend, conversions)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (r *runRepository) SaveRun(ctx context.Context, run model.AnalyticsRun, rows []model.CanonicalRow) error {
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	payload, err := json.Marshal(run.RawPayload)
	if err != nil {
		return fmt.Errorf("marshal raw payload: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertRunQuery,
		run.ID, run.Name, string(run.Source), string(run.Platform),
		warnings, payload, run.DiagnosticsState, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insertCampaignDataQuery,
			run.ID, row.Campaign, row.Date,
			row.Impressions, row.Clicks, row.Spend, row.Conversions,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert campaign data: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

const selectRunColumns = `id, name, source, platform, warnings, raw_payload, diagnostics_state, created_at`

func (r *runRepository) ListRuns(ctx context.Context) ([]model.AnalyticsRun, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectRunColumns+` FROM analytics_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.AnalyticsRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *runRepository) GetRun(ctx context.Context, id uuid.UUID) (model.AnalyticsRun, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectRunColumns+` FROM analytics_runs WHERE id = $1`, id)
	if err != nil {
		return model.AnalyticsRun{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.AnalyticsRun{}, err
		}
		return model.AnalyticsRun{}, ErrRunNotFound
	}
	return scanRun(rows)
}

func scanRun(rows pgx.Rows) (model.AnalyticsRun, error) {
	var (
		run      model.AnalyticsRun
		source   string
		platform string
		warnings []byte
		payload  []byte
	)
	err := rows.Scan(&run.ID, &run.Name, &source, &platform, &warnings, &payload, &run.DiagnosticsState, &run.CreatedAt)
	if err != nil {
		return model.AnalyticsRun{}, fmt.Errorf("scan run: %w", err)
	}
	run.Source = model.Source(source)
	run.Platform = model.Platform(platform)
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
			return model.AnalyticsRun{}, fmt.Errorf("unmarshal warnings: %w", err)
		}
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &run.RawPayload); err != nil {
			return model.AnalyticsRun{}, fmt.Errorf("unmarshal raw payload: %w", err)
		}
	}
	return run, nil
}

func (r *runRepository) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM analytics_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *runRepository) SetDiagnosticsState(ctx context.Context, id uuid.UUID, state string) error {
	_, err := r.db.Exec(ctx, `UPDATE analytics_runs SET diagnostics_state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("set diagnostics state: %w", err)
	}
	return nil
}

func (r *runRepository) FindCampaignDataByRun(ctx context.Context, runID uuid.UUID) ([]model.CampaignData, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, run_id, campaign, date, impressions, clicks, spend, conversions
		FROM campaign_data
		WHERE run_id = $1
		ORDER BY campaign ASC, date ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("find campaign data: %w", err)
	}
	defer rows.Close()

	var out []model.CampaignData
	for rows.Next() {
		var d model.CampaignData
		if err := rows.Scan(&d.ID, &d.RunID, &d.Campaign, &d.Date, &d.Impressions, &d.Clicks, &d.Spend, &d.Conversions); err != nil {
			return nil, fmt.Errorf("scan campaign data: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const insertIssueGroupQuery = `
	INSERT INTO issue_groups (run_id, campaign, type, severity)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (run_id, campaign, type) DO NOTHING
`

func (r *runRepository) BulkUpsertIssueGroups(ctx context.Context, runID uuid.UUID, groups []model.IssueGroup) (map[model.IssueKey]int64, error) {
	if len(groups) > 0 {
		batch := &pgx.Batch{}
		for _, g := range groups {
			batch.Queue(insertIssueGroupQuery, g.RunID, g.Campaign, string(g.Type), string(g.Severity))
		}
		br := r.db.SendBatch(ctx, batch)
		for range groups {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return nil, fmt.Errorf("insert issue groups: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return nil, fmt.Errorf("close group batch: %w", err)
		}
	}

	// Read the groups back: duplicate-skipped inserts return no ids, so the
	// lookup has to cover pre-existing groups too.
	rows, err := r.db.Query(ctx, `SELECT id, campaign, type FROM issue_groups WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("lookup issue groups: %w", err)
	}
	defer rows.Close()

	lookup := make(map[model.IssueKey]int64)
	for rows.Next() {
		var (
			id        int64
			campaign  string
			issueType string
		)
		if err := rows.Scan(&id, &campaign, &issueType); err != nil {
			return nil, fmt.Errorf("scan issue group: %w", err)
		}
		lookup[model.IssueKey{Campaign: campaign, Type: model.IssueType(issueType)}] = id
	}
	return lookup, rows.Err()
}

const insertOccurrenceQuery = `
	INSERT INTO issue_occurrences (issue_group_id, campaign_data_id, date, notes)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (issue_group_id, campaign_data_id) DO NOTHING
`

func (r *runRepository) BulkInsertOccurrences(ctx context.Context, occurrences []model.IssueOccurrence) error {
	for start := 0; start < len(occurrences); start += r.occurrenceBatchSize {
		end := start + r.occurrenceBatchSize
		if end > len(occurrences) {
			end = len(occurrences)
		}
		chunk := occurrences[start:end]

		batch := &pgx.Batch{}
		for _, occ := range chunk {
			batch.Queue(insertOccurrenceQuery, occ.IssueGroupID, occ.CampaignDataID, occ.Date, occ.Notes)
		}
		br := r.db.SendBatch(ctx, batch)
		for range chunk {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert occurrences: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close occurrence batch: %w", err)
		}
	}
	return nil
}

func (r *runRepository) FindIssueGroupsByRun(ctx context.Context, runID uuid.UUID) ([]model.IssueGroup, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, run_id, campaign, type, severity
		FROM issue_groups
		WHERE run_id = $1
		ORDER BY campaign ASC, type ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("find issue groups: %w", err)
	}
	defer rows.Close()

	var out []model.IssueGroup
	for rows.Next() {
		var (
			g         model.IssueGroup
			issueType string
			severity  string
		)
		if err := rows.Scan(&g.ID, &g.RunID, &g.Campaign, &issueType, &severity); err != nil {
			return nil, fmt.Errorf("scan issue group: %w", err)
		}
		g.Type = model.IssueType(issueType)
		g.Severity = model.Severity(severity)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *runRepository) FindOccurrencesByRun(ctx context.Context, runID uuid.UUID) ([]model.IssueOccurrence, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.issue_group_id, o.campaign_data_id, o.date, o.notes
		FROM issue_occurrences o
		JOIN issue_groups g ON g.id = o.issue_group_id
		WHERE g.run_id = $1
		ORDER BY o.date ASC, o.id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("find occurrences: %w", err)
	}
	defer rows.Close()

	var out []model.IssueOccurrence
	for rows.Next() {
		var o model.IssueOccurrence
		if err := rows.Scan(&o.ID, &o.IssueGroupID, &o.CampaignDataID, &o.Date, &o.Notes); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
