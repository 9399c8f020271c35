package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"campaign-insights-service/internal/metrics"
	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/normalize"
	"campaign-insights-service/internal/platform"
	"campaign-insights-service/internal/repository"
	"campaign-insights-service/internal/validate"
)

// ProgressFunc receives stage-named events while an ingest runs. It is an
// optional observability channel: callers may pass nil.
type ProgressFunc func(model.ProgressEvent)

// AnomalyEngine runs the diagnostics pass for one run.
type AnomalyEngine interface {
	Run(ctx context.Context, runID uuid.UUID) error
}

// IngestService wires the ingestion-normalization-diagnostics pipeline.
type IngestService interface {
	IngestCSV(ctx context.Context, csvText, filename string, progress ProgressFunc) (model.IngestResult, error)
	IngestObjects(ctx context.Context, payload []map[string]any, progress ProgressFunc) (model.IngestResult, error)
	RunDiagnostics(ctx context.Context, runID uuid.UUID) error
	ListRuns(ctx context.Context) ([]model.AnalyticsRun, error)
	GetRunDetail(ctx context.Context, runID uuid.UUID) (model.RunDetail, error)
	DeleteRun(ctx context.Context, runID uuid.UUID) error
}

type ingestService struct {
	repo   repository.RunRepository
	engine AnomalyEngine
	worker DiagnosticsWorker
	log    *slog.Logger
	now    func() time.Time
}

// NewIngestService constructs an ingestService.
func NewIngestService(repo repository.RunRepository, engine AnomalyEngine, worker DiagnosticsWorker, log *slog.Logger) IngestService {
	return &ingestService{
		repo:   repo,
		engine: engine,
		worker: worker,
		log:    log,
		now:    time.Now,
	}
}

func emit(progress ProgressFunc, ev model.ProgressEvent) {
	if progress != nil {
		progress(ev)
	}
}

// IngestCSV processes one uploaded CSV batch end to end. The first non-blank
// line is the header; a batch needs at least one data line behind it.
func (s *ingestService) IngestCSV(ctx context.Context, csvText, filename string, progress ProgressFunc) (model.IngestResult, error) {
	emit(progress, model.ProgressEvent{Step: model.StepParsing, Message: "Reading CSV…"})

	var lines []string
	for _, l := range strings.Split(csvText, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		metrics.IngestRejected(model.SourceCSV)
		return model.IngestResult{}, &IngestError{Message: "CSV must contain a header row and at least one data row"}
	}

	detected := platform.DetectFromHeaderLine(lines[0])
	headers := splitHeader(lines[0])
	dataLines := lines[1:]

	emit(progress, model.ProgressEvent{
		Step:    model.StepParsing,
		Message: fmt.Sprintf("Detected %s format, %d rows found.", detected, len(dataLines)),
	})
	emit(progress, model.ProgressEvent{Step: model.StepNormalizing, Message: "Mapping columns to standard schema…"})

	rows := normalize.CSVRows(dataLines, detected, headers)

	name := fmt.Sprintf("%s - %s", filename, s.now().Format("2 January 2006 15:04"))
	return s.finishIngest(ctx, ingestBatch{
		name:     name,
		source:   model.SourceCSV,
		platform: detected,
		headers:  headers,
		rows:     rows,
	}, progress)
}

// IngestObjects processes one JSON API payload of arbitrary key-value
// objects.
func (s *ingestService) IngestObjects(ctx context.Context, payload []map[string]any, progress ProgressFunc) (model.IngestResult, error) {
	if len(payload) == 0 {
		metrics.IngestRejected(model.SourceAPI)
		return model.IngestResult{}, &IngestError{Message: "empty payload"}
	}

	emit(progress, model.ProgressEvent{Step: model.StepDetecting, Message: "Detecting platform format…"})
	detected := platform.DetectFromObject(payload[0])
	emit(progress, model.ProgressEvent{
		Step:    model.StepDetecting,
		Message: fmt.Sprintf("Detected %s format.", detected),
	})

	emit(progress, model.ProgressEvent{
		Step:    model.StepNormalizing,
		Message: fmt.Sprintf("Normalizing %d rows…", len(payload)),
	})
	rows := normalize.APIObjects(payload, detected)

	name := fmt.Sprintf("API Ingest - %s", s.now().Format("2 January 2006 15:04"))
	return s.finishIngest(ctx, ingestBatch{
		name:     name,
		source:   model.SourceAPI,
		platform: detected,
		rows:     rows,
	}, progress)
}

type ingestBatch struct {
	name     string
	source   model.Source
	platform model.Platform
	headers  []string
	rows     []model.CanonicalRow
}

// finishIngest runs the shared tail of both ingest paths: validation,
// admission control, the atomic run+rows save, and the diagnostics pass.
func (s *ingestService) finishIngest(ctx context.Context, batch ingestBatch, progress ProgressFunc) (model.IngestResult, error) {
	emit(progress, model.ProgressEvent{
		Step:    model.StepNormalizing,
		Message: fmt.Sprintf("%d rows normalized.", len(batch.rows)),
	})
	emit(progress, model.ProgressEvent{Step: model.StepValidating, Message: "Checking rows for invalid data…"})

	vr := validate.Rows(batch.rows)
	metrics.RowsDiscarded(batch.source, vr.Discarded)

	if len(vr.ValidRows) == 0 {
		metrics.IngestRejected(batch.source)
		return model.IngestResult{}, &IngestError{
			Message:  "no valid rows remain after validation",
			Warnings: vr.Warnings,
		}
	}
	if vr.DiscardedPct > validate.MaxDiscardedPct {
		metrics.IngestRejected(batch.source)
		return model.IngestResult{}, &IngestError{
			Message:  fmt.Sprintf("ingest rejected: %d%% of rows are invalid (limit is %d%%)", vr.DiscardedPct, validate.MaxDiscardedPct),
			Warnings: vr.Warnings,
		}
	}

	discardNote := " - all rows valid"
	if vr.DiscardedPct > 0 {
		discardNote = fmt.Sprintf(" (%d%% discarded)", vr.DiscardedPct)
	}
	emit(progress, model.ProgressEvent{
		Step:     model.StepValidating,
		Message:  fmt.Sprintf("%d valid rows%s.", len(vr.ValidRows), discardNote),
		Warnings: vr.Warnings,
	})

	campaigns := make(map[string]struct{})
	for _, r := range vr.ValidRows {
		campaigns[r.Campaign] = struct{}{}
	}
	emit(progress, model.ProgressEvent{
		Step:    model.StepSaving,
		Message: fmt.Sprintf("Saving %d rows across %d campaigns…", len(vr.ValidRows), len(campaigns)),
	})

	run := model.AnalyticsRun{
		ID:       uuid.New(),
		Name:     batch.name,
		Source:   batch.source,
		Platform: batch.platform,
		Warnings: vr.Warnings,
		RawPayload: model.PayloadSummary{
			RowCount:         len(vr.ValidRows),
			DiscardedPct:     vr.DiscardedPct,
			Headers:          batch.headers,
			DetectedPlatform: batch.platform,
		},
		DiagnosticsState: model.DiagnosticsPending,
		CreatedAt:        s.now().UTC(),
	}

	if err := s.repo.SaveRun(ctx, run, vr.ValidRows); err != nil {
		return model.IngestResult{}, fmt.Errorf("save run: %w", err)
	}
	metrics.RowsPersisted(batch.source, len(vr.ValidRows))
	emit(progress, model.ProgressEvent{Step: model.StepSaving, Message: "Campaign data saved."})

	s.log.Info("run saved",
		slog.String("run_id", run.ID.String()),
		slog.String("source", string(batch.source)),
		slog.String("platform", string(batch.platform)),
		slog.Int("rows", len(vr.ValidRows)),
		slog.Int("discarded_pct", vr.DiscardedPct),
	)

	emit(progress, model.ProgressEvent{Step: model.StepDiagnostics, Message: "Running anomaly detection…"})
	if err := s.RunDiagnostics(ctx, run.ID); err != nil {
		// The run and its rows are already durable; diagnostics will be
		// retried in the background, so surface a retryable condition.
		return model.IngestResult{}, err
	}
	emit(progress, model.ProgressEvent{Step: model.StepDiagnostics, Message: "Anomaly detection complete."})

	result := model.IngestResult{
		RunID:         run.ID,
		Platform:      batch.platform,
		Warnings:      vr.Warnings,
		RowsProcessed: len(vr.ValidRows),
	}
	emit(progress, model.ProgressEvent{
		Step:     model.StepDone,
		Message:  "All done!",
		Done:     true,
		RunID:    &result.RunID,
		Warnings: vr.Warnings,
	})
	metrics.IngestSucceeded(batch.source)
	return result, nil
}

// RunDiagnostics executes the anomaly pass for a run and keeps the run's
// diagnostics bookkeeping in step. On failure the run is marked failed and
// queued for background retry.
func (s *ingestService) RunDiagnostics(ctx context.Context, runID uuid.UUID) error {
	if err := s.engine.Run(ctx, runID); err != nil {
		s.log.Error("diagnostics failed",
			slog.String("run_id", runID.String()),
			slog.String("err", err.Error()),
		)
		if stateErr := s.repo.SetDiagnosticsState(ctx, runID, model.DiagnosticsFailed); stateErr != nil {
			s.log.Error("mark diagnostics failed", slog.String("err", stateErr.Error()))
		}
		if s.worker != nil {
			s.worker.Enqueue(runID)
		}
		return &DiagnosticsError{RunID: runID, Err: err}
	}
	return s.repo.SetDiagnosticsState(ctx, runID, model.DiagnosticsComplete)
}

func (s *ingestService) ListRuns(ctx context.Context) ([]model.AnalyticsRun, error) {
	return s.repo.ListRuns(ctx)
}

// GetRunDetail loads a run with its rows and its issue groups expanded with
// occurrences.
func (s *ingestService) GetRunDetail(ctx context.Context, runID uuid.UUID) (model.RunDetail, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return model.RunDetail{}, err
	}

	rows, err := s.repo.FindCampaignDataByRun(ctx, runID)
	if err != nil {
		return model.RunDetail{}, err
	}
	groups, err := s.repo.FindIssueGroupsByRun(ctx, runID)
	if err != nil {
		return model.RunDetail{}, err
	}
	occurrences, err := s.repo.FindOccurrencesByRun(ctx, runID)
	if err != nil {
		return model.RunDetail{}, err
	}

	byGroup := make(map[int64][]model.IssueOccurrence)
	for _, occ := range occurrences {
		byGroup[occ.IssueGroupID] = append(byGroup[occ.IssueGroupID], occ)
	}

	detail := model.RunDetail{Run: run, CampaignData: rows}
	for _, g := range groups {
		detail.IssueGroups = append(detail.IssueGroups, model.IssueGroupDetail{
			IssueGroup:  g,
			Occurrences: byGroup[g.ID],
		})
	}
	return detail, nil
}

func (s *ingestService) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	return s.repo.DeleteRun(ctx, runID)
}

func splitHeader(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
