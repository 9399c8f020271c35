package mockrepository

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/repository"
)

type Repository struct {
	mock.Mock
}

// Interface compliance check
var _ repository.RunRepository = &Repository{}

func (m *Repository) SaveRun(ctx context.Context, run model.AnalyticsRun, rows []model.CanonicalRow) error {
	args := m.Called(ctx, run, rows)
	return args.Error(0)
}

func (m *Repository) ListRuns(ctx context.Context) ([]model.AnalyticsRun, error) {
	args := m.Called(ctx)
	var runs []model.AnalyticsRun
	if v := args.Get(0); v != nil {
		runs = v.([]model.AnalyticsRun)
	}
	return runs, args.Error(1)
}

func (m *Repository) GetRun(ctx context.Context, id uuid.UUID) (model.AnalyticsRun, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.AnalyticsRun), args.Error(1)
}

func (m *Repository) DeleteRun(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Repository) SetDiagnosticsState(ctx context.Context, id uuid.UUID, state string) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *Repository) FindCampaignDataByRun(ctx context.Context, runID uuid.UUID) ([]model.CampaignData, error) {
	args := m.Called(ctx, runID)
	var rows []model.CampaignData
	if v := args.Get(0); v != nil {
		rows = v.([]model.CampaignData)
	}
	return rows, args.Error(1)
}

func (m *Repository) BulkUpsertIssueGroups(ctx context.Context, runID uuid.UUID, groups []model.IssueGroup) (map[model.IssueKey]int64, error) {
	args := m.Called(ctx, runID, groups)
	var lookup map[model.IssueKey]int64
	if v := args.Get(0); v != nil {
		lookup = v.(map[model.IssueKey]int64)
	}
	return lookup, args.Error(1)
}

func (m *Repository) BulkInsertOccurrences(ctx context.Context, occurrences []model.IssueOccurrence) error {
	args := m.Called(ctx, occurrences)
	return args.Error(0)
}

func (m *Repository) FindIssueGroupsByRun(ctx context.Context, runID uuid.UUID) ([]model.IssueGroup, error) {
	args := m.Called(ctx, runID)
	var groups []model.IssueGroup
	if v := args.Get(0); v != nil {
		groups = v.([]model.IssueGroup)
	}
	return groups, args.Error(1)
}

func (m *Repository) FindOccurrencesByRun(ctx context.Context, runID uuid.UUID) ([]model.IssueOccurrence, error) {
	args := m.Called(ctx, runID)
	var occs []model.IssueOccurrence
	if v := args.Get(0); v != nil {
		occs = v.([]model.IssueOccurrence)
	}
	return occs, args.Error(1)
}
