package mockservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/service"
)

type Service struct {
	mock.Mock
}

// Interface compliance check
var _ service.IngestService = &Service{}

func (m *Service) IngestCSV(ctx context.Context, csvText, filename string, progress service.ProgressFunc) (model.IngestResult, error) {
	args := m.Called(ctx, csvText, filename, progress)
	return args.Get(0).(model.IngestResult), args.Error(1)
}

func (m *Service) IngestObjects(ctx context.Context, payload []map[string]any, progress service.ProgressFunc) (model.IngestResult, error) {
	args := m.Called(ctx, payload, progress)
	return args.Get(0).(model.IngestResult), args.Error(1)
}

func (m *Service) RunDiagnostics(ctx context.Context, runID uuid.UUID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

func (m *Service) ListRuns(ctx context.Context) ([]model.AnalyticsRun, error) {
	args := m.Called(ctx)
	var runs []model.AnalyticsRun
	if v := args.Get(0); v != nil {
		runs = v.([]model.AnalyticsRun)
	}
	return runs, args.Error(1)
}

func (m *Service) GetRunDetail(ctx context.Context, runID uuid.UUID) (model.RunDetail, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(model.RunDetail), args.Error(1)
}

func (m *Service) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}
