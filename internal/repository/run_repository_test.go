package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/testdata/mockdb"
)

// Interface compliance check
var _ DB = &mockdb.DB{}

type RunRepositoryTestSuite struct {
	suite.Suite

	db   *mockdb.DB
	repo RunRepository
}

func TestRunRepositorySuite(t *testing.T) {
	suite.Run(t, new(RunRepositoryTestSuite))
}

func (s *RunRepositoryTestSuite) SetupTest() {
	s.db = &mockdb.DB{}
	s.repo = NewRunRepository(s.db, 0)
}

func sqlContains(fragment string) any {
	return mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, fragment)
	})
}

func okTag() pgconn.CommandTag {
	return pgconn.NewCommandTag("INSERT 0 1")
}

func testRun() model.AnalyticsRun {
	return model.AnalyticsRun{
		ID:       uuid.New(),
		Name:     "data.csv - 1 June 2025 10:30",
		Source:   model.SourceCSV,
		Platform: model.PlatformGoogle,
		Warnings: []model.Warning{},
		RawPayload: model.PayloadSummary{
			RowCount:         2,
			DetectedPlatform: model.PlatformGoogle,
		},
		DiagnosticsState: model.DiagnosticsPending,
		CreatedAt:        time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}
}

func testRows(n int) []model.CanonicalRow {
	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.CanonicalRow, n)
	for i := range rows {
		rows[i] = model.CanonicalRow{
			Campaign:    "C",
			Date:        &d,
			Impressions: 100,
			Clicks:      5,
			Spend:       decimal.RequireFromString("10.00"),
			Conversions: 1,
		}
	}
	return rows
}

func (s *RunRepositoryTestSuite) TestSaveRun_Success() {
	run := testRun()
	rows := testRows(2)

	tx := &mockdb.Tx{}
	br := &mockdb.BatchResults{}

	s.db.On("Begin", mock.Anything).Return(tx, nil)
	tx.On("Exec", mock.Anything, insertRunQuery,
		run.ID, run.Name, "CSV", "google",
		mock.Anything, mock.Anything, run.DiagnosticsState, run.CreatedAt,
	).Return(okTag(), nil)

	var batchLen int
	tx.On("SendBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			batchLen = args.Get(1).(*pgx.Batch).Len()
		}).Return(br)
	br.On("Exec").Return(okTag(), nil).Times(2)
	br.On("Close").Return(nil)
	tx.On("Commit", mock.Anything).Return(nil)
	tx.On("Rollback", mock.Anything).Return(pgx.ErrTxClosed)

	s.NoError(s.repo.SaveRun(context.Background(), run, rows))

	s.Equal(2, batchLen)
	tx.AssertExpectations(s.T())
	br.AssertExpectations(s.T())
}

func (s *RunRepositoryTestSuite) TestSaveRun_InsertRunErrorRollsBack() {
	run := testRun()

	tx := &mockdb.Tx{}
	s.db.On("Begin", mock.Anything).Return(tx, nil)
	tx.On("Exec", mock.Anything, insertRunQuery,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything,
	).Return(pgconn.CommandTag{}, errors.New("duplicate key"))
	tx.On("Rollback", mock.Anything).Return(nil)

	err := s.repo.SaveRun(context.Background(), run, testRows(1))

	s.ErrorContains(err, "insert run")
	tx.AssertNotCalled(s.T(), "Commit", mock.Anything)
	tx.AssertCalled(s.T(), "Rollback", mock.Anything)
}

func (s *RunRepositoryTestSuite) TestSaveRun_RowInsertErrorRollsBack() {
	run := testRun()

	tx := &mockdb.Tx{}
	br := &mockdb.BatchResults{}
	s.db.On("Begin", mock.Anything).Return(tx, nil)
	tx.On("Exec", mock.Anything, insertRunQuery,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything,
	).Return(okTag(), nil)
	tx.On("SendBatch", mock.Anything, mock.Anything).Return(br)
	br.On("Exec").Return(pgconn.CommandTag{}, errors.New("null value"))
	br.On("Close").Return(nil)
	tx.On("Rollback", mock.Anything).Return(nil)

	err := s.repo.SaveRun(context.Background(), run, testRows(2))

	s.ErrorContains(err, "insert campaign data")
	tx.AssertNotCalled(s.T(), "Commit", mock.Anything)
}

func (s *RunRepositoryTestSuite) TestGetRun() {
	run := testRun()
	warnings, err := json.Marshal([]model.Warning{{Level: model.SeverityMedium, Message: "w"}})
	s.Require().NoError(err)
	payload, err := json.Marshal(run.RawPayload)
	s.Require().NoError(err)

	s.db.On("Query", mock.Anything, sqlContains("FROM analytics_runs"), run.ID).
		Return(mockdb.NewRows([][]any{
			{run.ID, run.Name, "CSV", "google", warnings, payload, "complete", run.CreatedAt},
		}), nil)

	got, err := s.repo.GetRun(context.Background(), run.ID)

	s.Require().NoError(err)
	s.Equal(run.ID, got.ID)
	s.Equal(model.SourceCSV, got.Source)
	s.Equal(model.PlatformGoogle, got.Platform)
	s.Require().Len(got.Warnings, 1)
	s.Equal(model.SeverityMedium, got.Warnings[0].Level)
	s.Equal(run.RawPayload, got.RawPayload)
	s.Equal(model.DiagnosticsComplete, got.DiagnosticsState)
}

func (s *RunRepositoryTestSuite) TestGetRun_NotFound() {
	id := uuid.New()
	s.db.On("Query", mock.Anything, sqlContains("FROM analytics_runs"), id).
		Return(mockdb.NewRows(nil), nil)

	_, err := s.repo.GetRun(context.Background(), id)

	s.ErrorIs(err, ErrRunNotFound)
}

func (s *RunRepositoryTestSuite) TestListRuns() {
	run := testRun()
	s.db.On("Query", mock.Anything, sqlContains("ORDER BY created_at DESC")).
		Return(mockdb.NewRows([][]any{
			{run.ID, "first", "CSV", "google", []byte("[]"), []byte("{}"), "pending", run.CreatedAt},
			{uuid.New(), "second", "API", "meta", []byte("[]"), []byte("{}"), "complete", run.CreatedAt},
		}), nil)

	runs, err := s.repo.ListRuns(context.Background())

	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.Equal("first", runs[0].Name)
	s.Equal(model.SourceAPI, runs[1].Source)
	s.Equal(model.PlatformMeta, runs[1].Platform)
}

func (s *RunRepositoryTestSuite) TestDeleteRun() {
	id := uuid.New()
	s.db.On("Exec", mock.Anything, sqlContains("DELETE FROM analytics_runs"), id).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	s.NoError(s.repo.DeleteRun(context.Background(), id))
}

func (s *RunRepositoryTestSuite) TestDeleteRun_NotFound() {
	id := uuid.New()
	s.db.On("Exec", mock.Anything, sqlContains("DELETE FROM analytics_runs"), id).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	s.ErrorIs(s.repo.DeleteRun(context.Background(), id), ErrRunNotFound)
}

func (s *RunRepositoryTestSuite) TestSetDiagnosticsState() {
	id := uuid.New()
	s.db.On("Exec", mock.Anything, sqlContains("SET diagnostics_state"), id, model.DiagnosticsFailed).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	s.NoError(s.repo.SetDiagnosticsState(context.Background(), id, model.DiagnosticsFailed))
	s.db.AssertExpectations(s.T())
}

func (s *RunRepositoryTestSuite) TestFindCampaignDataByRun() {
	runID := uuid.New()
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	spend := decimal.RequireFromString("95.50")

	s.db.On("Query", mock.Anything, sqlContains("FROM campaign_data"), runID).
		Return(mockdb.NewRows([][]any{
			{int64(1), runID, "Summer Sale", date, int64(1200), int64(40), spend, int64(6)},
		}), nil)

	rows, err := s.repo.FindCampaignDataByRun(context.Background(), runID)

	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(int64(1), rows[0].ID)
	s.Equal("Summer Sale", rows[0].Campaign)
	s.Equal(date, rows[0].Date)
	s.True(rows[0].Spend.Equal(spend))
}

func (s *RunRepositoryTestSuite) TestBulkUpsertIssueGroups() {
	runID := uuid.New()
	groups := []model.IssueGroup{
		{RunID: runID, Campaign: "A", Type: model.IssueZeroImpressions, Severity: model.SeverityCritical},
		{RunID: runID, Campaign: "B", Type: model.IssueLowCTR, Severity: model.SeverityLow},
	}

	br := &mockdb.BatchResults{}
	var batchLen int
	s.db.On("SendBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			batchLen = args.Get(1).(*pgx.Batch).Len()
		}).Return(br)
	br.On("Exec").Return(okTag(), nil).Times(2)
	br.On("Close").Return(nil)

	// The lookback covers a pre-existing group the insert skipped.
	s.db.On("Query", mock.Anything, sqlContains("FROM issue_groups"), runID).
		Return(mockdb.NewRows([][]any{
			{int64(10), "A", "ZERO_IMPRESSIONS"},
			{int64(11), "B", "LOW_CTR"},
			{int64(12), "C", "SUDDEN_DROP_IMPRESSIONS"},
		}), nil)

	lookup, err := s.repo.BulkUpsertIssueGroups(context.Background(), runID, groups)

	s.Require().NoError(err)
	s.Equal(2, batchLen)
	s.Equal(map[model.IssueKey]int64{
		{Campaign: "A", Type: model.IssueZeroImpressions}:       10,
		{Campaign: "B", Type: model.IssueLowCTR}:                11,
		{Campaign: "C", Type: model.IssueSuddenDropImpressions}: 12,
	}, lookup)
	br.AssertExpectations(s.T())
}

func (s *RunRepositoryTestSuite) TestBulkUpsertIssueGroups_NoGroupsStillLooksUp() {
	runID := uuid.New()
	s.db.On("Query", mock.Anything, sqlContains("FROM issue_groups"), runID).
		Return(mockdb.NewRows([][]any{{int64(5), "A", "LOW_CTR"}}), nil)

	lookup, err := s.repo.BulkUpsertIssueGroups(context.Background(), runID, nil)

	s.Require().NoError(err)
	s.Len(lookup, 1)
	s.db.AssertNotCalled(s.T(), "SendBatch", mock.Anything, mock.Anything)
}

func (s *RunRepositoryTestSuite) TestBulkInsertOccurrences_Chunks() {
	repo := NewRunRepository(s.db, 500)

	occurrences := make([]model.IssueOccurrence, 1200)
	for i := range occurrences {
		occurrences[i] = model.IssueOccurrence{
			IssueGroupID:   1,
			CampaignDataID: int64(i + 1),
			Date:           time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Notes:          "CTR 0.20%",
		}
	}

	br := &mockdb.BatchResults{}
	var batchLens []int
	s.db.On("SendBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			batchLens = append(batchLens, args.Get(1).(*pgx.Batch).Len())
		}).Return(br).Times(3)
	br.On("Exec").Return(okTag(), nil)
	br.On("Close").Return(nil)

	s.Require().NoError(repo.BulkInsertOccurrences(context.Background(), occurrences))

	s.Equal([]int{500, 500, 200}, batchLens)
	s.db.AssertExpectations(s.T())
}

func (s *RunRepositoryTestSuite) TestBulkInsertOccurrences_Empty() {
	s.NoError(s.repo.BulkInsertOccurrences(context.Background(), nil))
	s.db.AssertNotCalled(s.T(), "SendBatch", mock.Anything, mock.Anything)
}

func (s *RunRepositoryTestSuite) TestFindIssueGroupsByRun() {
	runID := uuid.New()
	s.db.On("Query", mock.Anything, sqlContains("FROM issue_groups"), runID).
		Return(mockdb.NewRows([][]any{
			{int64(10), runID, "A", "HIGH_SPEND_NO_CONVERSIONS", "HIGH"},
		}), nil)

	groups, err := s.repo.FindIssueGroupsByRun(context.Background(), runID)

	s.Require().NoError(err)
	s.Require().Len(groups, 1)
	s.Equal(model.IssueHighSpendNoConversions, groups[0].Type)
	s.Equal(model.SeverityHigh, groups[0].Severity)
}

func (s *RunRepositoryTestSuite) TestFindOccurrencesByRun() {
	runID := uuid.New()
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.db.On("Query", mock.Anything, sqlContains("FROM issue_occurrences"), runID).
		Return(mockdb.NewRows([][]any{
			{int64(100), int64(10), int64(1), date, "Spent $120 with zero impressions"},
		}), nil)

	occs, err := s.repo.FindOccurrencesByRun(context.Background(), runID)

	s.Require().NoError(err)
	s.Require().Len(occs, 1)
	s.Equal(int64(10), occs[0].IssueGroupID)
	s.Equal("Spent $120 with zero impressions", occs[0].Notes)
}

func (s *RunRepositoryTestSuite) TestGetRun_QueryError() {
	id := uuid.New()
	s.db.On("Query", mock.Anything, sqlContains("FROM analytics_runs"), id).
		Return(nil, errors.New("connection refused"))

	_, err := s.repo.GetRun(context.Background(), id)

	s.ErrorContains(err, "get run")
}
