package controller

import (
	"bufio"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"campaign-insights-service/internal/model"
	"campaign-insights-service/internal/repository"
	"campaign-insights-service/internal/service"
)

// IngestController exposes HTTP handlers for the ingestion pipeline.
type IngestController interface {
	IngestAPI(c *fiber.Ctx) error
	UploadCSV(c *fiber.Ctx) error
	ListRuns(c *fiber.Ctx) error
	GetRun(c *fiber.Ctx) error
	DeleteRun(c *fiber.Ctx) error
	RetryDiagnostics(c *fiber.Ctx) error
}

type ingestController struct {
	svc service.IngestService
}

// NewIngestController builds an IngestController.
func NewIngestController(svc service.IngestService) IngestController {
	return &ingestController{svc: svc}
}

// UploadRequest is the CSV upload payload.
type UploadRequest struct {
	CSVText  string `json:"csv_text"`
	Filename string `json:"filename"`
}

// IngestAPI accepts a non-empty JSON array of platform-specific objects.
// With "Accept: text/event-stream" the response streams per-stage progress
// events; otherwise it is a single JSON run summary.
func (h *ingestController) IngestAPI(c *fiber.Ctx) error {
	var payload []map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "expected a JSON array payload")
	}
	if len(payload) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty payload")
	}

	run := func(progress service.ProgressFunc) (model.IngestResult, error) {
		return h.svc.IngestObjects(c.Context(), payload, progress)
	}
	if wantsEventStream(c) {
		return streamIngest(c, run)
	}
	return respondIngest(c, run)
}

// UploadCSV accepts {csv_text, filename} and ingests the CSV batch. Streams
// progress like IngestAPI when requested.
func (h *ingestController) UploadCSV(c *fiber.Ctx) error {
	var req UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}
	if req.CSVText == "" {
		return fiber.NewError(fiber.StatusBadRequest, "csv_text is required")
	}
	if req.Filename == "" {
		req.Filename = "upload.csv"
	}

	run := func(progress service.ProgressFunc) (model.IngestResult, error) {
		return h.svc.IngestCSV(c.Context(), req.CSVText, req.Filename, progress)
	}
	if wantsEventStream(c) {
		return streamIngest(c, run)
	}
	return respondIngest(c, run)
}

type ingestFunc func(progress service.ProgressFunc) (model.IngestResult, error)

func respondIngest(c *fiber.Ctx, run ingestFunc) error {
	result, err := run(nil)
	if err != nil {
		return mapIngestError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// streamIngest replays the pipeline's progress events as SSE frames. The
// whole ingest executes inside the stream writer, mirroring the progress
// contract: events are ordered and "error" is terminal.
func streamIngest(c *fiber.Ctx, run ingestFunc) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		send := func(ev model.ProgressEvent) {
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			w.WriteString("data: ")
			w.Write(data)
			w.WriteString("\n\n")
			w.Flush()
		}

		if _, err := run(send); err != nil {
			var ingestErr *service.IngestError
			ev := model.ProgressEvent{Step: model.StepError, Message: err.Error()}
			if errors.As(err, &ingestErr) {
				ev.Warnings = ingestErr.Warnings
			}
			send(ev)
		}
	})
	return nil
}

func mapIngestError(err error) error {
	var ingestErr *service.IngestError
	if errors.As(err, &ingestErr) {
		return fiber.NewError(fiber.StatusBadRequest, ingestErr.Message)
	}
	var diagErr *service.DiagnosticsError
	if errors.As(err, &diagErr) {
		// Rows are saved; diagnostics will be retried. Distinguishable from
		// a failed ingest.
		return fiber.NewError(fiber.StatusBadGateway, diagErr.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "ingest failed")
}

// ListRuns returns all runs, newest first.
func (h *ingestController) ListRuns(c *fiber.Ctx) error {
	runs, err := h.svc.ListRuns(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list runs")
	}
	if runs == nil {
		runs = []model.AnalyticsRun{}
	}
	return c.JSON(runs)
}

// GetRun returns one run with its rows and issue groups.
func (h *ingestController) GetRun(c *fiber.Ctx) error {
	runID, err := parseRunID(c)
	if err != nil {
		return err
	}

	detail, err := h.svc.GetRunDetail(c.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "run not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load run")
	}
	return c.JSON(detail)
}

// DeleteRun removes a run and everything it owns.
func (h *ingestController) DeleteRun(c *fiber.Ctx) error {
	runID, err := parseRunID(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteRun(c.Context(), runID); err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "run not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete run")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RetryDiagnostics re-runs the anomaly pass for a run. Safe to call
// repeatedly: the pass is idempotent.
func (h *ingestController) RetryDiagnostics(c *fiber.Ctx) error {
	runID, err := parseRunID(c)
	if err != nil {
		return err
	}

	if _, err := h.svc.GetRunDetail(c.Context(), runID); err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "run not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load run")
	}

	if err := h.svc.RunDiagnostics(c.Context(), runID); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"status": "complete"})
}

func parseRunID(c *fiber.Ctx) (uuid.UUID, error) {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid run id")
	}
	return runID, nil
}

func wantsEventStream(c *fiber.Ctx) bool {
	return c.Accepts("application/json", "text/event-stream") == "text/event-stream"
}
