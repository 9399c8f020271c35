package service

import (
	"fmt"

	"github.com/google/uuid"

	"campaign-insights-service/internal/model"
)

// IngestError represents a rejected batch: malformed input, nothing valid
// left after validation, or the discard ratio tripping admission control.
// Nothing is persisted when one of these is returned.
type IngestError struct {
	Message  string
	Warnings []model.Warning
}

func (e *IngestError) Error() string {
	return e.Message
}

// DiagnosticsError marks a run whose rows were persisted but whose anomaly
// pass failed. It is retryable: the run is kept and re-running diagnostics
// is safe.
type DiagnosticsError struct {
	RunID uuid.UUID
	Err   error
}

func (e *DiagnosticsError) Error() string {
	return fmt.Sprintf("diagnostics failed for run %s: %v", e.RunID, e.Err)
}

func (e *DiagnosticsError) Unwrap() error {
	return e.Err
}
