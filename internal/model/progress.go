package model

import "github.com/google/uuid"

// Progress steps emitted during an ingest, in pipeline order. "error" is
// terminal regardless of which stage produced it.
const (
	StepParsing     = "parsing"
	StepDetecting   = "detecting"
	StepNormalizing = "normalizing"
	StepValidating  = "validating"
	StepSaving      = "saving"
	StepDiagnostics = "diagnostics"
	StepDone        = "done"
	StepError       = "error"
)

// ProgressEvent is one stage-named status update from a running ingest.
// The pipeline never depends on events being consumed.
type ProgressEvent struct {
	Step     string     `json:"step"`
	Message  string     `json:"message"`
	Warnings []Warning  `json:"warnings,omitempty"`
	Done     bool       `json:"done,omitempty"`
	RunID    *uuid.UUID `json:"run_id,omitempty"`
}
