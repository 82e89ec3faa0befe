package errors

import (
	"errors"
	"fmt"
)

// Sync pipeline stage names, used when wrapping per-report failures.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageResolve = "resolve"
	StageAssign  = "assign"
	StageReview  = "review"
)

// StageError wraps a failure in one stage of the sync pipeline with enough
// context to report which report broke and where. A StageError aborts the
// report it belongs to, never the whole run.
type StageError struct {
	Stage    string
	ReportID int64
	Cause    error
}

func (e *StageError) Error() string {
	if e.ReportID != 0 {
		return fmt.Sprintf("%s: report %d: %v", e.Stage, e.ReportID, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// WrapStage wraps err as a StageError for the given stage and report. It
// returns nil when err is nil so callers can wrap unconditionally.
func WrapStage(stage string, reportID int64, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, ReportID: reportID, Cause: err}
}

// AsStage extracts a *StageError from err's chain, or returns nil.
func AsStage(err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
