package attendance

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrRecordNotFound is returned when a referenced attendance record doesn't exist.
	ErrRecordNotFound = errors.New("attendance record not found")

	// ErrReplacementConfirmationRequired marks a decision point, not a failure:
	// a record already exists for the same (worker, class, month).
	ErrReplacementConfirmationRequired = errors.New("replacement confirmation required")

	// ErrCascadeDeleteFailed is returned when a record's slot documents could
	// not all be deleted; the record is left in place.
	ErrCascadeDeleteFailed = errors.New("cascade delete failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ReplacementConfirmationRequired carries the record a submission would overwrite.
type ReplacementConfirmationRequired struct {
	Existing Record
}

func (e *ReplacementConfirmationRequired) Error() string {
	return fmt.Sprintf("attendance for worker %s, class %s, month %s already exists (record %s)",
		e.Existing.Worker.ID, e.Existing.Class.ID, e.Existing.Month, e.Existing.ID)
}

func (e *ReplacementConfirmationRequired) Unwrap() error {
	return ErrReplacementConfirmationRequired
}

// StepResult is the outcome of one discrete step of a cascading delete.
type StepResult struct {
	Slot       Slot
	DocumentID string
	Err        error
}

// CascadeDeleteError lists every attempted step when a record delete stopped early.
type CascadeDeleteError struct {
	RecordID string
	Steps    []StepResult
}

func (e *CascadeDeleteError) Error() string {
	var failed []string
	for _, s := range e.Steps {
		if s.Err != nil {
			failed = append(failed, fmt.Sprintf("%s (%s): %v", s.Slot, s.DocumentID, s.Err))
		}
	}
	return fmt.Sprintf("record %s kept, slot deletes failed: %s", e.RecordID, strings.Join(failed, "; "))
}

func (e *CascadeDeleteError) Unwrap() error {
	return ErrCascadeDeleteFailed
}
