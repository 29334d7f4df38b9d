/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  The attendance package wraps these with record-level context.

ERROR CATEGORIES:
  1. Validation errors - Detected before any mutating call is issued
     (duplicate upload, illegal transition). Never retried automatically.
  2. Data-integrity warnings - Unresolvable references. Not fatal.
  3. Store errors - Not found, persistence failures.

USAGE:
  if errors.Is(err, compliance.ErrDuplicateDocument) {
      // surface blocking message to the user
  }

  var dup *compliance.DuplicateDocumentError
  if errors.As(err, &dup) {
      log.Printf("tag %s already held by %s", dup.Tag, dup.ExistingID)
  }

SEE ALSO:
  - status.go: Raises DuplicateDocumentError, IllegalTransitionError
  - ref.go: Raises AmbiguousReferenceError
*/
package compliance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateDocument is returned when an upload targets a tag already
	// held by a PENDING or APPROVED document.
	ErrDuplicateDocument = errors.New("duplicate document")

	// ErrIllegalTransition is returned when a status change or delete is not
	// allowed from the document's current state.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrAmbiguousReference is returned when a reference is neither a bare ID
	// nor a populated object.
	ErrAmbiguousReference = errors.New("ambiguous reference")

	// ErrWorkerNotFound is returned when a referenced worker doesn't exist.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrDocumentNotFound is returned when a referenced document doesn't exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidInput is returned for malformed caller input (unknown status, empty tag).
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateDocumentError provides details about a blocked upload.
type DuplicateDocumentError struct {
	WorkerID       string
	Tag            Tag
	ExistingID     string
	ExistingStatus Status
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document %q already %s for worker %s (existing: %s)",
		e.Tag, e.ExistingStatus, e.WorkerID, e.ExistingID)
}

func (e *DuplicateDocumentError) Unwrap() error {
	return ErrDuplicateDocument
}

// IllegalTransitionError provides details about a refused status change.
// To is empty for delete attempts.
type IllegalTransitionError struct {
	DocumentID string
	From       Status
	To         Status
	Action     string
}

func (e *IllegalTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("cannot %s document %s in status %s", e.Action, e.DocumentID, e.From)
	}
	return fmt.Sprintf("cannot %s document %s: %s -> %s", e.Action, e.DocumentID, e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// AmbiguousReferenceError describes a reference of unrecognized shape.
type AmbiguousReferenceError struct {
	Raw   any
	Cause error
}

func (e *AmbiguousReferenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ambiguous reference %v: %v", e.Raw, e.Cause)
	}
	return fmt.Sprintf("ambiguous reference %v (%T)", e.Raw, e.Raw)
}

func (e *AmbiguousReferenceError) Unwrap() error {
	return ErrAmbiguousReference
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a violated business rule.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAmbiguousReference)
}

// IsConflict returns true if the error is a rule conflict with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateDocument) ||
		errors.Is(err, ErrIllegalTransition)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkerNotFound) ||
		errors.Is(err, ErrDocumentNotFound)
}
