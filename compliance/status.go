/*
status.go - Document status machine

PURPOSE:
  Defines the legal lifecycle of a single document and the rule for
  when a new upload of the same tag is permitted.

STATE DIAGRAM:
  ┌─────────┐  approve   ┌──────────┐
  │ PENDING │──────────▶ │ APPROVED │  (terminal for user actions)
  └─────────┘            └──────────┘
       │ reject
       ▼
  ┌──────────┐  delete
  │ REJECTED │──────────▶ (gone, frees the tag slot)
  └──────────┘

  EXPIRED is assigned externally by time (Expire), never by a reviewer.

IDEMPOTENCE:
  Approve and Reject on an APPROVED document are no-ops, so a double
  click cannot flip an approval. Reject on a REJECTED document is also
  a no-op. Everything else outside the diagram is IllegalTransitionError.

UPLOAD ELIGIBILITY:
  A tag may be (re)uploaded only when no document for it is PENDING or
  APPROVED. REJECTED/EXPIRED/absent tags are eligible.

DELETION:
  Allowed on PENDING, REJECTED and EXPIRED. Never on APPROVED (audit trail).

SEE ALSO:
  - service.go: Runs these checks before issuing store mutations
  - attendance/service.go: Slot and record deletes
*/
package compliance

import "time"

// =============================================================================
// UPLOAD ELIGIBILITY
// =============================================================================

// CanUpload checks whether a document with tag may be uploaded for workerID
// given that worker's existing documents. Returns a DuplicateDocumentError
// naming the blocking document otherwise.
func CanUpload(workerID string, tag Tag, existing []Document) error {
	for _, d := range existing {
		if d.Tag != tag || !ownedBy(d, workerID) {
			continue
		}
		if d.IsCurrent() {
			return &DuplicateDocumentError{
				WorkerID:       workerID,
				Tag:            tag,
				ExistingID:     d.ID,
				ExistingStatus: d.Status,
			}
		}
	}
	return nil
}

// Documents fetched per worker may carry an unpopulated operator.
func ownedBy(d Document, workerID string) bool {
	return d.Operator.ID == "" || d.Operator.ID == workerID
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// ValidateTransition reports whether doc may move to the target status by
// reviewer action. A nil error with changed=false means the call is a no-op.
func ValidateTransition(doc Document, to Status) (changed bool, err error) {
	if !to.Valid() {
		return false, ErrInvalidInput
	}
	illegal := &IllegalTransitionError{DocumentID: doc.ID, From: doc.Status, To: to, Action: "set status of"}

	switch doc.Status {
	case StatusApproved:
		if to == StatusApproved || to == StatusRejected {
			return false, nil
		}
		return false, illegal
	case StatusPending:
		switch to {
		case StatusApproved, StatusRejected:
			return true, nil
		case StatusPending:
			return false, nil
		}
		return false, illegal
	case StatusRejected:
		if to == StatusRejected {
			return false, nil
		}
		return false, illegal
	}
	return false, illegal
}

// Approve returns doc moved to APPROVED at the given time.
func Approve(doc Document, at time.Time) (Document, error) {
	return transition(doc, StatusApproved, at)
}

// Reject returns doc moved to REJECTED at the given time.
func Reject(doc Document, at time.Time) (Document, error) {
	return transition(doc, StatusRejected, at)
}

func transition(doc Document, to Status, at time.Time) (Document, error) {
	changed, err := ValidateTransition(doc, to)
	if err != nil {
		return doc, err
	}
	if !changed {
		return doc, nil
	}
	doc.Status = to
	doc.UpdatedAt = at
	return doc, nil
}

// Expire marks a PENDING or APPROVED document EXPIRED once its expiry date
// has passed. The second result reports whether anything changed.
func Expire(doc Document, now time.Time) (Document, bool) {
	if !doc.ExpiredAt(now) || !doc.IsCurrent() {
		return doc, false
	}
	doc.Status = StatusExpired
	doc.UpdatedAt = now
	return doc, true
}

// =============================================================================
// DELETION
// =============================================================================

// CanDelete refuses deletion of APPROVED documents.
func CanDelete(doc Document) error {
	if doc.Status == StatusApproved {
		return &IllegalTransitionError{DocumentID: doc.ID, From: doc.Status, Action: "delete"}
	}
	return nil
}
