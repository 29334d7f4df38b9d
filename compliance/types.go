/*
Package compliance provides the document compliance engine.

PURPOSE:
  This package decides which documents a seasonal-program worker must hold,
  governs the approval lifecycle of each uploaded document, and evaluates a
  worker's uploads against the requirements. Everything here is a pure
  transform over data supplied by the caller; persistence lives behind the
  store interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tag: Fixed-vocabulary document label (compared byte-for-byte)
  - Status: Document lifecycle state (pending, approved, rejected, expired)
  - Worker: A person employed under one or more seasonal programs
  - Document: An uploaded file with a tag and a status
  - Ref: Canonical shape for references that may arrive as a bare ID or
    as a populated object

DESIGN PRINCIPLES:
  1. Purity: No engine function mutates its inputs or holds state
  2. Fresh evaluation: Requirements are recomputed on every call, never cached
  3. Exact tags: Tag strings are shared with the store and must match exactly

USAGE:
  category := compliance.Classify(worker.RoleName)
  reqs := compliance.Resolve(worker, category)
  result := compliance.Evaluate(worker, docs)

SEE ALSO:
  - role.go: RoleClassifier
  - requirements.go: RequirementResolver
  - status.go: DocumentStatusMachine
  - evaluator.go: ComplianceEvaluator
  - filter.go: FilterEngine
*/
package compliance

import (
	"time"
)

// =============================================================================
// TAG CATALOGUE - Shared with the external store, compared by equality
// =============================================================================

// Tag identifies what a document proves.
type Tag string

const (
	TagID                        Tag = "תעודת זהות"
	TagPoliceApproval            Tag = "אישור משטרה"
	TagTeachingCertificate       Tag = "תעודת הוראה"
	TagContract                  Tag = "חוזה"
	TagSeniorityApproval         Tag = "אישור ותק"
	TagMedicalApproval           Tag = "אישור רפואי"
	TagCampAttendanceCoordinator Tag = "נוכחות קייטנה רכז"
	TagOther                     Tag = "אחר"

	// TagForm101 is a pseudo-requirement tracked by Worker.Is101, never uploaded.
	TagForm101 Tag = "טופס 101"

	// Monthly attendance slot documents.
	TagStudentAttendance Tag = "נוכחות תלמידים"
	TagWorkerAttendance  Tag = "נוכחות עובדים"
	TagControlAttendance Tag = "מסמך בקרה"
)

// Catalogue lists the personal document tags in display order.
var Catalogue = []Tag{
	TagID,
	TagPoliceApproval,
	TagTeachingCertificate,
	TagContract,
	TagSeniorityApproval,
	TagMedicalApproval,
	TagCampAttendanceCoordinator,
	TagOther,
}

// IsKnown reports whether t is part of the fixed catalogue (personal or attendance).
func (t Tag) IsKnown() bool {
	switch t {
	case TagStudentAttendance, TagWorkerAttendance, TagControlAttendance:
		return true
	}
	for _, c := range Catalogue {
		if c == t {
			return true
		}
	}
	return false
}

func (t Tag) String() string { return string(t) }

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// =============================================================================
// PROJECTS - Seasonal program enrollment codes
// =============================================================================

type ProjectCode int

const (
	ProjectAfternoon    ProjectCode = 1
	ProjectHanukkahCamp ProjectCode = 2
	ProjectPassoverCamp ProjectCode = 3
	ProjectSummerCamp   ProjectCode = 4
)

// IsCamp reports whether the code identifies one of the camp programs.
func (p ProjectCode) IsCamp() bool {
	return p >= ProjectHanukkahCamp && p <= ProjectSummerCamp
}

// =============================================================================
// WORKER
// =============================================================================

// Worker is a person employed under the program.
// ID is the government ID; InternalID is the store handle.
type Worker struct {
	ID           string
	InternalID   string
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	RoleName     string
	Is101        bool
	ProjectCodes []ProjectCode
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InCamp reports whether the worker is enrolled in any camp program.
func (w Worker) InCamp() bool {
	for _, p := range w.ProjectCodes {
		if p.IsCamp() {
			return true
		}
	}
	return false
}


func (w Worker) FullName() string {
	switch {
	case w.FirstName == "":
		return w.LastName
	case w.LastName == "":
		return w.FirstName
	}
	return w.FirstName + " " + w.LastName
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is an uploaded file with a compliance tag and approval status.
// URL, FileName and ExpiryDate are opaque to the engine.
type Document struct {
	ID          string
	Operator    Ref
	Tag         Tag
	Status      Status
	URL         string
	FileName    string
	ExpiryDate  *time.Time
	Class       *Ref
	ProjectCode ProjectCode
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsCurrent reports whether the document occupies its tag slot,
// i.e. blocks a new upload of the same tag.
func (d Document) IsCurrent() bool {
	return d.Status == StatusPending || d.Status == StatusApproved
}

// ExpiredAt reports whether the expiry date has passed at now. The expiry
// date is the last valid day; the document expires when the next day begins.
func (d Document) ExpiredAt(now time.Time) bool {
	if d.ExpiryDate == nil {
		return false
	}
	return !now.Before(d.ExpiryDate.AddDate(0, 0, 1))
}
