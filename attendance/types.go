/*
Package attendance reconciles monthly attendance submissions.

PURPOSE:
  Each worker uploads up to three documents per class per month: the
  student roster, the staff roster and an optional control (audit)
  document. This package keeps one record per (worker, class, month),
  rolls the slot documents up into a single combined status, and
  governs replacement and deletion of slots and records.

KEY CONCEPTS IN THIS FILE (types.go):
  - Month: Canonical "yyyy-MM" month, independent of day-of-month
  - Slot: One of the three document positions on a record
  - Record: The (worker, class, month) attendance record

INVARIANTS:
  - At most one record per (worker, class, month)
  - A cleared slot is nil, never a reference to a deleted document

SEE ALSO:
  - reconciler.go: Combined status, grouping, duplicate detection
  - service.go: Submission, slot deletion, cascading record deletion
*/
package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaytana/compliance-engine/compliance"
)

// =============================================================================
// MONTH - Canonical yyyy-MM
// =============================================================================

// Month is a calendar month in canonical "yyyy-MM" form.
type Month string

const monthLayout = "2006-01"

// MonthOf returns the canonical month of t, in t's own location.
func MonthOf(t time.Time) Month {
	return Month(t.Format(monthLayout))
}

// ParseMonth accepts "yyyy-MM", "yyyy-MM-dd" and RFC 3339 timestamps and
// returns the canonical month. The day-of-month is discarded.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{monthLayout, "2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return "", fmt.Errorf("%w: month %q", compliance.ErrInvalidInput, s)
}

// Valid reports whether m is in canonical form.
func (m Month) Valid() bool {
	_, err := time.Parse(monthLayout, string(m))
	return err == nil && len(m) == len(monthLayout)
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	t, _ := time.Parse(monthLayout, string(m))
	return t
}

func (m Month) String() string { return string(m) }

// =============================================================================
// SLOT
// =============================================================================

type Slot string

const (
	SlotStudent Slot = "studentAttendanceDoc"
	SlotWorker  Slot = "workerAttendanceDoc"
	SlotControl Slot = "controlDoc"
)

// Slots lists every slot in cascade-delete order.
var Slots = []Slot{SlotStudent, SlotWorker, SlotControl}

// ParseSlot accepts the slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotStudent, SlotWorker, SlotControl:
		return Slot(s), nil
	}
	return "", fmt.Errorf("%w: unknown slot %q", compliance.ErrInvalidInput, s)
}

// Tag returns the document tag stored in the slot.
func (s Slot) Tag() compliance.Tag {
	switch s {
	case SlotStudent:
		return compliance.TagStudentAttendance
	case SlotWorker:
		return compliance.TagWorkerAttendance
	}
	return compliance.TagControlAttendance
}

// Mandatory reports whether the slot drives the "missing" status.
func (s Slot) Mandatory() bool {
	return s != SlotControl
}

// =============================================================================
// RECORD
// =============================================================================

// Record is one month of attendance evidence for one worker in one class.
type Record struct {
	ID          string
	Worker      compliance.Ref
	Class       compliance.Ref
	Month       Month
	ProjectCode compliance.ProjectCode

	StudentAttendanceDoc *compliance.Document
	WorkerAttendanceDoc  *compliance.Document
	ControlDoc           *compliance.Document

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Doc returns the document in slot s, or nil.
func (r Record) Doc(s Slot) *compliance.Document {
	switch s {
	case SlotStudent:
		return r.StudentAttendanceDoc
	case SlotWorker:
		return r.WorkerAttendanceDoc
	case SlotControl:
		return r.ControlDoc
	}
	return nil
}

// WithDoc returns a copy of r with slot s set to doc (nil clears it).
func (r Record) WithDoc(s Slot, doc *compliance.Document) Record {
	switch s {
	case SlotStudent:
		r.StudentAttendanceDoc = doc
	case SlotWorker:
		r.WorkerAttendanceDoc = doc
	case SlotControl:
		r.ControlDoc = doc
	}
	return r
}

// Key identifies the record's uniqueness triple.
type Key struct {
	WorkerID string
	ClassID  string
	Month    Month
}

func (r Record) Key() Key {
	return Key{WorkerID: r.Worker.ID, ClassID: r.Class.ID, Month: r.Month}
}

// Documents returns the non-nil slot documents in slot order.
func (r Record) Documents() []compliance.Document {
	var out []compliance.Document
	for _, s := range Slots {
		if d := r.Doc(s); d != nil {
			out = append(out, *d)
		}
	}
	return out
}
