/*
reconciler.go - Combined status, grouping and duplicate detection

COMBINED STATUS (first match wins):
  1. student or worker slot empty        -> "missing"  / warning
  2. a mandatory slot REJECTED or EXPIRED -> "rejected" / error
  3. both mandatory slots APPROVED        -> "approved" / success
  4. otherwise                            -> "pending"  / info

  The control slot is optional and never affects the result. "missing"
  outranks "rejected" when one slot is empty and the other rejected.

GROUPING:
  Records are grouped by canonical month, then by class ID. Records whose
  class reference is unresolved fall under a placeholder class group
  instead of failing the whole dashboard.

DUPLICATES:
  A submission collides with an existing record of the same worker for
  the same (month, class). The caller must confirm replacement before
  anything is written.
*/
package attendance

import (
	"sort"

	"github.com/kaytana/compliance-engine/compliance"
)

// =============================================================================
// COMBINED STATUS
// =============================================================================

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
)

const (
	StatusMissing  = "missing"
	StatusRejected = "rejected"
	StatusApproved = "approved"
	StatusPending  = "pending"
)

// CombinedStatus is the rolled-up status of a record.
type CombinedStatus struct {
	Text     string
	Severity Severity
}

// Combine computes the combined status of r.
func Combine(r Record) CombinedStatus {
	student, worker := r.StudentAttendanceDoc, r.WorkerAttendanceDoc
	if student == nil || worker == nil {
		return CombinedStatus{Text: StatusMissing, Severity: SeverityWarning}
	}
	if failed(student.Status) || failed(worker.Status) {
		return CombinedStatus{Text: StatusRejected, Severity: SeverityError}
	}
	if student.Status == compliance.StatusApproved && worker.Status == compliance.StatusApproved {
		return CombinedStatus{Text: StatusApproved, Severity: SeveritySuccess}
	}
	return CombinedStatus{Text: StatusPending, Severity: SeverityInfo}
}

func failed(s compliance.Status) bool {
	return s == compliance.StatusRejected || s == compliance.StatusExpired
}

// =============================================================================
// GROUPING
// =============================================================================

// ClassGroup holds one class's records within a month.
type ClassGroup struct {
	Class   compliance.Ref
	Records []Record
}

// MonthGroup holds one month's class groups, ordered by class ID.
type MonthGroup struct {
	Month   Month
	Classes []ClassGroup
}

// Group buckets records by month (newest first) and class.
func Group(records []Record) []MonthGroup {
	months := make(map[Month]map[string]*ClassGroup)
	for _, r := range records {
		byClass, ok := months[r.Month]
		if !ok {
			byClass = make(map[string]*ClassGroup)
			months[r.Month] = byClass
		}
		class := r.Class
		if class.ID == "" {
			class = compliance.Ref{DisplayName: compliance.PlaceholderLabel}
		}
		g, ok := byClass[class.ID]
		if !ok {
			g = &ClassGroup{Class: class}
			byClass[class.ID] = g
		}
		if g.Class.DisplayName == "" && class.DisplayName != "" {
			g.Class.DisplayName = class.DisplayName
		}
		g.Records = append(g.Records, r)
	}

	out := make([]MonthGroup, 0, len(months))
	for m, byClass := range months {
		mg := MonthGroup{Month: m, Classes: make([]ClassGroup, 0, len(byClass))}
		for _, g := range byClass {
			mg.Classes = append(mg.Classes, *g)
		}
		sort.Slice(mg.Classes, func(i, j int) bool {
			return mg.Classes[i].Class.ID < mg.Classes[j].Class.ID
		})
		out = append(out, mg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// StatusCounts tallies combined statuses over records.
func StatusCounts(records []Record) map[string]int {
	counts := map[string]int{
		StatusMissing:  0,
		StatusRejected: 0,
		StatusApproved: 0,
		StatusPending:  0,
	}
	for _, r := range records {
		counts[Combine(r).Text]++
	}
	return counts
}

// =============================================================================
// DUPLICATE DETECTION
// =============================================================================

// FindExisting returns the record of workerID for (month, classID), if any.
func FindExisting(records []Record, workerID, classID string, month Month) (Record, bool) {
	for _, r := range records {
		if r.Worker.ID == workerID && r.Class.ID == classID && r.Month == month {
			return r, true
		}
	}
	return Record{}, false
}

// CheckDuplicate returns ReplacementConfirmationRequired when key is taken.
func CheckDuplicate(records []Record, key Key) error {
	if existing, ok := FindExisting(records, key.WorkerID, key.ClassID, key.Month); ok {
		return &ReplacementConfirmationRequired{Existing: existing}
	}
	return nil
}
