/*
filter.go - Multi-predicate document filtering and grouping

PURPOSE:
  Selects documents for dashboards and bulk export. Every predicate is
  optional and AND-combined; an absent predicate means "no constraint".
  The same filtered set feeds on-screen summaries and the export
  selection, so both always agree.

PREDICATES:
  Status, Tag, WorkerID, ClassID, Project, DateFrom, DateTo (inclusive,
  compared against CreatedAt). Worker and class match on the resolved
  Ref ID regardless of the original reference shape.

GROUPING:
  CountByTag / CountByWorker / CountByStatus. Records missing the group
  key are skipped silently.
*/
package compliance

import (
	"sort"
	"time"
)

// Filter holds the optional predicates. Zero values mean "no constraint".
type Filter struct {
	Status   *Status
	Tag      *Tag
	WorkerID string
	ClassID  string
	Project  *ProjectCode
	DateFrom *time.Time
	DateTo   *time.Time
}

// IsEmpty reports whether no predicate is set.
func (f Filter) IsEmpty() bool {
	return f.Status == nil && f.Tag == nil && f.WorkerID == "" && f.ClassID == "" &&
		f.Project == nil && f.DateFrom == nil && f.DateTo == nil
}

// Matches reports whether d satisfies every set predicate.
func (f Filter) Matches(d Document) bool {
	if f.Status != nil && d.Status != *f.Status {
		return false
	}
	if f.Tag != nil && d.Tag != *f.Tag {
		return false
	}
	if f.WorkerID != "" && d.Operator.ID != f.WorkerID {
		return false
	}
	if f.ClassID != "" && (d.Class == nil || d.Class.ID != f.ClassID) {
		return false
	}
	if f.Project != nil && d.ProjectCode != *f.Project {
		return false
	}
	if f.DateFrom != nil && d.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && d.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

// Apply returns the documents matching f, preserving input order.
// The input slice is not modified.
func Apply(docs []Document, f Filter) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// =============================================================================
// GROUPING
// =============================================================================

// Count is one row of a grouping reduction.
type Count struct {
	Key   string
	Label string
	Count int
}

// CountByTag counts documents per tag.
func CountByTag(docs []Document) []Count {
	return countBy(docs, func(d Document) (string, string, bool) {
		return string(d.Tag), string(d.Tag), d.Tag != ""
	})
}

// CountByWorker counts documents per owning worker.
func CountByWorker(docs []Document) []Count {
	return countBy(docs, func(d Document) (string, string, bool) {
		return d.Operator.ID, d.Operator.Label(), d.Operator.ID != ""
	})
}

// CountByStatus counts documents per status.
func CountByStatus(docs []Document) []Count {
	return countBy(docs, func(d Document) (string, string, bool) {
		return string(d.Status), string(d.Status), d.Status.Valid()
	})
}

func countBy(docs []Document, key func(Document) (string, string, bool)) []Count {
	idx := make(map[string]int)
	var out []Count
	for _, d := range docs {
		k, label, ok := key(d)
		if !ok {
			continue
		}
		i, seen := idx[k]
		if !seen {
			idx[k] = len(out)
			out = append(out, Count{Key: k, Label: label})
			i = len(out) - 1
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
