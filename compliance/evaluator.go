/*
evaluator.go - Per-worker compliance evaluation

PURPOSE:
  Combines the RequirementResolver output with a worker's uploaded
  documents into an approved / pending / rejected / missing breakdown.
  Basis for the per-worker missing-documents banner and, summed over
  workers, for the organization dashboard (summary.go).

BUCKETING:
  For each required tag the most recent document with that tag decides:
    APPROVED           -> Approved
    PENDING            -> Pending
    REJECTED, EXPIRED  -> Rejected (both need a fresh upload)
    no document        -> Missing
  The four buckets partition the required tags.

FORM 101:
  Evaluated from Worker.Is101 and surfaced in Form101, never mixed into
  the tag buckets since it has no document to approve or reject.

COMPLEXITY:
  O(requiredTags × documents). Inputs are never mutated. Callers must
  re-fetch and re-evaluate after any mutation; results are snapshots.
*/
package compliance

// Form101Status reports the external Form 101 pseudo-requirement.
type Form101Status struct {
	Completed       bool
	HasExternalLink bool
	ExternalURL     string
}

// Evaluation is the compliance breakdown for one worker.
type Evaluation struct {
	WorkerID string
	Category RoleCategory
	Required []Tag
	Approved []Tag
	Pending  []Tag
	Rejected []Tag
	Missing  []Tag
	Form101  Form101Status

	// Current maps each required tag to the document that decided its bucket.
	Current map[Tag]Document
}

// IsCompliant reports whether every required tag is approved and Form 101 is done.
func (e Evaluation) IsCompliant() bool {
	return len(e.Approved) == len(e.Required) && e.Form101.Completed
}

// Outstanding returns the tags still needing worker action (missing or rejected).
func (e Evaluation) Outstanding() []Tag {
	out := make([]Tag, 0, len(e.Missing)+len(e.Rejected))
	out = append(out, e.Missing...)
	return append(out, e.Rejected...)
}

// Evaluate computes the compliance breakdown of w against docs.
func Evaluate(w Worker, docs []Document) Evaluation {
	reqs := ResolveFor(w)
	return EvaluateAgainst(w, reqs, docs)
}

// EvaluateAgainst buckets docs against an already-resolved requirement set.
func EvaluateAgainst(w Worker, reqs RequirementSet, docs []Document) Evaluation {
	ev := Evaluation{
		WorkerID: w.ID,
		Category: reqs.Category,
		Required: append([]Tag(nil), reqs.Documents...),
		Approved: []Tag{},
		Pending:  []Tag{},
		Rejected: []Tag{},
		Missing:  []Tag{},
		Form101: Form101Status{
			Completed:       w.Is101,
			HasExternalLink: reqs.Form101.HasExternalLink,
			ExternalURL:     reqs.Form101.ExternalURL,
		},
		Current: make(map[Tag]Document, len(reqs.Documents)),
	}

	for _, tag := range reqs.Documents {
		doc, ok := latest(w.ID, tag, docs)
		if !ok {
			ev.Missing = append(ev.Missing, tag)
			continue
		}
		ev.Current[tag] = doc
		switch doc.Status {
		case StatusApproved:
			ev.Approved = append(ev.Approved, tag)
		case StatusPending:
			ev.Pending = append(ev.Pending, tag)
		default:
			ev.Rejected = append(ev.Rejected, tag)
		}
	}
	return ev
}

// latest returns the most recently created document for tag. Ties go to the
// later entry in docs.
func latest(workerID string, tag Tag, docs []Document) (Document, bool) {
	var (
		best  Document
		found bool
	)
	for _, d := range docs {
		if d.Tag != tag || !ownedBy(d, workerID) {
			continue
		}
		if !found || !d.CreatedAt.Before(best.CreatedAt) {
			best = d
			found = true
		}
	}
	return best, found
}
