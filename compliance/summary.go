package compliance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPLIANCE SUMMARY - Organization-wide dashboard aggregate
// =============================================================================

// Summary aggregates per-worker evaluations by summing bucket sizes.
type Summary struct {
	Workers          int
	CompliantWorkers int
	Required         int
	Approved         int
	Pending          int
	Rejected         int
	Missing          int
	Form101Missing   int
	MissingByTag     map[Tag]int
	ComplianceRate   decimal.Decimal // approved / required, percent
	CompliantRate    decimal.Decimal // compliant workers / workers, percent
	Evaluations      []Evaluation
}

var hundred = decimal.NewFromInt(100)

// Summarize evaluates every worker once against its own documents.
// docsByWorker is keyed by Worker.ID.
func Summarize(workers []Worker, docsByWorker map[string][]Document) Summary {
	s := Summary{
		MissingByTag:   make(map[Tag]int),
		ComplianceRate: decimal.Zero,
		CompliantRate:  decimal.Zero,
		Evaluations:    make([]Evaluation, 0, len(workers)),
	}

	for _, w := range workers {
		ev := Evaluate(w, docsByWorker[w.ID])
		s.Evaluations = append(s.Evaluations, ev)

		s.Workers++
		s.Required += len(ev.Required)
		s.Approved += len(ev.Approved)
		s.Pending += len(ev.Pending)
		s.Rejected += len(ev.Rejected)
		s.Missing += len(ev.Missing)
		for _, t := range ev.Missing {
			s.MissingByTag[t]++
		}
		if !ev.Form101.Completed {
			s.Form101Missing++
		}
		if ev.IsCompliant() {
			s.CompliantWorkers++
		}
	}

	s.ComplianceRate = percent(s.Approved, s.Required)
	s.CompliantRate = percent(s.CompliantWorkers, s.Workers)
	return s
}

// GroupByWorker indexes documents by owning worker ID, skipping documents
// without an operator.
func GroupByWorker(docs []Document) map[string][]Document {
	out := make(map[string][]Document)
	for _, d := range docs {
		if d.Operator.ID == "" {
			continue
		}
		out[d.Operator.ID] = append(out[d.Operator.ID], d)
	}
	return out
}

func percent(n, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
}
