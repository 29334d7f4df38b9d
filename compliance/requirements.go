/*
requirements.go - Required document resolution

PURPOSE:
  Answers "what must this worker hold", independent of "what has been
  uploaded". The result is derived, never persisted, and recomputed on
  every evaluation since role and program assignment can change.

ALGORITHM:
  1. Base set: ID, PoliceApproval, Contract (every worker)
  2. Not an assistant/cadet      -> + TeachingCertificate
  3. Coordinator (incl. deputy)  -> + SeniorityApproval
  4. Coordinator enrolled in camp -> + CampAttendanceCoordinator
  5. Form101 pseudo-requirement, tracked by Worker.Is101 and flagged
     HasExternalLink because remediation is a government form

SEE ALSO:
  - role.go: Supplies the RoleCategory
  - evaluator.go: Buckets uploaded documents against Documents
*/
package compliance

// Form101URL is where a worker completes the external Form 101.
const Form101URL = "https://www.gov.il/he/service/form-101"

// Requirement is one entry of a RequirementSet.
type Requirement struct {
	Tag             Tag
	HasExternalLink bool
	ExternalURL     string
}

// RequirementSet is the ordered output of Resolve.
// Documents holds upload-backed tags; Form101 is surfaced separately.
type RequirementSet struct {
	Category  RoleCategory
	Documents []Tag
	Form101   Requirement
}

// All returns the document requirements followed by the Form101 entry.
func (rs RequirementSet) All() []Requirement {
	out := make([]Requirement, 0, len(rs.Documents)+1)
	for _, t := range rs.Documents {
		out = append(out, Requirement{Tag: t})
	}
	return append(out, rs.Form101)
}

// Requires reports whether t is an upload-backed requirement.
func (rs RequirementSet) Requires(t Tag) bool {
	for _, d := range rs.Documents {
		if d == t {
			return true
		}
	}
	return false
}

// Resolve computes the ordered required tags for a worker of the given category.
func Resolve(w Worker, category RoleCategory) RequirementSet {
	tags := []Tag{TagID, TagPoliceApproval, TagContract}

	if category != RoleAssistant {
		tags = append(tags, TagTeachingCertificate)
	}
	if category == RoleCoordinator {
		tags = append(tags, TagSeniorityApproval)
		if w.InCamp() {
			tags = append(tags, TagCampAttendanceCoordinator)
		}
	}

	return RequirementSet{
		Category:  category,
		Documents: tags,
		Form101: Requirement{
			Tag:             TagForm101,
			HasExternalLink: true,
			ExternalURL:     Form101URL,
		},
	}
}

// ResolveFor classifies the worker's role label and resolves its requirements.
func ResolveFor(w Worker) RequirementSet {
	return Resolve(w, Classify(w.RoleName))
}
