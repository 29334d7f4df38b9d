package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/kaytana/compliance-engine/compliance"
)

func TestEvaluate_AssistantWithNoDocuments(t *testing.T) {
	// GIVEN: A worker with role "סייע" and nothing uploaded
	// WHEN: Evaluating compliance
	// THEN: ID, police approval and contract are missing; no teaching certificate

	ev := compliance.Evaluate(worker("w1", "סייע"), nil)

	assert.Equal(t, compliance.RoleAssistant, ev.Category)
	assert.Equal(t, []compliance.Tag{compliance.TagID, compliance.TagPoliceApproval, compliance.TagContract}, ev.Missing)
	assert.Empty(t, ev.Approved)
	assert.Empty(t, ev.Pending)
	assert.Empty(t, ev.Rejected)
	assert.False(t, ev.IsCompliant())
}

func TestEvaluate_CampCoordinatorWithPoliceApproval(t *testing.T) {
	// GIVEN: A camp coordinator whose only document is an approved police approval
	// WHEN: Evaluating compliance
	// THEN: Police approval is approved, everything else required is missing

	w := worker("w1", "רכז קייטנה", compliance.ProjectSummerCamp)
	docs := []compliance.Document{doc("d1", "w1", compliance.TagPoliceApproval, compliance.StatusApproved, 0)}

	ev := compliance.Evaluate(w, docs)

	assert.Equal(t, []compliance.Tag{compliance.TagPoliceApproval}, ev.Approved)
	assert.Equal(t, []compliance.Tag{
		compliance.TagID,
		compliance.TagContract,
		compliance.TagTeachingCertificate,
		compliance.TagSeniorityApproval,
		compliance.TagCampAttendanceCoordinator,
	}, ev.Missing)
}

func TestEvaluate_BucketsArePartition(t *testing.T) {
	// GIVEN: A coordinator with documents in every status, including
	// superseded ones and documents for tags that are not required
	w := worker("w1", "רכז", compliance.ProjectPassoverCamp)
	docs := []compliance.Document{
		doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0),
		doc("d2", "w1", compliance.TagPoliceApproval, compliance.StatusRejected, 0),
		doc("d3", "w1", compliance.TagPoliceApproval, compliance.StatusPending, 10),
		doc("d4", "w1", compliance.TagContract, compliance.StatusExpired, 0),
		doc("d5", "w1", compliance.TagMedicalApproval, compliance.StatusApproved, 0),
		doc("d6", "w2", compliance.TagTeachingCertificate, compliance.StatusApproved, 0),
	}

	ev := compliance.Evaluate(w, docs)

	// THEN: Every required tag lands in exactly one bucket
	seen := make(map[compliance.Tag]int)
	for _, bucket := range [][]compliance.Tag{ev.Approved, ev.Pending, ev.Rejected, ev.Missing} {
		for _, tag := range bucket {
			seen[tag]++
		}
	}
	assert.Len(t, seen, len(ev.Required))
	for _, tag := range ev.Required {
		assert.Equal(t, 1, seen[tag], tag)
	}

	assert.Equal(t, []compliance.Tag{compliance.TagID}, ev.Approved)
	assert.Equal(t, []compliance.Tag{compliance.TagPoliceApproval}, ev.Pending, "latest document decides")
	assert.Equal(t, []compliance.Tag{compliance.TagContract}, ev.Rejected, "expired counts as rejected")
	assert.Contains(t, ev.Missing, compliance.TagTeachingCertificate, "other workers' documents are ignored")
	assert.NotContains(t, ev.Approved, compliance.TagMedicalApproval, "unrequired tags never appear")
}

func TestEvaluate_LatestDocumentTieGoesToLaterEntry(t *testing.T) {
	docs := []compliance.Document{
		doc("d1", "w1", compliance.TagID, compliance.StatusRejected, 0),
		doc("d2", "w1", compliance.TagID, compliance.StatusApproved, 0),
	}

	ev := compliance.Evaluate(worker("w1", "מדריך"), docs)

	assert.Equal(t, "d2", ev.Current[compliance.TagID].ID)
	assert.Contains(t, ev.Approved, compliance.TagID)
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	docs := []compliance.Document{
		doc("d2", "w1", compliance.TagID, compliance.StatusApproved, 10),
		doc("d1", "w1", compliance.TagID, compliance.StatusRejected, 0),
	}
	snapshot := append([]compliance.Document(nil), docs...)

	compliance.Evaluate(worker("w1", "מדריך"), docs)

	assert.Equal(t, snapshot, docs)
}

func TestEvaluate_Form101SeparateFromBuckets(t *testing.T) {
	w := worker("w1", "מדריך")
	w.Is101 = true
	docs := []compliance.Document{
		doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0),
		doc("d2", "w1", compliance.TagPoliceApproval, compliance.StatusApproved, 0),
		doc("d3", "w1", compliance.TagContract, compliance.StatusApproved, 0),
		doc("d4", "w1", compliance.TagTeachingCertificate, compliance.StatusApproved, 0),
	}

	ev := compliance.Evaluate(w, docs)

	assert.True(t, ev.Form101.Completed)
	assert.True(t, ev.Form101.HasExternalLink)
	assert.NotContains(t, ev.Required, compliance.TagForm101)
	assert.True(t, ev.IsCompliant())

	w.Is101 = false
	ev = compliance.Evaluate(w, docs)
	assert.False(t, ev.IsCompliant(), "Form 101 still outstanding")
	assert.Empty(t, ev.Outstanding())
}

func TestEvaluation_Outstanding(t *testing.T) {
	docs := []compliance.Document{doc("d1", "w1", compliance.TagPoliceApproval, compliance.StatusRejected, 0)}

	ev := compliance.Evaluate(worker("w1", "סייע"), docs)

	assert.Equal(t, []compliance.Tag{compliance.TagID, compliance.TagContract, compliance.TagPoliceApproval}, ev.Outstanding())
}
