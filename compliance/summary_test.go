package compliance_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/kaytana/compliance-engine/compliance"
)

func TestSummarize_SumsPerWorkerEvaluations(t *testing.T) {
	// GIVEN: A compliant instructor and an assistant with nothing uploaded
	instructor := worker("w1", "מדריך")
	instructor.Is101 = true
	assistant := worker("w2", "סייע")

	docs := []compliance.Document{
		doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0),
		doc("d2", "w1", compliance.TagPoliceApproval, compliance.StatusApproved, 0),
		doc("d3", "w1", compliance.TagContract, compliance.StatusApproved, 0),
		doc("d4", "w1", compliance.TagTeachingCertificate, compliance.StatusApproved, 0),
	}

	// WHEN: Summarizing
	s := compliance.Summarize([]compliance.Worker{instructor, assistant}, compliance.GroupByWorker(docs))

	// THEN: Bucket sizes are summed and rates computed over them
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, 1, s.CompliantWorkers)
	assert.Equal(t, 7, s.Required)
	assert.Equal(t, 4, s.Approved)
	assert.Equal(t, 3, s.Missing)
	assert.Equal(t, 1, s.Form101Missing)
	assert.Equal(t, 1, s.MissingByTag[compliance.TagContract])
	assert.Zero(t, s.MissingByTag[compliance.TagTeachingCertificate])
	require.Len(t, s.Evaluations, 2)

	assert.True(t, s.ComplianceRate.Equal(decimal.RequireFromString("57.14")), s.ComplianceRate.String())
	assert.True(t, s.CompliantRate.Equal(decimal.NewFromInt(50)), s.CompliantRate.String())
}

func TestSummarize_Empty(t *testing.T) {
	s := compliance.Summarize(nil, nil)

	assert.Zero(t, s.Workers)
	assert.True(t, s.ComplianceRate.IsZero())
	assert.True(t, s.CompliantRate.IsZero())
	assert.NotNil(t, s.MissingByTag)
}

func TestGroupByWorker_SkipsUnownedDocuments(t *testing.T) {
	docs := []compliance.Document{
		doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0),
		doc("d2", "", compliance.TagID, compliance.StatusApproved, 0),
		doc("d3", "w1", compliance.TagContract, compliance.StatusPending, 0),
	}

	byWorker := compliance.GroupByWorker(docs)

	assert.Len(t, byWorker, 1)
	assert.Len(t, byWorker["w1"], 2)
}
