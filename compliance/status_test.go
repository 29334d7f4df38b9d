package compliance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/kaytana/compliance-engine/compliance"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var baseTime = time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)

// doc builds a document created minutes after baseTime.
func doc(id, workerID string, tag compliance.Tag, status compliance.Status, minutes int) compliance.Document {
	created := baseTime.Add(time.Duration(minutes) * time.Minute)
	return compliance.Document{
		ID:        id,
		Operator:  compliance.Ref{ID: workerID},
		Tag:       tag,
		Status:    status,
		FileName:  id + ".pdf",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// =============================================================================
// UPLOAD ELIGIBILITY
// =============================================================================

func TestCanUpload_BlockedByApprovedOrPending(t *testing.T) {
	for _, status := range []compliance.Status{compliance.StatusApproved, compliance.StatusPending} {
		existing := []compliance.Document{doc("d1", "w1", compliance.TagPoliceApproval, status, 0)}

		err := compliance.CanUpload("w1", compliance.TagPoliceApproval, existing)

		require.Error(t, err, status)
		assert.True(t, errors.Is(err, compliance.ErrDuplicateDocument))
		var dup *compliance.DuplicateDocumentError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "d1", dup.ExistingID)
		assert.Equal(t, status, dup.ExistingStatus)
	}
}

func TestCanUpload_AllowedAfterRejectedOrExpired(t *testing.T) {
	for _, status := range []compliance.Status{compliance.StatusRejected, compliance.StatusExpired} {
		existing := []compliance.Document{doc("d1", "w1", compliance.TagPoliceApproval, status, 0)}
		assert.NoError(t, compliance.CanUpload("w1", compliance.TagPoliceApproval, existing), status)
	}
}

func TestCanUpload_OtherTagsAndWorkersIgnored(t *testing.T) {
	existing := []compliance.Document{
		doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0),
		doc("d2", "w2", compliance.TagPoliceApproval, compliance.StatusApproved, 0),
	}
	assert.NoError(t, compliance.CanUpload("w1", compliance.TagPoliceApproval, existing))
	assert.NoError(t, compliance.CanUpload("w1", compliance.TagContract, nil))
}

func TestCanUpload_UnpopulatedOperatorCountsAsOwn(t *testing.T) {
	existing := []compliance.Document{doc("d1", "", compliance.TagContract, compliance.StatusPending, 0)}
	assert.Error(t, compliance.CanUpload("w1", compliance.TagContract, existing))
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestApprove_FromPending(t *testing.T) {
	d := doc("d1", "w1", compliance.TagID, compliance.StatusPending, 0)
	at := baseTime.Add(time.Hour)

	got, err := compliance.Approve(d, at)

	require.NoError(t, err)
	assert.Equal(t, compliance.StatusApproved, got.Status)
	assert.Equal(t, at, got.UpdatedAt)
	assert.Equal(t, compliance.StatusPending, d.Status, "input is not mutated")
}

func TestApprove_Idempotent(t *testing.T) {
	d := doc("d1", "w1", compliance.TagID, compliance.StatusPending, 0)

	once, err := compliance.Approve(d, baseTime.Add(time.Hour))
	require.NoError(t, err)
	twice, err := compliance.Approve(once, baseTime.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestReject_OnApprovedIsNoop(t *testing.T) {
	d := doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0)

	got, err := compliance.Reject(d, baseTime.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestReject_FromPendingAndIdempotent(t *testing.T) {
	d := doc("d1", "w1", compliance.TagID, compliance.StatusPending, 0)

	once, err := compliance.Reject(d, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusRejected, once.Status)

	twice, err := compliance.Reject(once, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestApprove_FromRejectedIsIllegal(t *testing.T) {
	d := doc("d1", "w1", compliance.TagID, compliance.StatusRejected, 0)

	_, err := compliance.Approve(d, baseTime)

	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrIllegalTransition))
	var ill *compliance.IllegalTransitionError
	require.True(t, errors.As(err, &ill))
	assert.Equal(t, compliance.StatusRejected, ill.From)
	assert.Equal(t, compliance.StatusApproved, ill.To)
}

func TestValidateTransition_Table(t *testing.T) {
	tests := []struct {
		from    compliance.Status
		to      compliance.Status
		changed bool
		illegal bool
	}{
		{compliance.StatusPending, compliance.StatusApproved, true, false},
		{compliance.StatusPending, compliance.StatusRejected, true, false},
		{compliance.StatusPending, compliance.StatusPending, false, false},
		{compliance.StatusPending, compliance.StatusExpired, false, true},
		{compliance.StatusApproved, compliance.StatusApproved, false, false},
		{compliance.StatusApproved, compliance.StatusRejected, false, false},
		{compliance.StatusApproved, compliance.StatusPending, false, true},
		{compliance.StatusRejected, compliance.StatusRejected, false, false},
		{compliance.StatusRejected, compliance.StatusApproved, false, true},
		{compliance.StatusRejected, compliance.StatusPending, false, true},
		{compliance.StatusExpired, compliance.StatusApproved, false, true},
		{compliance.StatusExpired, compliance.StatusPending, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			changed, err := compliance.ValidateTransition(doc("d1", "w1", compliance.TagID, tt.from, 0), tt.to)
			assert.Equal(t, tt.changed, changed)
			if tt.illegal {
				assert.True(t, errors.Is(err, compliance.ErrIllegalTransition))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	_, err := compliance.ValidateTransition(doc("d1", "w1", compliance.TagID, compliance.StatusPending, 0), "ARCHIVED")
	assert.True(t, errors.Is(err, compliance.ErrInvalidInput))
}

// =============================================================================
// EXPIRY & DELETION
// =============================================================================

func TestExpire(t *testing.T) {
	past := baseTime.Add(-24 * time.Hour)
	future := baseTime.Add(24 * time.Hour)

	approved := doc("d1", "w1", compliance.TagPoliceApproval, compliance.StatusApproved, 0)
	approved.ExpiryDate = &past
	got, changed := compliance.Expire(approved, baseTime)
	assert.True(t, changed)
	assert.Equal(t, compliance.StatusExpired, got.Status)

	pending := doc("d2", "w1", compliance.TagPoliceApproval, compliance.StatusPending, 0)
	pending.ExpiryDate = &future
	_, changed = compliance.Expire(pending, baseTime)
	assert.False(t, changed, "not yet due")

	rejected := doc("d3", "w1", compliance.TagPoliceApproval, compliance.StatusRejected, 0)
	rejected.ExpiryDate = &past
	_, changed = compliance.Expire(rejected, baseTime)
	assert.False(t, changed, "rejected documents stay rejected")

	noExpiry := doc("d4", "w1", compliance.TagID, compliance.StatusApproved, 0)
	_, changed = compliance.Expire(noExpiry, baseTime)
	assert.False(t, changed)
}

func TestExpire_ExpiryDayIsInclusive(t *testing.T) {
	// GIVEN: A document valid through 2025-07-31
	lastDay := time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)
	d := doc("d1", "w1", compliance.TagPoliceApproval, compliance.StatusApproved, 0)
	d.ExpiryDate = &lastDay

	// THEN: It is still valid during its last day
	_, changed := compliance.Expire(d, lastDay.Add(9*time.Hour))
	assert.False(t, changed)
	_, changed = compliance.Expire(d, lastDay.Add(24*time.Hour-time.Nanosecond))
	assert.False(t, changed)

	// AND: It expires when the next day begins
	got, changed := compliance.Expire(d, lastDay.AddDate(0, 0, 1))
	assert.True(t, changed)
	assert.Equal(t, compliance.StatusExpired, got.Status)
}

func TestCanDelete(t *testing.T) {
	assert.Error(t, compliance.CanDelete(doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0)))
	assert.True(t, errors.Is(compliance.CanDelete(doc("d1", "w1", compliance.TagID, compliance.StatusApproved, 0)), compliance.ErrIllegalTransition))

	for _, status := range []compliance.Status{compliance.StatusPending, compliance.StatusRejected, compliance.StatusExpired} {
		assert.NoError(t, compliance.CanDelete(doc("d1", "w1", compliance.TagID, status, 0)), status)
	}
}
