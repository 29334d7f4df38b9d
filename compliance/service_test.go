package compliance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kaytana/compliance-engine/compliance"
	"github.com/kaytana/compliance-engine/compliance/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T, workers ...compliance.Worker) (*compliance.DocumentService, *store.Memory) {
	mem := store.NewMemory()
	ctx := context.Background()
	for _, w := range workers {
		require.NoError(t, mem.SaveWorker(ctx, w))
	}

	svc := compliance.NewDocumentService(mem, mem, zaptest.NewLogger(t))
	now := baseTime
	svc.Now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	return svc, mem
}

func upload(t *testing.T, svc *compliance.DocumentService, workerID string, tag compliance.Tag) *compliance.Document {
	d, err := svc.Upload(context.Background(), compliance.UploadInput{
		WorkerID: workerID,
		Tag:      tag,
		URL:      "https://files.example.org/" + workerID,
		FileName: "scan.pdf",
	})
	require.NoError(t, err)
	return d
}

// =============================================================================
// UPLOAD
// =============================================================================

func TestDocumentService_Upload(t *testing.T) {
	svc, mem := newTestService(t, worker("w1", "סייע"))
	ctx := context.Background()

	d := upload(t, svc, "w1", compliance.TagPoliceApproval)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, compliance.StatusPending, d.Status)
	assert.Equal(t, "w1", d.Operator.ID)
	assert.Equal(t, "Test w1", d.Operator.DisplayName)

	stored, err := mem.GetDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, *d, *stored)
}

func TestDocumentService_Upload_DuplicateBlocked(t *testing.T) {
	// GIVEN: A pending police approval
	svc, _ := newTestService(t, worker("w1", "סייע"))
	ctx := context.Background()
	first := upload(t, svc, "w1", compliance.TagPoliceApproval)

	// WHEN: Uploading the same tag again
	_, err := svc.Upload(ctx, compliance.UploadInput{WorkerID: "w1", Tag: compliance.TagPoliceApproval, FileName: "again.pdf"})

	// THEN: DuplicateDocumentError naming the pending document
	var dup *compliance.DuplicateDocumentError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.True(t, compliance.IsConflict(err))

	// AND: After rejection, re-upload is allowed
	_, err = svc.Reject(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, compliance.UploadInput{WorkerID: "w1", Tag: compliance.TagPoliceApproval, FileName: "again.pdf"})
	assert.NoError(t, err)
}

func TestDocumentService_Upload_Refusals(t *testing.T) {
	svc, _ := newTestService(t, worker("w1", "סייע"))
	ctx := context.Background()

	_, err := svc.Upload(ctx, compliance.UploadInput{WorkerID: "w1", Tag: "  "})
	assert.True(t, errors.Is(err, compliance.ErrInvalidInput))

	_, err = svc.Upload(ctx, compliance.UploadInput{WorkerID: "w1", Tag: compliance.TagStudentAttendance})
	assert.True(t, errors.Is(err, compliance.ErrInvalidInput), "attendance tags go through attendance submission")

	_, err = svc.Upload(ctx, compliance.UploadInput{WorkerID: "w1", Tag: compliance.TagForm101, FileName: "f.pdf"})
	assert.True(t, errors.Is(err, compliance.ErrInvalidInput), "form 101 is tracked on the worker")
	docs, err := svc.Documents.ListDocumentsByWorker(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = svc.Upload(ctx, compliance.UploadInput{WorkerID: "nobody", Tag: compliance.TagID})
	assert.True(t, compliance.IsNotFound(err))
}

// =============================================================================
// REVIEW
// =============================================================================

func TestDocumentService_ApproveTwice(t *testing.T) {
	svc, _ := newTestService(t, worker("w1", "מדריך"))
	ctx := context.Background()
	d := upload(t, svc, "w1", compliance.TagID)

	once, err := svc.Approve(ctx, d.ID)
	require.NoError(t, err)
	twice, err := svc.Approve(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, compliance.StatusApproved, twice.Status)
	assert.Equal(t, once.UpdatedAt, twice.UpdatedAt, "second approve does not write")
}

func TestDocumentService_RejectAfterApproveIsNoop(t *testing.T) {
	svc, _ := newTestService(t, worker("w1", "מדריך"))
	ctx := context.Background()
	d := upload(t, svc, "w1", compliance.TagID)
	_, err := svc.Approve(ctx, d.ID)
	require.NoError(t, err)

	got, err := svc.Reject(ctx, d.ID)

	require.NoError(t, err)
	assert.Equal(t, compliance.StatusApproved, got.Status)
}

func TestDocumentService_SetStatus_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SetStatus(context.Background(), "missing", compliance.StatusApproved)
	assert.True(t, errors.Is(err, compliance.ErrDocumentNotFound))
}

func TestDocumentService_Delete(t *testing.T) {
	svc, mem := newTestService(t, worker("w1", "מדריך"))
	ctx := context.Background()
	approved := upload(t, svc, "w1", compliance.TagID)
	_, err := svc.Approve(ctx, approved.ID)
	require.NoError(t, err)
	pending := upload(t, svc, "w1", compliance.TagContract)

	err = svc.Delete(ctx, approved.ID)
	assert.True(t, errors.Is(err, compliance.ErrIllegalTransition), "approved documents are kept")

	require.NoError(t, svc.Delete(ctx, pending.ID))
	_, err = mem.GetDocument(ctx, pending.ID)
	assert.True(t, errors.Is(err, compliance.ErrDocumentNotFound))
}

// =============================================================================
// READS
// =============================================================================

func TestDocumentService_ComplianceAndSummary(t *testing.T) {
	svc, _ := newTestService(t, worker("w1", "סייע"), worker("w2", "רכז קייטנה", compliance.ProjectSummerCamp))
	ctx := context.Background()
	police := upload(t, svc, "w2", compliance.TagPoliceApproval)
	_, err := svc.Approve(ctx, police.ID)
	require.NoError(t, err)

	ev, err := svc.Compliance(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []compliance.Tag{compliance.TagID, compliance.TagPoliceApproval, compliance.TagContract}, ev.Missing)

	ev, err = svc.Compliance(ctx, "w2")
	require.NoError(t, err)
	assert.Equal(t, []compliance.Tag{compliance.TagPoliceApproval}, ev.Approved)
	assert.Len(t, ev.Missing, 5)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Workers)
	assert.Equal(t, 9, sum.Required)
	assert.Equal(t, 1, sum.Approved)

	rs, err := svc.Requirements(ctx, "w2")
	require.NoError(t, err)
	assert.Equal(t, compliance.RoleCoordinator, rs.Category)
}

func TestDocumentService_Find(t *testing.T) {
	svc, _ := newTestService(t, worker("w1", "סייע"), worker("w2", "מדריך"))
	ctx := context.Background()
	upload(t, svc, "w1", compliance.TagID)
	upload(t, svc, "w2", compliance.TagID)
	upload(t, svc, "w2", compliance.TagContract)

	docs, err := svc.Find(ctx, compliance.Filter{WorkerID: "w2"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	all, err := svc.Find(ctx, compliance.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// =============================================================================
// EXPIRY
// =============================================================================

func TestDocumentService_ExpireDue(t *testing.T) {
	svc, mem := newTestService(t, worker("w1", "מדריך"))
	ctx := context.Background()

	past := baseTime.AddDate(0, 0, -1)
	future := baseTime.Add(365 * 24 * time.Hour)
	due, err := svc.Upload(ctx, compliance.UploadInput{WorkerID: "w1", Tag: compliance.TagPoliceApproval, FileName: "p.pdf", ExpiryDate: &past})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, due.ID)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, compliance.UploadInput{WorkerID: "w1", Tag: compliance.TagContract, FileName: "c.pdf", ExpiryDate: &future})
	require.NoError(t, err)

	n, err := svc.ExpireDue(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err := mem.GetDocument(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusExpired, got.Status)

	// Expired documents free the tag and count as rejected.
	ev, err := svc.Compliance(ctx, "w1")
	require.NoError(t, err)
	assert.Contains(t, ev.Rejected, compliance.TagPoliceApproval)
	upload(t, svc, "w1", compliance.TagPoliceApproval)

	n, err = svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep finds nothing")
}

// =============================================================================
// BULK
// =============================================================================

func TestDocumentService_BulkSetStatus_PerItemResults(t *testing.T) {
	// GIVEN: Two pending documents and one unknown ID in the middle
	svc, _ := newTestService(t, worker("w1", "מדריך"))
	ctx := context.Background()
	a := upload(t, svc, "w1", compliance.TagID)
	b := upload(t, svc, "w1", compliance.TagContract)

	// WHEN: Approving all three
	res := svc.BulkSetStatus(ctx, []string{a.ID, "missing", b.ID}, compliance.StatusApproved)

	// THEN: The failure does not abort the rest
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"missing"}, res.FailedIDs())
	require.Len(t, res.Items, 3)
	assert.Equal(t, compliance.StatusApproved, res.Items[2].Document.Status)
}

func TestDocumentService_BulkDelete(t *testing.T) {
	svc, _ := newTestService(t, worker("w1", "מדריך"))
	ctx := context.Background()
	a := upload(t, svc, "w1", compliance.TagID)
	b := upload(t, svc, "w1", compliance.TagContract)
	_, err := svc.Approve(ctx, b.ID)
	require.NoError(t, err)

	res := svc.BulkDelete(ctx, []string{a.ID, b.ID})

	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []string{b.ID}, res.FailedIDs())
	assert.True(t, errors.Is(res.Items[1].Err, compliance.ErrIllegalTransition))
}
