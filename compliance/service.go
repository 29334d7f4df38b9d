/*
service.go - Document lifecycle orchestration

PURPOSE:
  Runs the engine's checks (status.go) before issuing each mutating call
  against the external stores:
  1. Upload: worker exists, tag eligible, then create PENDING
  2. Review: transition validated, no-ops short-circuit the write
  3. Delete: APPROVED documents refused
  4. Bulk: ordered independent single operations, per-item results

VALIDATION ORDER:
  Validation errors (DuplicateDocumentError, IllegalTransitionError) are
  returned before any store mutation and are never retried here.

BULK OPERATIONS:
  A failure partway through a bulk operation does not abort or roll back
  the items already processed. Each item carries its own error; the
  caller surfaces the success count and decides whether to retry.

EXAMPLE:
  svc := compliance.NewDocumentService(store, store, logger)
  doc, err := svc.Upload(ctx, compliance.UploadInput{WorkerID: "123", Tag: compliance.TagContract})
  doc, err = svc.Approve(ctx, doc.ID)

SEE ALSO:
  - status.go: Transition and eligibility rules
  - evaluator.go: Evaluate, used by Compliance
*/
package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService validates and applies document mutations.
type DocumentService struct {
	Workers   WorkerStore
	Documents DocumentStore
	Logger    *zap.Logger

	// Now is overridable for tests.
	Now func() time.Time
}

// NewDocumentService wires a service over the given stores.
func NewDocumentService(workers WorkerStore, docs DocumentStore, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		Workers:   workers,
		Documents: docs,
		Logger:    logger.Named("documents"),
		Now:       time.Now,
	}
}

// =============================================================================
// READS
// =============================================================================

// Requirements resolves the required tags for a stored worker.
func (s *DocumentService) Requirements(ctx context.Context, workerID string) (RequirementSet, error) {
	w, err := s.Workers.GetWorker(ctx, workerID)
	if err != nil {
		return RequirementSet{}, err
	}
	return ResolveFor(*w), nil
}

// Compliance evaluates a stored worker against its current documents.
func (s *DocumentService) Compliance(ctx context.Context, workerID string) (*Evaluation, error) {
	w, err := s.Workers.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	docs, err := s.Documents.ListDocumentsByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	ev := Evaluate(*w, docs)
	return &ev, nil
}

// Summary evaluates every worker for the organization dashboard.
func (s *DocumentService) Summary(ctx context.Context) (Summary, error) {
	workers, err := s.Workers.ListWorkers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list workers: %w", err)
	}
	docs, err := s.Documents.ListDocuments(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list documents: %w", err)
	}
	return Summarize(workers, GroupByWorker(docs)), nil
}

// Find returns all documents matching f.
func (s *DocumentService) Find(ctx context.Context, f Filter) ([]Document, error) {
	docs, err := s.Documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return Apply(docs, f), nil
}

// =============================================================================
// UPLOAD
// =============================================================================

// UploadInput describes an already-transferred file to register.
type UploadInput struct {
	WorkerID    string
	Tag         Tag
	URL         string
	FileName    string
	ExpiryDate  *time.Time
	ProjectCode ProjectCode
}

// Upload registers a new PENDING document after checking eligibility.
// Attendance slot tags are managed by the attendance service and refused here,
// as is Form101, which lives on Worker.Is101.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*Document, error) {
	tag := Tag(strings.TrimSpace(string(in.Tag)))
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is required", ErrInvalidInput)
	}
	if IsAttendanceTag(tag) {
		return nil, fmt.Errorf("%w: %q is uploaded through attendance submission", ErrInvalidInput, tag)
	}
	if tag == TagForm101 {
		return nil, fmt.Errorf("%w: %q is tracked on the worker, not as a document", ErrInvalidInput, tag)
	}

	w, err := s.Workers.GetWorker(ctx, in.WorkerID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Documents.ListDocumentsByWorker(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if err := CanUpload(w.ID, tag, existing); err != nil {
		s.Logger.Info("upload refused",
			zap.String("worker_id", w.ID),
			zap.String("tag", string(tag)),
			zap.Error(err))
		return nil, err
	}

	now := s.Now()
	doc := Document{
		ID:          uuid.NewString(),
		Operator:    Ref{ID: w.ID, DisplayName: w.FullName()},
		Tag:         tag,
		Status:      StatusPending,
		URL:         in.URL,
		FileName:    in.FileName,
		ExpiryDate:  in.ExpiryDate,
		ProjectCode: in.ProjectCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Documents.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.Logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("worker_id", w.ID),
		zap.String("tag", string(tag)))
	return &doc, nil
}

// IsAttendanceTag reports whether t labels a monthly attendance slot document.
func IsAttendanceTag(t Tag) bool {
	return t == TagStudentAttendance || t == TagWorkerAttendance || t == TagControlAttendance
}

// =============================================================================
// REVIEW
// =============================================================================

// SetStatus validates and applies a reviewer status change. No-op
// transitions return the stored document without writing.
func (s *DocumentService) SetStatus(ctx context.Context, id string, status Status) (*Document, error) {
	doc, err := s.Documents.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := ValidateTransition(*doc, status)
	if err != nil {
		return nil, err
	}
	if !changed {
		return doc, nil
	}

	updated, err := s.Documents.SetDocumentStatus(ctx, id, status, s.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to set document status: %w", err)
	}
	s.Logger.Info("document status changed",
		zap.String("document_id", id),
		zap.String("from", string(doc.Status)),
		zap.String("to", string(status)))
	return updated, nil
}

// Approve moves a PENDING document to APPROVED; already-approved is a no-op.
func (s *DocumentService) Approve(ctx context.Context, id string) (*Document, error) {
	return s.SetStatus(ctx, id, StatusApproved)
}

// Reject moves a PENDING document to REJECTED; already-approved is a no-op.
func (s *DocumentService) Reject(ctx context.Context, id string) (*Document, error) {
	return s.SetStatus(ctx, id, StatusRejected)
}

// Delete removes a non-approved document, freeing its tag slot.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Documents.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := CanDelete(*doc); err != nil {
		return err
	}
	if err := s.Documents.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	s.Logger.Info("document deleted", zap.String("document_id", id), zap.String("tag", string(doc.Tag)))
	return nil
}

// ExpireDue marks every current document whose expiry date has passed as
// EXPIRED. Returns how many documents changed.
func (s *DocumentService) ExpireDue(ctx context.Context) (int, error) {
	docs, err := s.Documents.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	now := s.Now()
	expired := 0
	for _, d := range docs {
		if _, changed := Expire(d, now); !changed {
			continue
		}
		if _, err := s.Documents.SetDocumentStatus(ctx, d.ID, StatusExpired, now); err != nil {
			s.Logger.Warn("failed to expire document", zap.String("document_id", d.ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// =============================================================================
// BULK OPERATIONS - Per-item results, no rollback
// =============================================================================

// ItemResult is the outcome of one item in a bulk operation.
type ItemResult struct {
	ID       string
	Document *Document
	Err      error
}

// BulkResult lists per-item outcomes in request order.
type BulkResult struct {
	Items     []ItemResult
	Succeeded int
	Failed    int
}

// FailedIDs returns the IDs of failed items, for a caller-driven retry.
func (r BulkResult) FailedIDs() []string {
	var ids []string
	for _, it := range r.Items {
		if it.Err != nil {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Add appends one outcome and updates the counters.
func (r *BulkResult) Add(item ItemResult) {
	r.Items = append(r.Items, item)
	if item.Err != nil {
		r.Failed++
		return
	}
	r.Succeeded++
}

// BulkSetStatus applies SetStatus to each ID in order.
func (s *DocumentService) BulkSetStatus(ctx context.Context, ids []string, status Status) BulkResult {
	var res BulkResult
	for _, id := range ids {
		doc, err := s.SetStatus(ctx, id, status)
		res.Add(ItemResult{ID: id, Document: doc, Err: err})
	}
	s.Logger.Info("bulk status update",
		zap.String("status", string(status)),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed))
	return res
}

// BulkDelete applies Delete to each ID in order.
func (s *DocumentService) BulkDelete(ctx context.Context, ids []string) BulkResult {
	var res BulkResult
	for _, id := range ids {
		res.Add(ItemResult{ID: id, Err: s.Delete(ctx, id)})
	}
	s.Logger.Info("bulk delete", zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed))
	return res
}
