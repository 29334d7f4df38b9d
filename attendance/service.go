/*
service.go - Attendance record management

PURPOSE:
  Orchestrates submissions and deletions against the record and document
  stores while keeping the record invariants:
  1. Submit: duplicate check before any write, explicit replace confirmation
  2. ReplaceSlot: swap one slot's document, other slots untouched
  3. DeleteSlot: delete the document, then clear only that slot
  4. DeleteRecord: cascading delete as discrete, individually reported steps

CASCADE DELETE:
  ┌──────────────┐   ┌──────────────┐   ┌──────────────┐   ┌────────────┐
  │ student doc  │──▶│  worker doc  │──▶│ control doc  │──▶│   record   │
  └──────────────┘   └──────────────┘   └──────────────┘   └────────────┘
  Every slot is checked as deletable before the first step runs. If a
  document delete fails, the remaining steps are skipped, slots already
  emptied are cleared on the record, and the record itself is kept.

SEE ALSO:
  - reconciler.go: CheckDuplicate, Combine
  - compliance/status.go: CanDelete guards every document delete
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaytana/compliance-engine/compliance"
)

// Reviewer applies validated status changes to single documents.
// *compliance.DocumentService implements it.
type Reviewer interface {
	SetStatus(ctx context.Context, id string, status compliance.Status) (*compliance.Document, error)
}

// Service manages attendance records.
type Service struct {
	Records   Store
	Documents compliance.DocumentStore
	Reviewer  Reviewer
	Logger    *zap.Logger

	Now func() time.Time
}

// NewService wires an attendance service.
func NewService(records Store, docs compliance.DocumentStore, reviewer Reviewer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Records:   records,
		Documents: docs,
		Reviewer:  reviewer,
		Logger:    logger.Named("attendance"),
		Now:       time.Now,
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SlotUpload is an already-transferred file destined for one slot.
type SlotUpload struct {
	URL      string
	FileName string
}

// Submission is a monthly attendance upload for one class.
type Submission struct {
	WorkerID    string
	Class       compliance.Ref
	Month       Month
	ProjectCode compliance.ProjectCode

	Student *SlotUpload
	Worker  *SlotUpload
	Control *SlotUpload
}

func (s Submission) upload(slot Slot) *SlotUpload {
	switch slot {
	case SlotStudent:
		return s.Student
	case SlotWorker:
		return s.Worker
	}
	return s.Control
}

func (s Submission) key() Key {
	return Key{WorkerID: s.WorkerID, ClassID: s.Class.ID, Month: s.Month}
}

func (s Submission) validate() error {
	switch {
	case s.WorkerID == "":
		return fmt.Errorf("%w: worker is required", compliance.ErrInvalidInput)
	case s.Class.ID == "":
		return fmt.Errorf("%w: class is required", compliance.ErrInvalidInput)
	case !s.Month.Valid():
		return fmt.Errorf("%w: month %q is not yyyy-MM", compliance.ErrInvalidInput, s.Month)
	case s.Student == nil && s.Worker == nil && s.Control == nil:
		return fmt.Errorf("%w: no documents submitted", compliance.ErrInvalidInput)
	}
	return nil
}

// Check runs the duplicate check alone, so a UI can ask for confirmation
// before transferring any files.
func (s *Service) Check(ctx context.Context, sub Submission) error {
	existing, err := s.Records.ListAttendance(ctx, Query{WorkerID: sub.WorkerID, ClassID: sub.Class.ID, Month: sub.Month})
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}
	return CheckDuplicate(existing, sub.key())
}

// Submit creates a record or, with confirmReplace, overwrites the slots the
// submission carries on the existing record for the same (worker, class,
// month). Without confirmation a collision returns
// ReplacementConfirmationRequired and nothing is written.
func (s *Service) Submit(ctx context.Context, sub Submission, confirmReplace bool) (*Record, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}

	var (
		base      Record
		replacing bool
	)
	if err := s.Check(ctx, sub); err != nil {
		var confirm *ReplacementConfirmationRequired
		if !errors.As(err, &confirm) || !confirmReplace {
			return nil, err
		}
		base, replacing = confirm.Existing, true
	}

	now := s.Now()
	if !replacing {
		if sub.Student == nil && sub.Worker == nil {
			return nil, fmt.Errorf("%w: a new record needs the student or worker attendance document", compliance.ErrInvalidInput)
		}
		base = Record{
			ID:          uuid.NewString(),
			Worker:      compliance.Ref{ID: sub.WorkerID},
			Class:       sub.Class,
			Month:       sub.Month,
			ProjectCode: sub.ProjectCode,
			CreatedAt:   now,
		}
	}

	// Every replaced document must be deletable before anything is written.
	var replaced []compliance.Document
	for _, slot := range Slots {
		if sub.upload(slot) == nil {
			continue
		}
		if old := base.Doc(slot); old != nil {
			if err := compliance.CanDelete(*old); err != nil {
				return nil, err
			}
			replaced = append(replaced, *old)
		}
	}

	record := base
	var created []compliance.Document
	for _, slot := range Slots {
		up := sub.upload(slot)
		if up == nil {
			continue
		}
		doc := s.newDocument(record, slot, *up, now)
		if err := s.Documents.CreateDocument(ctx, doc); err != nil {
			s.rollbackCreated(ctx, created)
			return nil, fmt.Errorf("failed to create %s document: %w", slot, err)
		}
		created = append(created, doc)
		record = record.WithDoc(slot, &doc)
	}
	record.UpdatedAt = now

	if err := s.Records.SaveAttendance(ctx, record); err != nil {
		s.rollbackCreated(ctx, created)
		return nil, fmt.Errorf("failed to save attendance: %w", err)
	}
	s.deleteUnreferenced(ctx, replaced)

	s.Logger.Info("attendance submitted",
		zap.String("record_id", record.ID),
		zap.String("worker_id", record.Worker.ID),
		zap.String("class_id", record.Class.ID),
		zap.String("month", string(record.Month)),
		zap.Bool("replaced", replacing))
	return &record, nil
}

// ReplaceSlot uploads a new document into one slot of an existing record.
// The other slots keep their references.
func (s *Service) ReplaceSlot(ctx context.Context, recordID string, slot Slot, up SlotUpload) (*Record, error) {
	rec, err := s.Records.GetAttendance(ctx, recordID)
	if err != nil {
		return nil, err
	}
	old := rec.Doc(slot)
	if old != nil {
		if err := compliance.CanDelete(*old); err != nil {
			return nil, err
		}
	}

	now := s.Now()
	doc := s.newDocument(*rec, slot, up, now)
	if err := s.Documents.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create %s document: %w", slot, err)
	}
	updated := rec.WithDoc(slot, &doc)
	updated.UpdatedAt = now
	if err := s.Records.SaveAttendance(ctx, updated); err != nil {
		s.rollbackCreated(ctx, []compliance.Document{doc})
		return nil, fmt.Errorf("failed to save attendance: %w", err)
	}
	if old != nil {
		s.deleteUnreferenced(ctx, []compliance.Document{*old})
	}
	return &updated, nil
}

func (s *Service) newDocument(r Record, slot Slot, up SlotUpload, now time.Time) compliance.Document {
	class := r.Class
	return compliance.Document{
		ID:          uuid.NewString(),
		Operator:    r.Worker,
		Tag:         slot.Tag(),
		Status:      compliance.StatusPending,
		URL:         up.URL,
		FileName:    up.FileName,
		Class:       &class,
		ProjectCode: r.ProjectCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Service) rollbackCreated(ctx context.Context, docs []compliance.Document) {
	for _, d := range docs {
		if err := s.Documents.DeleteDocument(ctx, d.ID); err != nil && !errors.Is(err, compliance.ErrDocumentNotFound) {
			s.Logger.Error("failed to roll back created document", zap.String("document_id", d.ID), zap.Error(err))
		}
	}
}

// deleteUnreferenced removes documents that no record points at anymore.
func (s *Service) deleteUnreferenced(ctx context.Context, docs []compliance.Document) {
	for _, d := range docs {
		if err := s.Documents.DeleteDocument(ctx, d.ID); err != nil && !errors.Is(err, compliance.ErrDocumentNotFound) {
			s.Logger.Warn("failed to delete replaced document", zap.String("document_id", d.ID), zap.Error(err))
		}
	}
}

// =============================================================================
// READS
// =============================================================================

// Grouped lists records matching q grouped by month and class.
func (s *Service) Grouped(ctx context.Context, q Query) ([]MonthGroup, error) {
	records, err := s.Records.ListAttendance(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return Group(records), nil
}

// =============================================================================
// DELETION
// =============================================================================

// DeleteSlot deletes the document in one slot and clears that slot only.
func (s *Service) DeleteSlot(ctx context.Context, recordID string, slot Slot) (*Record, error) {
	rec, err := s.Records.GetAttendance(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if doc := rec.Doc(slot); doc != nil {
		if err := compliance.CanDelete(*doc); err != nil {
			return nil, err
		}
		if err := s.Documents.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, compliance.ErrDocumentNotFound) {
			return nil, fmt.Errorf("failed to delete %s document: %w", slot, err)
		}
	}
	if err := s.Records.ClearAttendanceSlot(ctx, recordID, slot); err != nil {
		return nil, fmt.Errorf("failed to clear slot %s: %w", slot, err)
	}
	cleared := rec.WithDoc(slot, nil)
	return &cleared, nil
}

// DeleteReport lists the steps of a completed cascading delete.
type DeleteReport struct {
	RecordID string
	Steps    []StepResult
}

// DeleteRecord deletes every slot document and then the record. On a failed
// step the record is kept with the already-deleted slots cleared, and a
// CascadeDeleteError lists each step.
func (s *Service) DeleteRecord(ctx context.Context, id string) (*DeleteReport, error) {
	rec, err := s.Records.GetAttendance(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, d := range rec.Documents() {
		if err := compliance.CanDelete(d); err != nil {
			return nil, err
		}
	}

	report := &DeleteReport{RecordID: id}
	var deleted []Slot
	for _, slot := range Slots {
		doc := rec.Doc(slot)
		if doc == nil {
			continue
		}
		err := s.Documents.DeleteDocument(ctx, doc.ID)
		if errors.Is(err, compliance.ErrDocumentNotFound) {
			err = nil
		}
		report.Steps = append(report.Steps, StepResult{Slot: slot, DocumentID: doc.ID, Err: err})
		if err != nil {
			s.clearSlots(ctx, id, deleted)
			s.Logger.Warn("cascade delete stopped",
				zap.String("record_id", id),
				zap.String("slot", string(slot)),
				zap.Error(err))
			return nil, &CascadeDeleteError{RecordID: id, Steps: report.Steps}
		}
		deleted = append(deleted, slot)
	}

	if err := s.Records.DeleteAttendance(ctx, id); err != nil {
		s.clearSlots(ctx, id, deleted)
		return nil, fmt.Errorf("failed to delete attendance record: %w", err)
	}
	s.Logger.Info("attendance record deleted", zap.String("record_id", id), zap.Int("documents", len(deleted)))
	return report, nil
}

func (s *Service) clearSlots(ctx context.Context, id string, slots []Slot) {
	for _, slot := range slots {
		if err := s.Records.ClearAttendanceSlot(ctx, id, slot); err != nil {
			s.Logger.Error("failed to clear slot after partial delete",
				zap.String("record_id", id),
				zap.String("slot", string(slot)),
				zap.Error(err))
		}
	}
}

// =============================================================================
// REVIEW
// =============================================================================

// SetRecordStatus applies status to every slot document of a record, one
// independent step per document.
func (s *Service) SetRecordStatus(ctx context.Context, id string, status compliance.Status) (compliance.BulkResult, error) {
	rec, err := s.Records.GetAttendance(ctx, id)
	if err != nil {
		return compliance.BulkResult{}, err
	}
	var ids []string
	for _, d := range rec.Documents() {
		ids = append(ids, d.ID)
	}

	var res compliance.BulkResult
	for _, docID := range ids {
		doc, err := s.Reviewer.SetStatus(ctx, docID, status)
		res.Add(compliance.ItemResult{ID: docID, Document: doc, Err: err})
	}
	return res, nil
}
