/*
handlers.go - HTTP API handlers for the compliance engine

PURPOSE:
  Exposes worker compliance, document review and monthly attendance via
  REST. Handles HTTP request/response, JSON serialization and validation,
  and delegates to the compliance and attendance services.

ENDPOINTS:
  Workers:
    GET    /api/workers                        List workers
    POST   /api/workers                        Create or update a worker
    GET    /api/workers/{id}                   Get worker
    GET    /api/workers/{id}/requirements      Resolved requirement list
    GET    /api/workers/{id}/compliance        Approved/pending/rejected/missing
    GET    /api/workers/{id}/documents         Worker's documents
    POST   /api/workers/{id}/documents         Register an uploaded document

  Documents:
    GET    /api/documents                      Filtered list
    GET    /api/documents/summary              Counts by tag/status/worker
    POST   /api/documents/{id}/approve         Approve
    POST   /api/documents/{id}/reject          Reject
    PUT    /api/documents/{id}/status          Set status
    DELETE /api/documents/{id}                 Delete (not APPROVED)
    POST   /api/documents/bulk/status          Bulk status, per-item results
    POST   /api/documents/bulk/delete          Bulk delete, per-item results

  Attendance:
    GET    /api/attendance                     Grouped by month, then class
    POST   /api/attendance                     Submit (409 until confirmed)
    DELETE /api/attendance/{id}                Cascading delete
    PUT    /api/attendance/{id}/slots/{slot}   Replace one slot
    DELETE /api/attendance/{id}/slots/{slot}   Delete one slot
    POST   /api/attendance/{id}/status         Review every slot document

  Dashboard:
    GET    /api/dashboard/compliance           Organization-wide summary

ERROR HANDLING:
  Domain errors map to HTTP status in writeDomainError:
  - 400: Validation errors, ambiguous references, invalid input
  - 404: Worker, document or attendance record not found
  - 409: Duplicate upload, illegal transition, replacement confirmation
  - 500: Cascade delete stopped early (body lists every step), internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kaytana/compliance-engine/attendance"
	"github.com/kaytana/compliance-engine/compliance"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the handlers need from persistence.
// *sqlite.Store and *store.Memory implement it.
type Store interface {
	compliance.WorkerStore
	compliance.DocumentStore
	attendance.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      Store
	Documents  *compliance.DocumentService
	Attendance *attendance.Service
	Logger     *zap.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with services wired over the given store.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	docs := compliance.NewDocumentService(store, store, logger)
	return &Handler{
		Store:      store,
		Documents:  docs,
		Attendance: attendance.NewService(store, store, docs, logger),
		Logger:     logger.Named("api"),
		validate:   validator.New(),
	}
}

// decode reads a JSON body into dst and runs struct validation.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", compliance.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: invalid fields: %s", compliance.ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", compliance.ErrInvalidInput, err)
	}
	return nil
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns all workers.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}

	dtos := make([]WorkerDTO, len(workers))
	for i, wk := range workers {
		dtos[i] = toWorkerDTO(wk)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWorker returns a single worker.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	wk, err := h.Store.GetWorker(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get worker", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*wk))
}

// CreateWorker creates or updates a worker.
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	wk := req.toWorker()
	if err := h.Store.SaveWorker(r.Context(), wk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save worker", err)
		return
	}
	saved, err := h.Store.GetWorker(r.Context(), wk.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to reload worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkerDTO(*saved))
}

// GetRequirements returns the resolved requirement list for a worker.
func (h *Handler) GetRequirements(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rs, err := h.Documents.Requirements(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to resolve requirements", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequirementsDTO(id, rs))
}

// GetCompliance returns the approved/pending/rejected/missing breakdown.
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	eval, err := h.Documents.Compliance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to evaluate compliance", err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationDTO(*eval))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// ListWorkerDocuments returns one worker's documents.
func (h *Handler) ListWorkerDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetWorker(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to get worker", err)
		return
	}
	docs, err := h.Store.ListDocumentsByWorker(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTOs(docs))
}

// UploadDocument registers an already-transferred file for a worker.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	var req UploadDocumentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := compliance.UploadInput{
		WorkerID:    chi.URLParam(r, "id"),
		Tag:         compliance.Tag(req.Tag),
		URL:         req.URL,
		FileName:    req.FileName,
		ProjectCode: compliance.ProjectCode(req.ProjectCode),
	}
	if req.ExpiryDate != "" {
		d, err := time.Parse(dateLayout, req.ExpiryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expiryDate format (use YYYY-MM-DD)", err)
			return
		}
		in.ExpiryDate = &d
	}

	doc, err := h.Documents.Upload(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to upload document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(*doc))
}

// ListDocuments returns documents matching the query filter.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	f, err := parseDocumentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	docs, err := h.Documents.Find(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTOs(docs))
}

// DocumentSummary returns count-by summaries over the filtered documents.
func (h *Handler) DocumentSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseDocumentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	docs, err := h.Documents.Find(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentSummaryDTO{
		Total:    len(docs),
		ByTag:    toCountDTOs(compliance.CountByTag(docs)),
		ByStatus: toCountDTOs(compliance.CountByStatus(docs)),
		ByWorker: toCountDTOs(compliance.CountByWorker(docs)),
	})
}

// ApproveDocument approves a document.
func (h *Handler) ApproveDocument(w http.ResponseWriter, r *http.Request) {
	h.setDocumentStatus(w, r, compliance.StatusApproved)
}

// RejectDocument rejects a document.
func (h *Handler) RejectDocument(w http.ResponseWriter, r *http.Request) {
	h.setDocumentStatus(w, r, compliance.StatusRejected)
}

// SetDocumentStatus applies the status from the request body.
func (h *Handler) SetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.setDocumentStatus(w, r, compliance.Status(req.Status))
}

func (h *Handler) setDocumentStatus(w http.ResponseWriter, r *http.Request, status compliance.Status) {
	doc, err := h.Documents.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.writeDomainError(w, "Failed to update document status", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(*doc))
}

// DeleteDocument deletes a document that is not APPROVED.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Documents.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete document", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// BulkSetStatus applies one status to many documents.
// Always 200; the body carries per-item outcomes.
func (h *Handler) BulkSetStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkStatusRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res := h.Documents.BulkSetStatus(r.Context(), req.IDs, compliance.Status(req.Status))
	writeJSON(w, http.StatusOK, toBulkResultDTO(res))
}

// BulkDelete deletes many documents.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res := h.Documents.BulkDelete(r.Context(), req.IDs)
	writeJSON(w, http.StatusOK, toBulkResultDTO(res))
}

// parseDocumentFilter reads status, tag, worker, class, project, from and to.
// Dates are YYYY-MM-DD; "to" covers the whole day.
func parseDocumentFilter(r *http.Request) (compliance.Filter, error) {
	q := r.URL.Query()
	var f compliance.Filter

	if v := q.Get("status"); v != "" {
		s := compliance.Status(strings.ToUpper(v))
		if !s.Valid() {
			return f, fmt.Errorf("unknown status %q", v)
		}
		f.Status = &s
	}
	if v := q.Get("tag"); v != "" {
		t := compliance.Tag(v)
		f.Tag = &t
	}
	f.WorkerID = q.Get("worker")
	f.ClassID = q.Get("class")
	if v := q.Get("project"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid project %q", v)
		}
		p := compliance.ProjectCode(n)
		f.Project = &p
	}
	if v := q.Get("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, fmt.Errorf("invalid from date %q (use YYYY-MM-DD)", v)
		}
		f.DateFrom = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, fmt.Errorf("invalid to date %q (use YYYY-MM-DD)", v)
		}
		end := d.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &end
	}
	return f, nil
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendance returns records grouped by month and class, with the
// combined status of each record. Optional filters: worker, class, month.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := attendance.Query{WorkerID: q.Get("worker"), ClassID: q.Get("class")}
	if v := q.Get("month"); v != "" {
		m, err := attendance.ParseMonth(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		query.Month = m
	}

	records, err := h.Store.ListAttendance(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}
	records = h.withWorkerNames(r.Context(), records)

	writeJSON(w, http.StatusOK, AttendanceListDTO{
		Months: toMonthGroupDTOs(attendance.Group(records)),
		Counts: attendance.StatusCounts(records),
	})
}

// SubmitAttendance creates a record. A collision with an existing record
// for the same (worker, class, month) returns 409 with that record until
// the client resubmits with "replace": true.
func (h *Handler) SubmitAttendance(w http.ResponseWriter, r *http.Request) {
	var req SubmitAttendanceRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := attendance.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	sub := attendance.Submission{
		WorkerID:    req.WorkerID,
		Class:       req.Class,
		Month:       month,
		ProjectCode: compliance.ProjectCode(req.ProjectCode),
		Student:     toSlotUpload(req.StudentAttendanceDoc),
		Worker:      toSlotUpload(req.WorkerAttendanceDoc),
		Control:     toSlotUpload(req.ControlDoc),
	}
	if _, err := h.Store.GetWorker(r.Context(), sub.WorkerID); err != nil {
		h.writeDomainError(w, "Failed to get worker", err)
		return
	}

	rec, err := h.Attendance.Submit(r.Context(), sub, req.Replace)
	if err != nil {
		h.writeDomainError(w, "Failed to submit attendance", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceRecordDTO(*rec))
}

// ReplaceAttendanceSlot uploads a new document into one slot.
func (h *Handler) ReplaceAttendanceSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := attendance.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot", err)
		return
	}
	var req SlotUploadDTO
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Attendance.ReplaceSlot(r.Context(), chi.URLParam(r, "id"), slot, attendance.SlotUpload{URL: req.URL, FileName: req.FileName})
	if err != nil {
		h.writeDomainError(w, "Failed to replace slot", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceRecordDTO(*rec))
}

// DeleteAttendanceSlot deletes one slot's document and clears that slot.
func (h *Handler) DeleteAttendanceSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := attendance.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot", err)
		return
	}
	rec, err := h.Attendance.DeleteSlot(r.Context(), chi.URLParam(r, "id"), slot)
	if err != nil {
		h.writeDomainError(w, "Failed to delete slot", err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceRecordDTO(*rec))
}

// DeleteAttendance runs the cascading delete and reports every step.
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	report, err := h.Attendance.DeleteRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var cascade *attendance.CascadeDeleteError
		if errors.As(err, &cascade) {
			writeJSON(w, http.StatusInternalServerError, DeleteReportDTO{
				RecordID: cascade.RecordID,
				Deleted:  false,
				Steps:    toStepDTOs(cascade.Steps),
			})
			return
		}
		h.writeDomainError(w, "Failed to delete attendance record", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteReportDTO{
		RecordID: report.RecordID,
		Deleted:  true,
		Steps:    toStepDTOs(report.Steps),
	})
}

// SetAttendanceStatus reviews every slot document of a record.
func (h *Handler) SetAttendanceStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res, err := h.Attendance.SetRecordStatus(r.Context(), chi.URLParam(r, "id"), compliance.Status(req.Status))
	if err != nil {
		h.writeDomainError(w, "Failed to update attendance status", err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResultDTO(res))
}

func toSlotUpload(dto *SlotUploadDTO) *attendance.SlotUpload {
	if dto == nil {
		return nil
	}
	return &attendance.SlotUpload{URL: dto.URL, FileName: dto.FileName}
}

// withWorkerNames fills the display name of each record's worker reference.
func (h *Handler) withWorkerNames(ctx context.Context, records []attendance.Record) []attendance.Record {
	workers, err := h.Store.ListWorkers(ctx)
	if err != nil {
		h.Logger.Warn("failed to load worker names", zap.Error(err))
		return records
	}
	names := make(map[string]string, len(workers))
	for _, wk := range workers {
		names[wk.ID] = wk.FullName()
	}
	for i := range records {
		if records[i].Worker.DisplayName == "" {
			records[i].Worker.DisplayName = names[records[i].Worker.ID]
		}
	}
	return records
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the organization-wide compliance summary.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Documents.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize compliance", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(sum))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps compliance and attendance errors to HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var confirm *attendance.ReplacementConfirmationRequired
	switch {
	case errors.As(err, &confirm):
		writeJSON(w, http.StatusConflict, ConfirmationResponse{
			Error:    confirm.Error(),
			Existing: toAttendanceRecordDTO(confirm.Existing),
		})
	case compliance.IsNotFound(err), errors.Is(err, attendance.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case compliance.IsConflict(err), errors.Is(err, attendance.ErrReplacementConfirmationRequired):
		writeError(w, http.StatusConflict, message, err)
	case compliance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
