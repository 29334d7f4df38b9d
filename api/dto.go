/*
dto.go - Data Transfer Objects for API requests/responses

PURPOSE:
  Defines JSON structures for HTTP API communication. DTOs decouple the
  API contract from the compliance and attendance types, so wire names
  (camelCase, Hebrew tag values as-is) can stay stable while the domain
  types evolve.

VALIDATION:
  Request DTOs carry go-playground/validator tags. Handler.decode runs
  them after JSON decoding; failures map to 400 with the field list.

CONVENTIONS:
  - Dates:        "2006-01-02"
  - Timestamps:   RFC3339
  - Months:       "yyyy-MM"
  - References:   {"id": "...", "displayName": "..."}

SEE ALSO:
  - handlers.go: Uses these DTOs
  - compliance/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/kaytana/compliance-engine/attendance"
	"github.com/kaytana/compliance-engine/compliance"
)

// =============================================================================
// WORKERS
// =============================================================================

// WorkerDTO represents a worker.
type WorkerDTO struct {
	ID           string `json:"id"`
	InternalID   string `json:"internalId,omitempty"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	RoleName     string `json:"roleName"`
	RoleCategory string `json:"roleCategory"`
	Is101        bool   `json:"is101"`
	ProjectCodes []int  `json:"projectCodes"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// CreateWorkerRequest is the request to create or update a worker.
type CreateWorkerRequest struct {
	ID           string `json:"id" validate:"required,max=32"`
	InternalID   string `json:"internalId" validate:"omitempty,max=32"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"max=100"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
	Email        string `json:"email" validate:"omitempty,email"`
	RoleName     string `json:"roleName" validate:"max=100"`
	Is101        bool   `json:"is101"`
	ProjectCodes []int  `json:"projectCodes" validate:"dive,min=1,max=4"`
}

// RequirementDTO is one entry of a worker's requirement list.
type RequirementDTO struct {
	Tag             string `json:"tag"`
	HasExternalLink bool   `json:"hasExternalLink"`
	ExternalURL     string `json:"externalUrl,omitempty"`
}

// RequirementsDTO is the resolved requirement list for a worker.
type RequirementsDTO struct {
	WorkerID     string           `json:"workerId"`
	RoleCategory string           `json:"roleCategory"`
	Requirements []RequirementDTO `json:"requirements"`
}

// Form101DTO reports the Form 101 pseudo-requirement.
type Form101DTO struct {
	Completed       bool   `json:"completed"`
	HasExternalLink bool   `json:"hasExternalLink"`
	ExternalURL     string `json:"externalUrl,omitempty"`
}

// EvaluationDTO is the compliance breakdown for one worker.
type EvaluationDTO struct {
	WorkerID     string     `json:"workerId"`
	RoleCategory string     `json:"roleCategory"`
	Required     []string   `json:"required"`
	Approved     []string   `json:"approved"`
	Pending      []string   `json:"pending"`
	Rejected     []string   `json:"rejected"`
	Missing      []string   `json:"missing"`
	Form101      Form101DTO `json:"form101"`
	Compliant    bool       `json:"compliant"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentDTO represents an uploaded document.
type DocumentDTO struct {
	ID          string          `json:"id"`
	Operator    compliance.Ref  `json:"operatorId"`
	Tag         string          `json:"tag"`
	Status      string          `json:"status"`
	URL         string          `json:"url,omitempty"`
	FileName    string          `json:"fileName"`
	ExpiryDate  *string         `json:"expiryDate,omitempty"`
	Class       *compliance.Ref `json:"classId,omitempty"`
	ProjectCode int             `json:"projectCode,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
}

// UploadDocumentRequest registers an already-transferred file as a
// personal document of the worker in the URL.
type UploadDocumentRequest struct {
	Tag         string `json:"tag" validate:"required"`
	URL         string `json:"url" validate:"omitempty,url"`
	FileName    string `json:"fileName" validate:"required,max=255"`
	ExpiryDate  string `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
	ProjectCode int    `json:"projectCode" validate:"omitempty,min=1,max=4"`
}

// SetStatusRequest sets a document or record status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// BulkStatusRequest applies one status to many documents.
type BulkStatusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// BulkDeleteRequest deletes many documents.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// BulkItemDTO is the outcome for one ID of a bulk request.
type BulkItemDTO struct {
	ID       string       `json:"id"`
	OK       bool         `json:"ok"`
	Error    string       `json:"error,omitempty"`
	Document *DocumentDTO `json:"document,omitempty"`
}

// BulkResultDTO is the response to a bulk request.
type BulkResultDTO struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	FailedIDs []string      `json:"failedIds"`
	Items     []BulkItemDTO `json:"items"`
}

// CountDTO is one bucket of a count-by summary.
type CountDTO struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count"`
}

// DocumentSummaryDTO groups counts of a filtered document list.
type DocumentSummaryDTO struct {
	Total    int        `json:"total"`
	ByTag    []CountDTO `json:"byTag"`
	ByStatus []CountDTO `json:"byStatus"`
	ByWorker []CountDTO `json:"byWorker"`
}

// DashboardDTO is the organization-wide compliance summary.
type DashboardDTO struct {
	Workers          int             `json:"workers"`
	CompliantWorkers int             `json:"compliantWorkers"`
	Required         int             `json:"required"`
	Approved         int             `json:"approved"`
	Pending          int             `json:"pending"`
	Rejected         int             `json:"rejected"`
	Missing          int             `json:"missing"`
	Form101Missing   int             `json:"form101Missing"`
	MissingByTag     map[string]int  `json:"missingByTag"`
	ComplianceRate   string          `json:"complianceRate"`
	CompliantRate    string          `json:"compliantRate"`
	Evaluations      []EvaluationDTO `json:"evaluations"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// SlotUploadDTO is an already-transferred file for one attendance slot.
type SlotUploadDTO struct {
	URL      string `json:"url" validate:"omitempty,url"`
	FileName string `json:"fileName" validate:"required,max=255"`
}

// SubmitAttendanceRequest is a monthly attendance submission. Class may be
// a bare ID or an object reference; Month accepts yyyy-MM or a full date.
type SubmitAttendanceRequest struct {
	WorkerID             string         `json:"workerId" validate:"required"`
	Class                compliance.Ref `json:"classId"`
	Month                string         `json:"month" validate:"required"`
	ProjectCode          int            `json:"projectCode" validate:"omitempty,min=1,max=4"`
	StudentAttendanceDoc *SlotUploadDTO `json:"studentAttendanceDoc" validate:"omitempty"`
	WorkerAttendanceDoc  *SlotUploadDTO `json:"workerAttendanceDoc" validate:"omitempty"`
	ControlDoc           *SlotUploadDTO `json:"controlDoc" validate:"omitempty"`
	Replace              bool           `json:"replace"`
}

// CombinedStatusDTO is the rolled-up status of a record.
type CombinedStatusDTO struct {
	Text     string `json:"text"`
	Severity string `json:"severity"`
}

// AttendanceRecordDTO represents an attendance record with populated slots.
type AttendanceRecordDTO struct {
	ID                   string            `json:"id"`
	Worker               compliance.Ref    `json:"workerId"`
	Class                compliance.Ref    `json:"classId"`
	Month                string            `json:"month"`
	ProjectCode          int               `json:"projectCode,omitempty"`
	StudentAttendanceDoc *DocumentDTO      `json:"studentAttendanceDoc"`
	WorkerAttendanceDoc  *DocumentDTO      `json:"workerAttendanceDoc"`
	ControlDoc           *DocumentDTO      `json:"controlDoc"`
	Status               CombinedStatusDTO `json:"status"`
	CreatedAt            string            `json:"createdAt"`
	UpdatedAt            string            `json:"updatedAt,omitempty"`
}

// ClassGroupDTO holds one class's records within a month.
type ClassGroupDTO struct {
	Class   compliance.Ref        `json:"class"`
	Records []AttendanceRecordDTO `json:"records"`
}

// MonthGroupDTO holds one month's classes.
type MonthGroupDTO struct {
	Month   string          `json:"month"`
	Classes []ClassGroupDTO `json:"classes"`
}

// AttendanceListDTO is the grouped attendance view.
type AttendanceListDTO struct {
	Months []MonthGroupDTO `json:"months"`
	Counts map[string]int  `json:"counts"`
}

// StepDTO is one step of a cascading delete.
type StepDTO struct {
	Slot       string `json:"slot"`
	DocumentID string `json:"documentId"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// DeleteReportDTO reports a cascading delete, successful or not.
type DeleteReportDTO struct {
	RecordID string    `json:"recordId"`
	Deleted  bool      `json:"deleted"`
	Steps    []StepDTO `json:"steps"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ConfirmationResponse is returned with 409 when a submission collides with
// an existing record; resubmit with "replace": true to overwrite.
type ConfirmationResponse struct {
	Error    string              `json:"error"`
	Existing AttendanceRecordDTO `json:"existing"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

const dateLayout = "2006-01-02"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toWorkerDTO(w compliance.Worker) WorkerDTO {
	codes := make([]int, 0, len(w.ProjectCodes))
	for _, p := range w.ProjectCodes {
		codes = append(codes, int(p))
	}
	return WorkerDTO{
		ID:           w.ID,
		InternalID:   w.InternalID,
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		Phone:        w.Phone,
		Email:        w.Email,
		RoleName:     w.RoleName,
		RoleCategory: string(compliance.Classify(w.RoleName)),
		Is101:        w.Is101,
		ProjectCodes: codes,
		CreatedAt:    formatTimestamp(w.CreatedAt),
	}
}

func (req CreateWorkerRequest) toWorker() compliance.Worker {
	codes := make([]compliance.ProjectCode, 0, len(req.ProjectCodes))
	for _, p := range req.ProjectCodes {
		codes = append(codes, compliance.ProjectCode(p))
	}
	return compliance.Worker{
		ID:           req.ID,
		InternalID:   req.InternalID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Email:        req.Email,
		RoleName:     req.RoleName,
		Is101:        req.Is101,
		ProjectCodes: codes,
	}
}

func toDocumentDTO(d compliance.Document) DocumentDTO {
	dto := DocumentDTO{
		ID:          d.ID,
		Operator:    d.Operator,
		Tag:         d.Tag.String(),
		Status:      string(d.Status),
		URL:         d.URL,
		FileName:    d.FileName,
		Class:       d.Class,
		ProjectCode: int(d.ProjectCode),
		CreatedAt:   formatTimestamp(d.CreatedAt),
		UpdatedAt:   formatTimestamp(d.UpdatedAt),
	}
	if d.ExpiryDate != nil {
		s := d.ExpiryDate.Format(dateLayout)
		dto.ExpiryDate = &s
	}
	return dto
}

func toDocumentDTOPtr(d *compliance.Document) *DocumentDTO {
	if d == nil {
		return nil
	}
	dto := toDocumentDTO(*d)
	return &dto
}

func toDocumentDTOs(docs []compliance.Document) []DocumentDTO {
	out := make([]DocumentDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentDTO(d))
	}
	return out
}

func tagStrings(tags []compliance.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

func toRequirementsDTO(workerID string, rs compliance.RequirementSet) RequirementsDTO {
	dto := RequirementsDTO{WorkerID: workerID, RoleCategory: string(rs.Category)}
	for _, r := range rs.All() {
		dto.Requirements = append(dto.Requirements, RequirementDTO{
			Tag:             r.Tag.String(),
			HasExternalLink: r.HasExternalLink,
			ExternalURL:     r.ExternalURL,
		})
	}
	return dto
}

func toEvaluationDTO(e compliance.Evaluation) EvaluationDTO {
	return EvaluationDTO{
		WorkerID:     e.WorkerID,
		RoleCategory: string(e.Category),
		Required:     tagStrings(e.Required),
		Approved:     tagStrings(e.Approved),
		Pending:      tagStrings(e.Pending),
		Rejected:     tagStrings(e.Rejected),
		Missing:      tagStrings(e.Missing),
		Form101: Form101DTO{
			Completed:       e.Form101.Completed,
			HasExternalLink: e.Form101.HasExternalLink,
			ExternalURL:     e.Form101.ExternalURL,
		},
		Compliant: e.IsCompliant(),
	}
}

func toDashboardDTO(s compliance.Summary) DashboardDTO {
	dto := DashboardDTO{
		Workers:          s.Workers,
		CompliantWorkers: s.CompliantWorkers,
		Required:         s.Required,
		Approved:         s.Approved,
		Pending:          s.Pending,
		Rejected:         s.Rejected,
		Missing:          s.Missing,
		Form101Missing:   s.Form101Missing,
		MissingByTag:     make(map[string]int, len(s.MissingByTag)),
		ComplianceRate:   s.ComplianceRate.StringFixed(2),
		CompliantRate:    s.CompliantRate.StringFixed(2),
		Evaluations:      make([]EvaluationDTO, 0, len(s.Evaluations)),
	}
	for tag, n := range s.MissingByTag {
		dto.MissingByTag[tag.String()] = n
	}
	for _, e := range s.Evaluations {
		dto.Evaluations = append(dto.Evaluations, toEvaluationDTO(e))
	}
	return dto
}

func toCountDTOs(counts []compliance.Count) []CountDTO {
	out := make([]CountDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, CountDTO{Key: c.Key, Label: c.Label, Count: c.Count})
	}
	return out
}

func toBulkResultDTO(r compliance.BulkResult) BulkResultDTO {
	dto := BulkResultDTO{
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		FailedIDs: r.FailedIDs(),
		Items:     make([]BulkItemDTO, 0, len(r.Items)),
	}
	if dto.FailedIDs == nil {
		dto.FailedIDs = []string{}
	}
	for _, it := range r.Items {
		item := BulkItemDTO{ID: it.ID, OK: it.Err == nil, Document: toDocumentDTOPtr(it.Document)}
		if it.Err != nil {
			item.Error = it.Err.Error()
		}
		dto.Items = append(dto.Items, item)
	}
	return dto
}

func toAttendanceRecordDTO(r attendance.Record) AttendanceRecordDTO {
	st := attendance.Combine(r)
	return AttendanceRecordDTO{
		ID:                   r.ID,
		Worker:               r.Worker,
		Class:                r.Class,
		Month:                r.Month.String(),
		ProjectCode:          int(r.ProjectCode),
		StudentAttendanceDoc: toDocumentDTOPtr(r.StudentAttendanceDoc),
		WorkerAttendanceDoc:  toDocumentDTOPtr(r.WorkerAttendanceDoc),
		ControlDoc:           toDocumentDTOPtr(r.ControlDoc),
		Status:               CombinedStatusDTO{Text: st.Text, Severity: string(st.Severity)},
		CreatedAt:            formatTimestamp(r.CreatedAt),
		UpdatedAt:            formatTimestamp(r.UpdatedAt),
	}
}

func toMonthGroupDTOs(groups []attendance.MonthGroup) []MonthGroupDTO {
	out := make([]MonthGroupDTO, 0, len(groups))
	for _, mg := range groups {
		m := MonthGroupDTO{Month: mg.Month.String(), Classes: make([]ClassGroupDTO, 0, len(mg.Classes))}
		for _, cg := range mg.Classes {
			c := ClassGroupDTO{Class: cg.Class, Records: make([]AttendanceRecordDTO, 0, len(cg.Records))}
			for _, r := range cg.Records {
				c.Records = append(c.Records, toAttendanceRecordDTO(r))
			}
			m.Classes = append(m.Classes, c)
		}
		out = append(out, m)
	}
	return out
}

func toStepDTOs(steps []attendance.StepResult) []StepDTO {
	out := make([]StepDTO, 0, len(steps))
	for _, s := range steps {
		step := StepDTO{Slot: string(s.Slot), DocumentID: s.DocumentID, OK: s.Err == nil}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		out = append(out, step)
	}
	return out
}
