/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos and manual testing of the compliance dashboard. Every
	loader goes through the same services the API uses, so seeded data
	obeys the upload and transition rules.

AVAILABLE SCENARIOS:

	onboarding:          One assistant with nothing uploaded yet
	camp-season:         Coordinator, assistant and instructor across the
	                     afternoon program and a camp, with attendance
	expiring-documents:  Approved documents past their expiry date, ready
	                     for the expiry sweeper

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create workers
 3. Upload documents via DocumentService
 4. Approve / reject some of them
 5. Submit attendance via the attendance Service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "camp-season"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to loadScenario

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler, writeJSON
  - scheduler.go: ExpirySweeper picks up the expiring-documents data
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kaytana/compliance-engine/attendance"
	"github.com/kaytana/compliance-engine/compliance"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "onboarding",
		Name:        "Onboarding",
		Description: "New assistant with no documents: ID, police approval and contract missing",
	},
	{
		ID:          "camp-season",
		Name:        "Camp Season",
		Description: "Coordinator, assistant and instructor with mixed document statuses and monthly attendance",
	},
	{
		ID:          "expiring-documents",
		Name:        "Expiring Documents",
		Description: "Approved documents past their expiry date, expired by the sweeper",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !knownScenario(req.ScenarioID) {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func knownScenario(id string) bool {
	for _, s := range scenarios {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	h.currentScenario = ""

	var err error
	switch id {
	case "onboarding":
		err = h.loadOnboardingScenario(ctx)
	case "camp-season":
		err = h.loadCampSeasonScenario(ctx)
	case "expiring-documents":
		err = h.loadExpiringDocumentsScenario(ctx)
	default:
		return fmt.Errorf("%w: unknown scenario %q", compliance.ErrInvalidInput, id)
	}
	if err != nil {
		return err
	}

	h.currentScenario = id
	h.Logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadOnboardingScenario(ctx context.Context) error {
	// Assistants skip the teaching certificate; nothing uploaded yet, so
	// the banner lists ID, police approval and contract.
	return h.Store.SaveWorker(ctx, compliance.Worker{
		ID:           "300000001",
		FirstName:    "נועה",
		LastName:     "לוי",
		Phone:        "050-0000001",
		RoleName:     "סייעת",
		ProjectCodes: []compliance.ProjectCode{compliance.ProjectAfternoon},
	})
}

func (h *Handler) loadCampSeasonScenario(ctx context.Context) error {
	coordinator := compliance.Worker{
		ID:           "300000010",
		FirstName:    "דנה",
		LastName:     "כהן",
		RoleName:     "רכז קייטנה",
		Is101:        true,
		ProjectCodes: []compliance.ProjectCode{compliance.ProjectAfternoon, compliance.ProjectSummerCamp},
	}
	assistant := compliance.Worker{
		ID:           "300000011",
		FirstName:    "יוסי",
		LastName:     "מזרחי",
		RoleName:     "סייע",
		ProjectCodes: []compliance.ProjectCode{compliance.ProjectSummerCamp},
	}
	instructor := compliance.Worker{
		ID:           "300000012",
		FirstName:    "מיכל",
		LastName:     "אברהם",
		RoleName:     "מדריכת מדעים",
		Is101:        true,
		ProjectCodes: []compliance.ProjectCode{compliance.ProjectAfternoon},
	}
	for _, wk := range []compliance.Worker{coordinator, assistant, instructor} {
		if err := h.Store.SaveWorker(ctx, wk); err != nil {
			return fmt.Errorf("failed to save worker %s: %w", wk.ID, err)
		}
	}

	// Coordinator: everything but the camp attendance sheet approved.
	if err := h.seedDocuments(ctx, coordinator.ID, map[compliance.Tag]compliance.Status{
		compliance.TagID:                  compliance.StatusApproved,
		compliance.TagPoliceApproval:      compliance.StatusApproved,
		compliance.TagContract:            compliance.StatusApproved,
		compliance.TagTeachingCertificate: compliance.StatusApproved,
		compliance.TagSeniorityApproval:   compliance.StatusPending,
	}); err != nil {
		return err
	}
	// Assistant: police approval rejected, contract waiting.
	if err := h.seedDocuments(ctx, assistant.ID, map[compliance.Tag]compliance.Status{
		compliance.TagID:             compliance.StatusApproved,
		compliance.TagPoliceApproval: compliance.StatusRejected,
		compliance.TagContract:       compliance.StatusPending,
	}); err != nil {
		return err
	}
	// Instructor: fully compliant.
	if err := h.seedDocuments(ctx, instructor.ID, map[compliance.Tag]compliance.Status{
		compliance.TagID:                  compliance.StatusApproved,
		compliance.TagPoliceApproval:      compliance.StatusApproved,
		compliance.TagContract:            compliance.StatusApproved,
		compliance.TagTeachingCertificate: compliance.StatusApproved,
	}); err != nil {
		return err
	}

	now := time.Now()
	thisMonth := attendance.MonthOf(now)
	lastMonth := attendance.MonthOf(now.AddDate(0, -1, 0))
	robotics := compliance.Ref{ID: "class-robotics", DisplayName: "רובוטיקה ד'"}
	science := compliance.Ref{ID: "class-science", DisplayName: "מדעים ה'"}

	// Last month: complete and reviewed.
	rec, err := h.Attendance.Submit(ctx, attendance.Submission{
		WorkerID:    instructor.ID,
		Class:       science,
		Month:       lastMonth,
		ProjectCode: compliance.ProjectAfternoon,
		Student:     &attendance.SlotUpload{URL: "https://files.example.org/att/science-students.pdf", FileName: "science-students.pdf"},
		Worker:      &attendance.SlotUpload{URL: "https://files.example.org/att/science-worker.pdf", FileName: "science-worker.pdf"},
		Control:     &attendance.SlotUpload{URL: "https://files.example.org/att/science-control.pdf", FileName: "science-control.pdf"},
	}, false)
	if err != nil {
		return fmt.Errorf("failed to submit attendance: %w", err)
	}
	if _, err := h.Attendance.SetRecordStatus(ctx, rec.ID, compliance.StatusApproved); err != nil {
		return fmt.Errorf("failed to approve attendance: %w", err)
	}

	// This month: pending review, and one record missing its worker sheet.
	if _, err := h.Attendance.Submit(ctx, attendance.Submission{
		WorkerID:    instructor.ID,
		Class:       science,
		Month:       thisMonth,
		ProjectCode: compliance.ProjectAfternoon,
		Student:     &attendance.SlotUpload{URL: "https://files.example.org/att/science-students-2.pdf", FileName: "science-students-2.pdf"},
		Worker:      &attendance.SlotUpload{URL: "https://files.example.org/att/science-worker-2.pdf", FileName: "science-worker-2.pdf"},
	}, false); err != nil {
		return fmt.Errorf("failed to submit attendance: %w", err)
	}
	if _, err := h.Attendance.Submit(ctx, attendance.Submission{
		WorkerID:    coordinator.ID,
		Class:       robotics,
		Month:       thisMonth,
		ProjectCode: compliance.ProjectSummerCamp,
		Student:     &attendance.SlotUpload{URL: "https://files.example.org/att/robotics-students.pdf", FileName: "robotics-students.pdf"},
	}, false); err != nil {
		return fmt.Errorf("failed to submit attendance: %w", err)
	}
	return nil
}

func (h *Handler) loadExpiringDocumentsScenario(ctx context.Context) error {
	wk := compliance.Worker{
		ID:           "300000020",
		FirstName:    "אורי",
		LastName:     "פרץ",
		RoleName:     "מדריך",
		Is101:        true,
		ProjectCodes: []compliance.ProjectCode{compliance.ProjectAfternoon},
	}
	if err := h.Store.SaveWorker(ctx, wk); err != nil {
		return fmt.Errorf("failed to save worker %s: %w", wk.ID, err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)
	nextYear := today.AddDate(1, 0, 0)
	uploads := []struct {
		tag    compliance.Tag
		expiry *time.Time
	}{
		{compliance.TagID, nil},
		{compliance.TagPoliceApproval, &yesterday},
		{compliance.TagMedicalApproval, &yesterday},
		{compliance.TagContract, &nextYear},
		{compliance.TagTeachingCertificate, nil},
	}
	for _, u := range uploads {
		doc, err := h.Documents.Upload(ctx, compliance.UploadInput{
			WorkerID:   wk.ID,
			Tag:        u.tag,
			URL:        demoURL(wk.ID, u.tag),
			FileName:   demoFileName(u.tag),
			ExpiryDate: u.expiry,
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", u.tag, err)
		}
		if _, err := h.Documents.Approve(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to approve %s: %w", u.tag, err)
		}
	}
	return nil
}

// seedDocuments uploads one document per tag and moves it to the given status.
func (h *Handler) seedDocuments(ctx context.Context, workerID string, docs map[compliance.Tag]compliance.Status) error {
	for _, tag := range compliance.Catalogue {
		status, ok := docs[tag]
		if !ok {
			continue
		}
		doc, err := h.Documents.Upload(ctx, compliance.UploadInput{
			WorkerID: workerID,
			Tag:      tag,
			URL:      demoURL(workerID, tag),
			FileName: demoFileName(tag),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s for %s: %w", tag, workerID, err)
		}
		if status == compliance.StatusPending {
			continue
		}
		if _, err := h.Documents.SetStatus(ctx, doc.ID, status); err != nil {
			return fmt.Errorf("failed to set %s for %s: %w", tag, workerID, err)
		}
	}
	return nil
}

func demoURL(workerID string, tag compliance.Tag) string {
	return fmt.Sprintf("https://files.example.org/%s/%s", workerID, demoFileName(tag))
}

func demoFileName(tag compliance.Tag) string {
	for i, t := range compliance.Catalogue {
		if t == tag {
			return fmt.Sprintf("document-%d.pdf", i+1)
		}
	}
	return "document.pdf"
}
