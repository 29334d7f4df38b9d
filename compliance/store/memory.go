// Package store provides in-memory store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kaytana/compliance-engine/attendance"
	"github.com/kaytana/compliance-engine/compliance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements compliance.WorkerStore, compliance.DocumentStore and
// attendance.Store. Every read returns copies.
type Memory struct {
	mu        sync.RWMutex
	workers   map[string]compliance.Worker
	documents map[string]compliance.Document
	records   map[string]recordRow
}

// recordRow keeps slot document IDs only; documents are joined on read.
type recordRow struct {
	record attendance.Record
	slots  map[attendance.Slot]string
}

var (
	_ compliance.WorkerStore   = (*Memory)(nil)
	_ compliance.DocumentStore = (*Memory)(nil)
	_ attendance.Store         = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		workers:   make(map[string]compliance.Worker),
		documents: make(map[string]compliance.Document),
		records:   make(map[string]recordRow),
	}
}

// Reset drops all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = make(map[string]compliance.Worker)
	m.documents = make(map[string]compliance.Document)
	m.records = make(map[string]recordRow)
	return nil
}

// =============================================================================
// WORKERS
// =============================================================================

func (m *Memory) GetWorker(_ context.Context, id string) (*compliance.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workers[id]
	if !ok {
		return nil, compliance.ErrWorkerNotFound
	}
	w.ProjectCodes = append([]compliance.ProjectCode(nil), w.ProjectCodes...)
	return &w, nil
}

func (m *Memory) ListWorkers(_ context.Context) ([]compliance.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]compliance.Worker, 0, len(m.workers))
	for _, w := range m.workers {
		w.ProjectCodes = append([]compliance.ProjectCode(nil), w.ProjectCodes...)
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveWorker(_ context.Context, w compliance.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.workers[w.ID]; ok {
		w.CreatedAt = existing.CreatedAt
	} else if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	w.ProjectCodes = append([]compliance.ProjectCode(nil), w.ProjectCodes...)
	m.workers[w.ID] = w
	return nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (m *Memory) GetDocument(_ context.Context, id string) (*compliance.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.documents[id]
	if !ok {
		return nil, compliance.ErrDocumentNotFound
	}
	return &d, nil
}

func (m *Memory) ListDocuments(_ context.Context) ([]compliance.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedDocuments(func(compliance.Document) bool { return true }), nil
}

func (m *Memory) ListDocumentsByWorker(_ context.Context, workerID string) ([]compliance.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedDocuments(func(d compliance.Document) bool { return d.Operator.ID == workerID }), nil
}

func (m *Memory) sortedDocuments(keep func(compliance.Document) bool) []compliance.Document {
	out := make([]compliance.Document, 0)
	for _, d := range m.documents {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) CreateDocument(_ context.Context, d compliance.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[d.ID] = d
	return nil
}

// SetDocumentStatus is last-write-wins.
func (m *Memory) SetDocumentStatus(_ context.Context, id string, status compliance.Status, at time.Time) (*compliance.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok {
		return nil, compliance.ErrDocumentNotFound
	}
	d.Status = status
	d.UpdatedAt = at
	m.documents[id] = d
	return &d, nil
}

func (m *Memory) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[id]; !ok {
		return compliance.ErrDocumentNotFound
	}
	delete(m.documents, id)
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) ListAttendance(_ context.Context, q attendance.Query) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []attendance.Record
	for _, row := range m.records {
		r := row.record
		if q.WorkerID != "" && r.Worker.ID != q.WorkerID {
			continue
		}
		if q.ClassID != "" && r.Class.ID != q.ClassID {
			continue
		}
		if q.Month != "" && r.Month != q.Month {
			continue
		}
		out = append(out, m.populate(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetAttendance(_ context.Context, id string) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.records[id]
	if !ok {
		return nil, attendance.ErrRecordNotFound
	}
	r := m.populate(row)
	return &r, nil
}

func (m *Memory) SaveAttendance(_ context.Context, r attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := recordRow{slots: make(map[attendance.Slot]string)}
	for _, s := range attendance.Slots {
		if d := r.Doc(s); d != nil {
			row.slots[s] = d.ID
		}
		r = r.WithDoc(s, nil)
	}
	row.record = r
	m.records[r.ID] = row
	return nil
}

func (m *Memory) DeleteAttendance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return attendance.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) ClearAttendanceSlot(_ context.Context, recordID string, slot attendance.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.records[recordID]
	if !ok {
		return attendance.ErrRecordNotFound
	}
	delete(row.slots, slot)
	row.record.UpdatedAt = time.Now().UTC()
	m.records[recordID] = row
	return nil
}

// populate joins slot document IDs to documents. A slot pointing at a
// missing document reads as empty.
func (m *Memory) populate(row recordRow) attendance.Record {
	r := row.record
	for slot, id := range row.slots {
		if d, ok := m.documents[id]; ok {
			doc := d
			r = r.WithDoc(slot, &doc)
		}
	}
	return r
}
