/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the external store the engine talks to (compliance.WorkerStore,
  compliance.DocumentStore, attendance.Store) using SQLite. The same
  patterns apply to PostgreSQL with minor dialect differences.

KEY TABLES:
  workers:             Workers keyed by government ID
  documents:           Uploaded documents with tag and status
  attendance_records:  One row per (worker, class, month) with three
                       nullable slot document IDs

INDEXES:
  - idx_documents_operator: Per-worker document lists (hot path)
  - idx_documents_tag_status: Dashboard filters
  - idx_unique_attendance: Backstop for the one-record-per-triple rule

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Status writes are last-write-wins;
  the engine does not arbitrate racing reviewers.

DANGLING SLOTS:
  Slot columns are ON DELETE SET NULL, so deleting a document can never
  leave a record referencing it.

USAGE:
  store, err := sqlite.New("./data/compliance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - compliance/store.go, attendance/store.go: Interface definitions
  - compliance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kaytana/compliance-engine/attendance"
	"github.com/kaytana/compliance-engine/compliance"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ compliance.WorkerStore   = (*Store)(nil)
	_ compliance.DocumentStore = (*Store)(nil)
	_ attendance.Store         = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		internal_id TEXT,
		first_name TEXT,
		last_name TEXT,
		phone TEXT,
		email TEXT,
		role_name TEXT,
		is_101 INTEGER NOT NULL DEFAULT 0,
		project_codes_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		operator_name TEXT,
		tag TEXT NOT NULL,
		status TEXT NOT NULL,
		url TEXT,
		file_name TEXT,
		expiry_date TEXT,
		class_id TEXT,
		class_name TEXT,
		project_code INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_operator
		ON documents(operator_id, tag);
	CREATE INDEX IF NOT EXISTS idx_documents_tag_status
		ON documents(tag, status);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		worker_name TEXT,
		class_id TEXT NOT NULL,
		class_name TEXT,
		month TEXT NOT NULL,
		project_code INTEGER NOT NULL DEFAULT 0,
		student_doc_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
		worker_doc_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
		control_doc_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One record per (worker, class, month); the engine checks first,
	-- this is the backstop.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_attendance
		ON attendance_records(worker_id, class_id, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (for scenarios/testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"attendance_records", "documents", "workers"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// WORKER STORE (compliance.WorkerStore interface)
// =============================================================================

const workerColumns = `id, internal_id, first_name, last_name, phone, email, role_name,
	is_101, project_codes_json, created_at, updated_at`

// SaveWorker inserts or updates a worker.
func (s *Store) SaveWorker(ctx context.Context, w compliance.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := json.Marshal(w.ProjectCodes)
	if err != nil {
		return fmt.Errorf("failed to encode project codes: %w", err)
	}

	query := `
		INSERT INTO workers (` + workerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			internal_id = excluded.internal_id,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			phone = excluded.phone,
			email = excluded.email,
			role_name = excluded.role_name,
			is_101 = excluded.is_101,
			project_codes_json = excluded.project_codes_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		w.ID, nullString(w.InternalID), w.FirstName, w.LastName, w.Phone, w.Email, w.RoleName,
		w.Is101, string(codes), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// GetWorker retrieves a worker by government ID.
func (s *Store) GetWorker(ctx context.Context, id string) (*compliance.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+workerColumns+" FROM workers WHERE id = ?", id)
	w, err := scanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, compliance.ErrWorkerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkers returns all workers ordered by last name.
func (s *Store) ListWorkers(ctx context.Context) ([]compliance.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+workerColumns+" FROM workers ORDER BY last_name, first_name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []compliance.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorker(row scanner) (compliance.Worker, error) {
	var (
		w                    compliance.Worker
		internalID           sql.NullString
		codes                string
		createdAt, updatedAt string
	)
	err := row.Scan(&w.ID, &internalID, &w.FirstName, &w.LastName, &w.Phone, &w.Email, &w.RoleName,
		&w.Is101, &codes, &createdAt, &updatedAt)
	if err != nil {
		return w, err
	}
	w.InternalID = internalID.String
	if codes != "" {
		if err := json.Unmarshal([]byte(codes), &w.ProjectCodes); err != nil {
			return w, fmt.Errorf("failed to decode project codes for %s: %w", w.ID, err)
		}
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return w, nil
}

// =============================================================================
// DOCUMENT STORE (compliance.DocumentStore interface)
// =============================================================================

const documentColumns = `id, operator_id, operator_name, tag, status, url, file_name, expiry_date,
	class_id, class_name, project_code, created_at, updated_at`

// CreateDocument inserts a new document.
func (s *Store) CreateDocument(ctx context.Context, d compliance.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var classID, className sql.NullString
	if d.Class != nil {
		classID, className = nullString(d.Class.ID), nullString(d.Class.DisplayName)
	}

	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Operator.ID, nullString(d.Operator.DisplayName), string(d.Tag), string(d.Status),
		d.URL, d.FileName, formatTimePtr(d.ExpiryDate), classID, className, int(d.ProjectCode),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*compliance.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDocument(ctx, id)
}

func (s *Store) getDocument(ctx context.Context, id string) (*compliance.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, compliance.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns every document, oldest first.
func (s *Store) ListDocuments(ctx context.Context) ([]compliance.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryDocuments(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY created_at, id")
}

// ListDocumentsByWorker returns a worker's documents, oldest first.
func (s *Store) ListDocumentsByWorker(ctx context.Context, workerID string) ([]compliance.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryDocuments(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE operator_id = ? ORDER BY created_at, id", workerID)
}

// SetDocumentStatus writes a status change (last write wins).
func (s *Store) SetDocumentStatus(ctx context.Context, id string, status compliance.Status, at time.Time) (*compliance.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = ? WHERE id = ?",
		string(status), formatTime(at), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, compliance.ErrDocumentNotFound
	}
	return s.getDocument(ctx, id)
}

// DeleteDocument removes a document; referencing slots become NULL.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return compliance.ErrDocumentNotFound
	}
	return nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]compliance.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []compliance.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocument(row scanner) (compliance.Document, error) {
	var (
		d                    compliance.Document
		operatorName         sql.NullString
		tag, status          string
		url, fileName        sql.NullString
		expiry               sql.NullString
		classID, className   sql.NullString
		projectCode          int
		createdAt, updatedAt string
	)
	err := row.Scan(&d.ID, &d.Operator.ID, &operatorName, &tag, &status, &url, &fileName, &expiry,
		&classID, &className, &projectCode, &createdAt, &updatedAt)
	if err != nil {
		return d, err
	}
	d.Operator.DisplayName = operatorName.String
	d.Tag = compliance.Tag(tag)
	d.Status = compliance.Status(status)
	d.URL = url.String
	d.FileName = fileName.String
	d.ExpiryDate = parseTimePtr(expiry)
	if classID.Valid {
		d.Class = &compliance.Ref{ID: classID.String, DisplayName: className.String}
	}
	d.ProjectCode = compliance.ProjectCode(projectCode)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

// =============================================================================
// ATTENDANCE STORE (attendance.Store interface)
// =============================================================================

var slotColumns = map[attendance.Slot]string{
	attendance.SlotStudent: "student_doc_id",
	attendance.SlotWorker:  "worker_doc_id",
	attendance.SlotControl: "control_doc_id",
}

// SaveAttendance inserts or replaces a record by ID.
func (s *Store) SaveAttendance(ctx context.Context, r attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docID := func(slot attendance.Slot) sql.NullString {
		if d := r.Doc(slot); d != nil {
			return nullString(d.ID)
		}
		return sql.NullString{}
	}

	query := `
		INSERT INTO attendance_records
		(id, worker_id, worker_name, class_id, class_name, month, project_code,
		 student_doc_id, worker_doc_id, control_doc_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			worker_name = excluded.worker_name,
			class_name = excluded.class_name,
			project_code = excluded.project_code,
			student_doc_id = excluded.student_doc_id,
			worker_doc_id = excluded.worker_doc_id,
			control_doc_id = excluded.control_doc_id,
			updated_at = excluded.updated_at
	`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Worker.ID, nullString(r.Worker.DisplayName), r.Class.ID, nullString(r.Class.DisplayName),
		string(r.Month), int(r.ProjectCode),
		docID(attendance.SlotStudent), docID(attendance.SlotWorker), docID(attendance.SlotControl),
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %v", attendance.ErrReplacementConfirmationRequired, err)
		}
		return fmt.Errorf("failed to save attendance: %w", err)
	}
	return nil
}

// GetAttendance retrieves a record with its slot documents populated.
func (s *Store) GetAttendance(ctx context.Context, id string) (*attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.queryAttendance(ctx, "WHERE a.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, attendance.ErrRecordNotFound
	}
	return &records[0], nil
}

// ListAttendance returns records matching q, newest month first.
func (s *Store) ListAttendance(ctx context.Context, q attendance.Query) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if q.WorkerID != "" {
		where = append(where, "a.worker_id = ?")
		args = append(args, q.WorkerID)
	}
	if q.ClassID != "" {
		where = append(where, "a.class_id = ?")
		args = append(args, q.ClassID)
	}
	if q.Month != "" {
		where = append(where, "a.month = ?")
		args = append(args, string(q.Month))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	return s.queryAttendance(ctx, clause+" ORDER BY a.month DESC, a.id", args...)
}

// DeleteAttendance removes a record row. Slot documents are not touched.
func (s *Store) DeleteAttendance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM attendance_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrRecordNotFound
	}
	return nil
}

// ClearAttendanceSlot nulls one slot reference.
func (s *Store) ClearAttendanceSlot(ctx context.Context, recordID string, slot attendance.Slot) error {
	column, ok := slotColumns[slot]
	if !ok {
		return fmt.Errorf("%w: unknown slot %q", compliance.ErrInvalidInput, slot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE attendance_records SET "+column+" = NULL, updated_at = ? WHERE id = ?",
		formatTime(time.Now()), recordID)
	if err != nil {
		return fmt.Errorf("failed to clear slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrRecordNotFound
	}
	return nil
}

func (s *Store) queryAttendance(ctx context.Context, clause string, args ...any) ([]attendance.Record, error) {
	query := `
		SELECT a.id, a.worker_id, a.worker_name, a.class_id, a.class_name, a.month, a.project_code,
		       a.student_doc_id, a.worker_doc_id, a.control_doc_id, a.created_at, a.updated_at
		FROM attendance_records a ` + clause

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}

	type pending struct {
		record attendance.Record
		slots  map[attendance.Slot]string
	}
	var list []pending
	for rows.Next() {
		var (
			p                     pending
			workerName, className sql.NullString
			month                 string
			projectCode           int
			studentID, workerID   sql.NullString
			controlID             sql.NullString
			createdAt, updatedAt  string
		)
		err := rows.Scan(&p.record.ID, &p.record.Worker.ID, &workerName, &p.record.Class.ID, &className,
			&month, &projectCode, &studentID, &workerID, &controlID, &createdAt, &updatedAt)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		p.record.Worker.DisplayName = workerName.String
		p.record.Class.DisplayName = className.String
		p.record.Month = attendance.Month(month)
		p.record.ProjectCode = compliance.ProjectCode(projectCode)
		p.record.CreatedAt = parseTime(createdAt)
		p.record.UpdatedAt = parseTime(updatedAt)
		p.slots = map[attendance.Slot]string{}
		if studentID.Valid {
			p.slots[attendance.SlotStudent] = studentID.String
		}
		if workerID.Valid {
			p.slots[attendance.SlotWorker] = workerID.String
		}
		if controlID.Valid {
			p.slots[attendance.SlotControl] = controlID.String
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Populate after closing the cursor; the pool holds a single connection.
	records := make([]attendance.Record, 0, len(list))
	for _, p := range list {
		r := p.record
		for slot, docID := range p.slots {
			d, err := s.getDocument(ctx, docID)
			if errors.Is(err, compliance.ErrDocumentNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			r = r.WithDoc(slot, d)
		}
		records = append(records, r)
	}
	return records, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed width so text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
