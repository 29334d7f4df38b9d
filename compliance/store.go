/*
store.go - Boundary interfaces to the external worker/document store

PURPOSE:
  The engine owns no storage. These interfaces are the read accessors and
  mutators it is handed; implementations own all locking and concurrency
  control (last-write-wins or optimistic checks for racing reviewers).

CONTRACT:
  - Get* return ErrWorkerNotFound / ErrDocumentNotFound for unknown IDs.
  - List* return snapshots; callers re-fetch after every mutation.
  - Mutators are only issued after the engine has validated them
    (status.go), so stores need not re-check business rules.

IMPLEMENTATIONS:
  - compliance/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - service.go: Validates then calls these
  - attendance/store.go: Attendance record persistence
*/
package compliance

import (
	"context"
	"time"
)

// WorkerStore reads and writes workers.
type WorkerStore interface {
	GetWorker(ctx context.Context, id string) (*Worker, error)
	ListWorkers(ctx context.Context) ([]Worker, error)
	SaveWorker(ctx context.Context, w Worker) error
}

// DocumentStore reads and writes documents.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	ListDocumentsByWorker(ctx context.Context, workerID string) ([]Document, error)

	// CreateDocument persists a new document. Byte transfer happened elsewhere.
	CreateDocument(ctx context.Context, d Document) error

	SetDocumentStatus(ctx context.Context, id string, status Status, at time.Time) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error
}
