package attendance

import "context"

// Query narrows ListAttendance. Empty fields mean "no constraint".
type Query struct {
	WorkerID string
	ClassID  string
	Month    Month
}

// Store persists attendance records. Implementations populate the slot
// documents on read and return ErrRecordNotFound for unknown IDs.
type Store interface {
	ListAttendance(ctx context.Context, q Query) ([]Record, error)
	GetAttendance(ctx context.Context, id string) (*Record, error)

	// SaveAttendance inserts or replaces the record by ID, storing only
	// slot document IDs.
	SaveAttendance(ctx context.Context, r Record) error

	DeleteAttendance(ctx context.Context, id string) error
	ClearAttendanceSlot(ctx context.Context, recordID string, slot Slot) error
}
