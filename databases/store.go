package databases

import (
	"context"
	"time"

	"github.com/linesmerrill/dispute-case-api/models"
)

// Store runs units of work against the case database. Every multi-step operation runs
// inside WithTx: either all of its writes commit or none do.
type Store interface {
	// WithTx runs fn in a transaction. fn may be invoked more than once when the backend
	// retries a transient conflict, so it must not have side effects outside tx.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close(ctx context.Context) error
}

// Tx is the set of reads and writes available inside a transaction. Lookups of a missing
// row return an apperr.NotFound error; driver failures return apperr.Infrastructure.
type Tx interface {
	// NextCaseSequence atomically increments and returns the counter for year
	NextCaseSequence(ctx context.Context, year int) (int64, error)
	InsertCase(ctx context.Context, c *models.Case) error
	FindCase(ctx context.Context, id int64) (*models.Case, error)
	UpdateCase(ctx context.Context, c *models.Case) error

	// LockDay serializes every transaction that books a slot on date until commit
	LockDay(ctx context.Context, date string) error
	// BookingsOn returns the live sessions of every stage scheduled on date
	BookingsOn(ctx context.Context, date string) ([]models.Booking, error)

	// FindSession returns a session whether or not it is deleted
	FindSession(ctx context.Context, id string) (*models.Session, error)
	// ActiveSession returns the live session of a stage for a case
	ActiveSession(ctx context.Context, caseID int64, stage models.Stage) (*models.Session, error)
	InsertSession(ctx context.Context, s *models.Session) error
	// UpdateSessionSlot stores the session's date, time, panel and updatedAt
	UpdateSessionSlot(ctx context.Context, s *models.Session) error
	// SoftDeleteSessions flags every live session of stage for the case and returns how many it touched
	SoftDeleteSessions(ctx context.Context, caseID int64, stage models.Stage, at time.Time) (int64, error)
	// PurgeSession removes a session with its reschedule chain and documentation
	PurgeSession(ctx context.Context, id string) error

	// Reschedules returns the live chain of a session oldest first, documentation attached
	Reschedules(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error)
	// RescheduleHistory returns every record of a session oldest first, deleted ones
	// included, without documentation
	RescheduleHistory(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error)
	FindReschedule(ctx context.Context, id string) (*models.RescheduleRecord, error)
	InsertReschedule(ctx context.Context, r *models.RescheduleRecord) error
	UpdateRescheduleMinutes(ctx context.Context, id string, minutes *string) error
	SoftDeleteReschedule(ctx context.Context, id string, at time.Time) error
	InsertDocumentation(ctx context.Context, docs []models.Documentation) error

	FindSettlement(ctx context.Context, caseID int64) (*models.Settlement, error)
	InsertSettlement(ctx context.Context, s *models.Settlement) error
}
