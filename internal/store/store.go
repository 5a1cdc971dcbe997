// Package store persists applications and their transition events. Every
// implementation offers the same boundary: reads, and a transaction in which
// the application row and its events are written together.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/utils"
)

var (
	// ErrNotFound is returned when the application does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update lost a race or an
	// insert collided with an existing row.
	ErrConflict = errors.New("conflict")
)

// ApplicationFilter narrows ListApplications. Empty fields do not filter.
type ApplicationFilter struct {
	utils.PaginationParams
	Status          *models.Status
	OfficerIdentity string
	DealerIdentity  string
}

// Reader is the read side shared by the store and its transactions.
type Reader interface {
	GetApplication(ctx context.Context, uid uuid.UUID) (*models.Application, error)
	// ListEvents returns every event of uid ordered by created_at, then id.
	ListEvents(ctx context.Context, uid uuid.UUID) ([]models.TransitionEvent, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error)
}

// SnapshotReader runs fn against one consistent view of the data, so an
// application row and its events read inside fn describe the same state.
type SnapshotReader interface {
	Reader
	Snapshot(ctx context.Context, fn func(r Reader) error) error
}

// Tx is a unit of work. Writes become visible together when the function
// passed to WithinTx returns nil, and are discarded otherwise.
type Tx interface {
	Reader
	InsertApplication(ctx context.Context, app *models.Application) error
	// UpdateApplicationStatus moves uid from expected to next, bumping the
	// revision from expectedRevision and stamping updated_at with at. It
	// returns ErrConflict when the row no longer holds expected/expectedRevision.
	UpdateApplicationStatus(ctx context.Context, uid uuid.UUID, expected models.Status, expectedRevision int64, next models.Status, at time.Time) error
	InsertEvent(ctx context.Context, event *models.TransitionEvent) error
}

// Store is the persistence boundary used by the workflow services.
type Store interface {
	SnapshotReader
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
