package eventrepo

import (
	"context"
	"time"

	"github.com/gatherhall/events-api/internal/domain"
)

// Event is the persistence shape used by the event repository.
// It is not an HTTP DTO.
type Event struct {
	ID domain.EventID

	Title       string
	Description *string
	StartsAt    time.Time

	AuthorID domain.UserID

	// MaxAttendees caps ACCEPTED reservations; nil means unlimited.
	MaxAttendees *int
	// AttendeeCount is the denormalized count of ACCEPTED reservations. It is
	// only ever written by recomputing from the reservation ledger.
	AttendeeCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted events.
//
// Result ordering expectations:
// - List returns events ordered by CreatedAt descending (newest first).
type Repository interface {
	Create(ctx context.Context, e Event) error
	Save(ctx context.Context, e Event) error

	GetByID(ctx context.Context, id domain.EventID) (Event, error)

	List(ctx context.Context) ([]Event, error)

	// SetAttendeeCount persists a recomputed aggregate for the event without
	// touching any other field.
	SetAttendeeCount(ctx context.Context, id domain.EventID, n int) error

	// Delete removes the event. Callers cascade the reservation ledger first.
	Delete(ctx context.Context, id domain.EventID) error
}
