package reservationrepo

import (
	"context"
	"time"

	"github.com/gatherhall/events-api/internal/domain"
)

// Reservation is the ledger record: the RSVP status of one user for one
// event. The (EventID, UserID) pair is the record identity.
type Reservation struct {
	EventID domain.EventID
	UserID  domain.UserID

	Status    domain.RSVPStatus
	UpdatedAt time.Time
}

// Repository is the reservation ledger. It is the source of truth for who
// holds which status on an event; the denormalized attendee count on the
// event record is always derived from it.
type Repository interface {
	// Get returns the reservation for (event, user). If it does not exist,
	// ErrNotFound is returned.
	Get(ctx context.Context, eventID domain.EventID, userID domain.UserID) (Reservation, error)

	// Upsert writes the reservation for (event, user) as a single atomic
	// insert-or-replace. There is never more than one record per pair.
	Upsert(ctx context.Context, r Reservation) error

	// ListByEvent returns all reservations for an event, ordered by UserID
	// ascending then UpdatedAt ascending.
	ListByEvent(ctx context.Context, eventID domain.EventID) ([]Reservation, error)

	// CountAccepted counts ACCEPTED reservations for the event from a
	// consistent snapshot.
	CountAccepted(ctx context.Context, eventID domain.EventID) (int, error)

	// DeleteByEvent removes every reservation for the event. Used when an
	// event is deleted.
	DeleteByEvent(ctx context.Context, eventID domain.EventID) error
}
