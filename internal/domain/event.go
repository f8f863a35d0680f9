package domain

import "time"

// RSVPStatus is the state of a user's reservation for an event.
type RSVPStatus string

const (
	RSVPStatusPending  RSVPStatus = "PENDING"
	RSVPStatusAccepted RSVPStatus = "ACCEPTED"
	RSVPStatusDeclined RSVPStatus = "DECLINED"
)

// Valid reports whether s is one of the known reservation states.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPStatusPending, RSVPStatusAccepted, RSVPStatusDeclined:
		return true
	}
	return false
}

// EventSummary is the list read model for events.
type EventSummary struct {
	ID       EventID
	Title    string
	StartsAt time.Time
	AuthorID UserID

	// MaxAttendees is nil for events without an attendance cap.
	MaxAttendees  *int
	AttendeeCount int

	CreatedAt time.Time
}

// EventDetails is the single-event read model.
type EventDetails struct {
	EventSummary

	Description *string
	UpdatedAt   time.Time

	// IsFull is derived from the persisted aggregate: MaxAttendees set and
	// AttendeeCount >= *MaxAttendees.
	IsFull bool

	// MyRSVP is the caller's reservation, nil when the caller has none.
	MyRSVP *Reservation
}

// Reservation is the domain representation of a ledger record: at most one
// per (event, user) pair.
type Reservation struct {
	EventID   EventID
	UserID    UserID
	Status    RSVPStatus
	UpdatedAt time.Time
}

// Admission is the outcome of a committed status change.
type Admission struct {
	Reservation Reservation

	// EventFull reflects the aggregate after the commit.
	EventFull bool
}

// UserReservation combines a caller's reservation with the event's current
// fullness for the read-only status query.
type UserReservation struct {
	Status    RSVPStatus
	EventFull bool
}

// AttendeeEntry is one row of an event's attendee listing.
type AttendeeEntry struct {
	DisplayName string
	Status      RSVPStatus
}
