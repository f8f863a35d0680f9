// Package rsvp implements admission control for capacity-limited events.
//
// Every ledger mutation for an event happens inside that event's lock scope,
// and the denormalized attendee count is recomputed from the ledger before
// the scope is released. Two concurrent ACCEPTED requests for the last seat
// therefore serialize: the first commits, the second re-reads occupancy and
// is rejected.
package rsvp

import (
	"context"
	"errors"

	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/platform/eventlock"
	clockport "github.com/gatherhall/events-api/internal/ports/out/clock"
	"github.com/gatherhall/events-api/internal/ports/out/eventrepo"
	"github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
	"github.com/gatherhall/events-api/internal/ports/out/userrepo"
)

type Service struct {
	events       eventrepo.Repository
	reservations reservationrepo.Repository
	users        userrepo.Repository
	clk          clockport.Clock
	locks        *eventlock.Map
}

// NewService constructs the admission controller. The lock map is shared with
// any other component that mutates events (capacity edits, deletion) so all
// writers for one event serialize on the same scope.
func NewService(
	events eventrepo.Repository,
	reservations reservationrepo.Repository,
	users userrepo.Repository,
	clk clockport.Clock,
	locks *eventlock.Map,
) *Service {
	return &Service{
		events:       events,
		reservations: reservations,
		users:        users,
		clk:          clk,
		locks:        locks,
	}
}

// RequestStatusChange decides whether the caller's requested status may be
// committed and, on success, writes the ledger and refreshes the event's
// attendee count as one serialized unit for that event.
//
// Re-requesting an already-held status is a no-op re-affirmation: the
// existing reservation is returned unchanged and no seat is consumed twice.
func (s *Service) RequestStatusChange(ctx context.Context, caller domain.UserID, eventID domain.EventID, status domain.RSVPStatus) (domain.Admission, error) {
	if caller == "" {
		return domain.Admission{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "authentication required"}
	}
	if !status.Valid() {
		return domain.Admission{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid status",
			Details: map[string]any{"status": "must be PENDING, ACCEPTED, or DECLINED"},
		}
	}

	unlock := s.locks.Lock(eventID)
	defer unlock()

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.Admission{}, &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
		}
		return domain.Admission{}, storageUnavailable(err)
	}

	existing, err := s.reservations.Get(ctx, eventID, caller)
	haveExisting := err == nil
	if err != nil && !errors.Is(err, reservationrepo.ErrNotFound) {
		return domain.Admission{}, storageUnavailable(err)
	}

	// Capacity applies only when the request would newly consume a seat.
	if status == domain.RSVPStatusAccepted && e.MaxAttendees != nil {
		holdsSeat := haveExisting && existing.Status == domain.RSVPStatusAccepted
		if !holdsSeat {
			occupied, err := s.reservations.CountAccepted(ctx, eventID)
			if err != nil {
				return domain.Admission{}, storageUnavailable(err)
			}
			if occupied >= *e.MaxAttendees {
				return domain.Admission{}, &Error{
					Status:  409,
					Code:    "EVENT_AT_CAPACITY",
					Message: "event is at capacity",
					Details: map[string]any{"maxAttendees": *e.MaxAttendees},
				}
			}
		}
	}

	rec := existing
	if !haveExisting || existing.Status != status {
		rec = reservationrepo.Reservation{
			EventID:   eventID,
			UserID:    caller,
			Status:    status,
			UpdatedAt: s.clk.Now().UTC(),
		}
		if err := s.reservations.Upsert(ctx, rec); err != nil {
			// The upsert is atomic, so the ledger is untouched and the whole
			// call is safe to retry.
			return domain.Admission{}, storageUnavailable(err)
		}
	}

	count, err := s.refreshAttendeeCount(ctx, eventID)
	if err != nil {
		// The ledger committed; the aggregate heals on the next admission for
		// this event since it is always recomputed, never incremented.
		return domain.Admission{}, err
	}

	return domain.Admission{
		Reservation: toDomainReservation(rec),
		EventFull:   isFull(e.MaxAttendees, count),
	}, nil
}

// GetUserReservation is the cheap read path: it reports the caller's status
// and whether the event is full from the persisted aggregate, without taking
// the admission lock.
func (s *Service) GetUserReservation(ctx context.Context, caller domain.UserID, eventID domain.EventID) (domain.UserReservation, error) {
	if caller == "" {
		return domain.UserReservation{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "authentication required"}
	}

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.UserReservation{}, &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
		}
		return domain.UserReservation{}, err
	}

	r, err := s.reservations.Get(ctx, eventID, caller)
	if err != nil {
		if errors.Is(err, reservationrepo.ErrNotFound) {
			return domain.UserReservation{}, &Error{Status: 404, Code: "RESERVATION_NOT_FOUND", Message: "no reservation for this event"}
		}
		return domain.UserReservation{}, err
	}

	return domain.UserReservation{
		Status:    r.Status,
		EventFull: isFull(e.MaxAttendees, e.AttendeeCount),
	}, nil
}

// ListReservations returns the event's reservations joined to user display
// names, in the ledger's stable order.
func (s *Service) ListReservations(ctx context.Context, eventID domain.EventID) ([]domain.AttendeeEntry, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return nil, &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
		}
		return nil, err
	}

	rs, err := s.reservations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.AttendeeEntry, 0, len(rs))
	for _, r := range rs {
		u, err := s.users.GetByID(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.AttendeeEntry{
			DisplayName: u.DisplayName,
			Status:      r.Status,
		})
	}
	return out, nil
}

// refreshAttendeeCount recomputes the aggregate from the ledger and persists
// it. Callers must hold the event's lock.
func (s *Service) refreshAttendeeCount(ctx context.Context, eventID domain.EventID) (int, error) {
	n, err := s.reservations.CountAccepted(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := s.events.SetAttendeeCount(ctx, eventID, n); err != nil {
		return 0, err
	}
	return n, nil
}

func isFull(maxAttendees *int, count int) bool {
	return maxAttendees != nil && count >= *maxAttendees
}

func storageUnavailable(err error) error {
	return &Error{
		Status:  503,
		Code:    "STORAGE_UNAVAILABLE",
		Message: "storage unavailable, retry the request",
		Details: map[string]any{"cause": err.Error()},
	}
}

func toDomainReservation(r reservationrepo.Reservation) domain.Reservation {
	return domain.Reservation{
		EventID:   r.EventID,
		UserID:    r.UserID,
		Status:    r.Status,
		UpdatedAt: r.UpdatedAt,
	}
}
