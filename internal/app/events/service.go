// Package events implements event CRUD around the admission subsystem.
//
// Capacity edits and deletion take the same per-event lock as admission so
// the attendee count can never be observed against a stale cap.
package events

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/platform/eventlock"
	clockport "github.com/gatherhall/events-api/internal/ports/out/clock"
	"github.com/gatherhall/events-api/internal/ports/out/eventrepo"
	"github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
)

type Service struct {
	events       eventrepo.Repository
	reservations reservationrepo.Repository
	clk          clockport.Clock
	locks        *eventlock.Map

	newEventID func() domain.EventID
}

func NewService(
	events eventrepo.Repository,
	reservations reservationrepo.Repository,
	clk clockport.Clock,
	locks *eventlock.Map,
) *Service {
	return &Service{
		events:       events,
		reservations: reservations,
		clk:          clk,
		locks:        locks,
		newEventID: func() domain.EventID {
			return domain.EventID(uuid.NewString())
		},
	}
}

// SetNewEventIDForTest overrides event ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewEventIDForTest(fn func() domain.EventID) {
	if fn != nil {
		s.newEventID = fn
	}
}

func (s *Service) CreateEvent(ctx context.Context, caller domain.UserID, in CreateEventInput) (domain.EventDetails, error) {
	if caller == "" {
		return domain.EventDetails{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "authentication required"}
	}

	title := domain.NormalizeText(in.Title)
	if title == "" {
		return domain.EventDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid title", Details: map[string]any{"title": "must be non-empty"}}
	}
	if in.StartsAt.IsZero() {
		return domain.EventDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid startsAt", Details: map[string]any{"startsAt": "is required"}}
	}
	if in.MaxAttendees != nil && *in.MaxAttendees < 1 {
		return domain.EventDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid maxAttendees", Details: map[string]any{"maxAttendees": "must be >= 1"}}
	}

	now := s.clk.Now().UTC()
	e := eventrepo.Event{
		ID:           s.newEventID(),
		Title:        title,
		Description:  cloneStringPtr(in.Description),
		StartsAt:     in.StartsAt.UTC(),
		AuthorID:     caller,
		MaxAttendees: cloneIntPtr(in.MaxAttendees),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.events.Create(ctx, e); err != nil {
		if errors.Is(err, eventrepo.ErrAlreadyExists) {
			// Extremely unlikely (UUID collision); treat as conflict.
			return domain.EventDetails{}, &Error{Status: 409, Code: "EVENT_ID_CONFLICT", Message: "event id conflict"}
		}
		return domain.EventDetails{}, err
	}
	return toDetails(e, nil), nil
}

func (s *Service) ListEvents(ctx context.Context) ([]domain.EventSummary, error) {
	es, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.EventSummary, 0, len(es))
	for _, e := range es {
		out = append(out, toSummary(e))
	}
	return out, nil
}

func (s *Service) GetEvent(ctx context.Context, caller domain.UserID, eventID domain.EventID) (domain.EventDetails, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.EventDetails{}, &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
		}
		return domain.EventDetails{}, err
	}

	var mine *domain.Reservation
	if caller != "" {
		if r, err := s.reservations.Get(ctx, eventID, caller); err == nil {
			mine = &domain.Reservation{
				EventID:   r.EventID,
				UserID:    r.UserID,
				Status:    r.Status,
				UpdatedAt: r.UpdatedAt,
			}
		} else if !errors.Is(err, reservationrepo.ErrNotFound) {
			return domain.EventDetails{}, err
		}
	}
	return toDetails(e, mine), nil
}

func (s *Service) UpdateEvent(ctx context.Context, caller domain.UserID, eventID domain.EventID, in UpdateEventInput) (domain.EventDetails, error) {
	if caller == "" {
		return domain.EventDetails{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "authentication required"}
	}

	unlock := s.locks.Lock(eventID)
	defer unlock()

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return domain.EventDetails{}, &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
		}
		return domain.EventDetails{}, err
	}
	if e.AuthorID != caller {
		// Non-authors get 404, not 403: do not leak which events exist to edit.
		return domain.EventDetails{}, &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
	}

	if in.Title.IsSpecified() {
		if in.Title.IsNull() {
			return domain.EventDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid title", Details: map[string]any{"title": "cannot be null"}}
		}
		title := domain.NormalizeText(in.Title.Value())
		if title == "" {
			return domain.EventDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid title", Details: map[string]any{"title": "must be non-empty"}}
		}
		e.Title = title
	}

	if in.Description.IsSpecified() {
		if in.Description.IsNull() {
			e.Description = nil
		} else {
			v := in.Description.Value()
			e.Description = &v
		}
	}

	if in.StartsAt.IsSpecified() {
		if in.StartsAt.IsNull() {
			return domain.EventDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid startsAt", Details: map[string]any{"startsAt": "cannot be null"}}
		}
		e.StartsAt = in.StartsAt.Value().UTC()
	}

	if in.MaxAttendees.IsSpecified() {
		if in.MaxAttendees.IsNull() {
			e.MaxAttendees = nil
		} else {
			v := in.MaxAttendees.Value()
			if v < 1 {
				return domain.EventDetails{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid maxAttendees", Details: map[string]any{"maxAttendees": "must be >= 1"}}
			}
			// The cap may never drop below current attendance.
			if v < e.AttendeeCount {
				return domain.EventDetails{}, &Error{
					Status:  409,
					Code:    "CAPACITY_BELOW_ATTENDANCE",
					Message: "capacity cannot be reduced below current attendance",
					Details: map[string]any{"attendeeCount": e.AttendeeCount},
				}
			}
			e.MaxAttendees = &v
		}
	}

	e.UpdatedAt = s.clk.Now().UTC()
	if err := s.events.Save(ctx, e); err != nil {
		return domain.EventDetails{}, err
	}
	return s.GetEvent(ctx, caller, eventID)
}

// DeleteEvent removes the event and cascades its reservation ledger.
func (s *Service) DeleteEvent(ctx context.Context, caller domain.UserID, eventID domain.EventID) error {
	if caller == "" {
		return &Error{Status: 401, Code: "UNAUTHORIZED", Message: "authentication required"}
	}

	unlock := s.locks.Lock(eventID)
	defer unlock()

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventrepo.ErrNotFound) {
			return &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
		}
		return err
	}
	if e.AuthorID != caller {
		return &Error{Status: 404, Code: "EVENT_NOT_FOUND", Message: "event not found"}
	}

	if err := s.reservations.DeleteByEvent(ctx, eventID); err != nil {
		return err
	}
	return s.events.Delete(ctx, eventID)
}

func toSummary(e eventrepo.Event) domain.EventSummary {
	return domain.EventSummary{
		ID:            e.ID,
		Title:         e.Title,
		StartsAt:      e.StartsAt,
		AuthorID:      e.AuthorID,
		MaxAttendees:  cloneIntPtr(e.MaxAttendees),
		AttendeeCount: e.AttendeeCount,
		CreatedAt:     e.CreatedAt,
	}
}

func toDetails(e eventrepo.Event, mine *domain.Reservation) domain.EventDetails {
	return domain.EventDetails{
		EventSummary: toSummary(e),
		Description:  cloneStringPtr(e.Description),
		UpdatedAt:    e.UpdatedAt,
		IsFull:       e.MaxAttendees != nil && e.AttendeeCount >= *e.MaxAttendees,
		MyRSVP:       mine,
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
