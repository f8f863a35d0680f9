package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/gatherhall/events-api/internal/app/events"
	"github.com/gatherhall/events-api/internal/domain"
)

type signupRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userJSON struct {
	Id          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userJSON `json:"user"`
}

type createEventRequest struct {
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	StartsAt     time.Time `json:"startsAt"`
	MaxAttendees *int      `json:"maxAttendees,omitempty"`
}

// updateEventRequest distinguishes omitted fields from explicit nulls:
// PATCH {"maxAttendees": null} lifts the cap, while omitting the field
// leaves it unchanged.
type updateEventRequest struct {
	Title        nullable.Nullable[string]    `json:"title,omitempty"`
	Description  nullable.Nullable[string]    `json:"description,omitempty"`
	StartsAt     nullable.Nullable[time.Time] `json:"startsAt,omitempty"`
	MaxAttendees nullable.Nullable[int]       `json:"maxAttendees,omitempty"`
}

type eventSummaryJSON struct {
	Id            string    `json:"id"`
	Title         string    `json:"title"`
	StartsAt      time.Time `json:"startsAt"`
	AuthorId      string    `json:"authorId"`
	MaxAttendees  *int      `json:"maxAttendees"`
	AttendeeCount int       `json:"attendeeCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type eventDetailsJSON struct {
	eventSummaryJSON

	Description *string          `json:"description"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	IsFull      bool             `json:"isFull"`
	MyRsvp      *reservationJSON `json:"myRsvp,omitempty"`
}

type listEventsResponse struct {
	Events []eventSummaryJSON `json:"events"`
}

type reservationJSON struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type setRSVPRequest struct {
	Status string `json:"status"`
}

type admissionResponse struct {
	MyRsvp    reservationJSON `json:"myRsvp"`
	EventFull bool            `json:"eventFull"`
}

type myReservationResponse struct {
	Status    string `json:"status"`
	EventFull bool   `json:"eventFull"`
}

type attendeeJSON struct {
	DisplayName string `json:"displayName"`
	Status      string `json:"status"`
}

type listAttendeesResponse struct {
	Attendees []attendeeJSON `json:"attendees"`
}

func userFromDomain(u domain.User) userJSON {
	return userJSON{
		Id:          string(u.ID),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func summaryFromDomain(e domain.EventSummary) eventSummaryJSON {
	return eventSummaryJSON{
		Id:            string(e.ID),
		Title:         e.Title,
		StartsAt:      e.StartsAt,
		AuthorId:      string(e.AuthorID),
		MaxAttendees:  e.MaxAttendees,
		AttendeeCount: e.AttendeeCount,
		CreatedAt:     e.CreatedAt,
	}
}

func detailsFromDomain(e domain.EventDetails) eventDetailsJSON {
	out := eventDetailsJSON{
		eventSummaryJSON: summaryFromDomain(e.EventSummary),
		Description:      e.Description,
		UpdatedAt:        e.UpdatedAt,
		IsFull:           e.IsFull,
	}
	if e.MyRSVP != nil {
		out.MyRsvp = &reservationJSON{
			Status:    string(e.MyRSVP.Status),
			UpdatedAt: e.MyRSVP.UpdatedAt,
		}
	}
	return out
}

func toOptional[T any](n nullable.Nullable[T]) events.Optional[T] {
	if !n.IsSpecified() {
		return events.Unspecified[T]()
	}
	if n.IsNull() {
		return events.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return events.Unspecified[T]()
	}
	return events.Some(v)
}
