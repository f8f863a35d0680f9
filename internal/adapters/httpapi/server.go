package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatherhall/events-api/internal/app/events"
	"github.com/gatherhall/events-api/internal/app/rsvp"
	"github.com/gatherhall/events-api/internal/app/users"
	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/platform/auth/token"
)

// Server is the HTTP adapter. It decodes requests, delegates to the
// application services, and maps their typed errors onto the JSON envelope.
type Server struct {
	Users  *users.Service
	Events *events.Service
	RSVP   *rsvp.Service

	// Tokens mints bearer tokens on signup/login. Nil in dev-auth mode,
	// where the auth endpoints return an empty token.
	Tokens *token.Manager
}

func NewServer(usersSvc *users.Service, eventsSvc *events.Service, rsvpSvc *rsvp.Service, tokens *token.Manager) *Server {
	return &Server{
		Users:  usersSvc,
		Events: eventsSvc,
		RSVP:   rsvpSvc,
		Tokens: tokens,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return false
	}
	return true
}

func (s *Server) mintToken(userID domain.UserID) (string, error) {
	if s.Tokens == nil {
		return "", nil
	}
	return s.Tokens.Mint(userID)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := s.Users.Signup(r.Context(), users.SignupInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	tok, err := s.mintToken(u.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: tok, User: userFromDomain(u)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := s.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	tok, err := s.mintToken(u.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: tok, User: userFromDomain(u)})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}

	u, err := s.Users.GetMyProfile(r.Context(), domain.UserID(sub))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req createEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	details, err := s.Events.CreateEvent(r.Context(), domain.UserID(sub), events.CreateEventInput{
		Title:        req.Title,
		Description:  req.Description,
		StartsAt:     req.StartsAt,
		MaxAttendees: req.MaxAttendees,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, detailsFromDomain(details))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Events.ListEvents(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	out := make([]eventSummaryJSON, 0, len(summaries))
	for _, e := range summaries {
		out = append(out, summaryFromDomain(e))
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: out})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	eventID := domain.EventID(chi.URLParam(r, "eventId"))

	details, err := s.Events.GetEvent(r.Context(), domain.UserID(sub), eventID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailsFromDomain(details))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	eventID := domain.EventID(chi.URLParam(r, "eventId"))
	var req updateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	details, err := s.Events.UpdateEvent(r.Context(), domain.UserID(sub), eventID, events.UpdateEventInput{
		Title:        toOptional(req.Title),
		Description:  toOptional(req.Description),
		StartsAt:     toOptional(req.StartsAt),
		MaxAttendees: toOptional(req.MaxAttendees),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailsFromDomain(details))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	eventID := domain.EventID(chi.URLParam(r, "eventId"))

	if err := s.Events.DeleteEvent(r.Context(), domain.UserID(sub), eventID); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetRSVP(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	eventID := domain.EventID(chi.URLParam(r, "eventId"))
	var req setRSVPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	adm, err := s.RSVP.RequestStatusChange(r.Context(), domain.UserID(sub), eventID, domain.RSVPStatus(req.Status))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admissionResponse{
		MyRsvp: reservationJSON{
			Status:    string(adm.Reservation.Status),
			UpdatedAt: adm.Reservation.UpdatedAt,
		},
		EventFull: adm.EventFull,
	})
}

func (s *Server) handleGetMyRSVP(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	eventID := domain.EventID(chi.URLParam(r, "eventId"))

	ur, err := s.RSVP.GetUserReservation(r.Context(), domain.UserID(sub), eventID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, myReservationResponse{
		Status:    string(ur.Status),
		EventFull: ur.EventFull,
	})
}

func (s *Server) handleListRSVPs(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(chi.URLParam(r, "eventId"))

	entries, err := s.RSVP.ListReservations(r.Context(), eventID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	out := make([]attendeeJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, attendeeJSON{DisplayName: e.DisplayName, Status: string(e.Status)})
	}
	writeJSON(w, http.StatusOK, listAttendeesResponse{Attendees: out})
}
