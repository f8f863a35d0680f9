package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: the package wires routes and
// middleware and delegates everything else to the application services.
// auth guards every route except signup, login, and the health endpoint.
func NewRouter(s *Server, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoint is deliberately unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/signup", s.handleSignup)
		api.Post("/login", s.handleLogin)

		api.Group(func(pr chi.Router) {
			pr.Use(auth)

			pr.Get("/me", s.handleGetMe)

			pr.Route("/events", func(er chi.Router) {
				er.Post("/", s.handleCreateEvent)
				er.Get("/", s.handleListEvents)

				er.Route("/{eventId}", func(ev chi.Router) {
					ev.Get("/", s.handleGetEvent)
					ev.Patch("/", s.handleUpdateEvent)
					ev.Delete("/", s.handleDeleteEvent)

					ev.Put("/rsvp", s.handleSetRSVP)
					ev.Get("/rsvp", s.handleGetMyRSVP)
					ev.Get("/rsvps", s.handleListRSVPs)
				})
			})
		})
	})

	return r
}
