package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	memeventrepo "github.com/gatherhall/events-api/internal/adapters/memory/eventrepo"
	memreservationrepo "github.com/gatherhall/events-api/internal/adapters/memory/reservationrepo"
	memuserrepo "github.com/gatherhall/events-api/internal/adapters/memory/userrepo"
	"github.com/gatherhall/events-api/internal/app/events"
	"github.com/gatherhall/events-api/internal/app/rsvp"
	"github.com/gatherhall/events-api/internal/app/users"
	"github.com/gatherhall/events-api/internal/platform/auth/token"
	"github.com/gatherhall/events-api/internal/platform/eventlock"
)

// manualClock hands out strictly increasing instants so records written in
// sequence have distinct timestamps.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	clk := &manualClock{t: time.Unix(1000, 0).UTC()}
	eventRepo := memeventrepo.NewRepo()
	reservationRepo := memreservationrepo.NewRepo()
	userRepo := memuserrepo.NewRepo()
	locks := eventlock.New()

	usersSvc := users.NewService(userRepo, clk)
	eventsSvc := events.NewService(eventRepo, reservationRepo, clk, locks)
	rsvpSvc := rsvp.NewService(eventRepo, reservationRepo, userRepo, clk, locks)

	mgr, err := token.NewManager(token.Config{
		Secret:   []byte("test-secret-0123456789"),
		Issuer:   "test-iss",
		Audience: "test-aud",
		TTL:      10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	api := NewServer(usersSvc, eventsSvc, rsvpSvc, mgr)
	return NewRouter(api, NewAuthMiddleware(mgr))
}

func doJSON(t *testing.T, h http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// signupUser registers an account and returns a bearer header plus the new
// user's ID.
func signupUser(t *testing.T, h http.Handler, email, displayName string) (authz string, userID string) {
	t.Helper()

	body := `{"email":"` + email + `","displayName":"` + displayName + `","password":"correct horse"}`
	rec := doJSON(t, h, http.MethodPost, "/api/signup", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	if resp.Token == "" || resp.User.Id == "" {
		t.Fatalf("incomplete signup response: %s", rec.Body.String())
	}
	return "Bearer " + resp.Token, resp.User.Id
}

func createEvent(t *testing.T, h http.Handler, authz, body string) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/events", authz, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp eventDetailsJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create event: %v", err)
	}
	return resp.Id
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var er struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return er.Error.Code
}
