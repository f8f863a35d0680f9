package rsvp_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	memeventrepo "github.com/gatherhall/events-api/internal/adapters/memory/eventrepo"
	memreservationrepo "github.com/gatherhall/events-api/internal/adapters/memory/reservationrepo"
	memuserrepo "github.com/gatherhall/events-api/internal/adapters/memory/userrepo"
	"github.com/gatherhall/events-api/internal/app/rsvp"
	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/platform/eventlock"
	porteventrepo "github.com/gatherhall/events-api/internal/ports/out/eventrepo"
	portreservationrepo "github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
	portuserrepo "github.com/gatherhall/events-api/internal/ports/out/userrepo"
)

type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	svc          *rsvp.Service
	events       *memeventrepo.Repo
	reservations *memreservationrepo.Repo
	users        *memuserrepo.Repo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	events := memeventrepo.NewRepo()
	reservations := memreservationrepo.NewRepo()
	users := memuserrepo.NewRepo()
	clk := &tickingClock{now: time.Unix(1000, 0).UTC()}
	svc := rsvp.NewService(events, reservations, users, clk, eventlock.New())
	return fixture{svc: svc, events: events, reservations: reservations, users: users}
}

func (f fixture) addEvent(t *testing.T, id domain.EventID, maxAttendees *int) {
	t.Helper()
	now := time.Unix(500, 0).UTC()
	err := f.events.Create(context.Background(), porteventrepo.Event{
		ID:           id,
		Title:        "Event " + string(id),
		StartsAt:     now.Add(48 * time.Hour),
		AuthorID:     "author",
		MaxAttendees: maxAttendees,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Create event: %v", err)
	}
}

func (f fixture) addUser(t *testing.T, id domain.UserID, displayName string) {
	t.Helper()
	now := time.Unix(500, 0).UTC()
	err := f.users.Create(context.Background(), portuserrepo.User{
		ID:          id,
		Email:       string(id) + "@example.com",
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
}

func intPtr(v int) *int { return &v }

func (f fixture) attendeeCount(t *testing.T, id domain.EventID) int {
	t.Helper()
	e, err := f.events.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return e.AttendeeCount
}

func TestRequestStatusChange_Scenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", intPtr(2))

	// A takes the first seat.
	adA, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted)
	if err != nil {
		t.Fatalf("a accept: %v", err)
	}
	if adA.EventFull || adA.Reservation.Status != domain.RSVPStatusAccepted {
		t.Fatalf("adA=%+v", adA)
	}
	if got := f.attendeeCount(t, "ev"); got != 1 {
		t.Fatalf("count=%d want=1", got)
	}

	// B takes the last seat; event now full.
	adB, err := f.svc.RequestStatusChange(ctx, "b", "ev", domain.RSVPStatusAccepted)
	if err != nil {
		t.Fatalf("b accept: %v", err)
	}
	if !adB.EventFull {
		t.Fatalf("expected eventFull after second accept")
	}
	if got := f.attendeeCount(t, "ev"); got != 2 {
		t.Fatalf("count=%d want=2", got)
	}

	// C is rejected; the ledger and aggregate are untouched.
	_, err = f.svc.RequestStatusChange(ctx, "c", "ev", domain.RSVPStatusAccepted)
	var ae *rsvp.Error
	if !errors.As(err, &ae) || ae.Status != 409 || ae.Code != "EVENT_AT_CAPACITY" {
		t.Fatalf("err=%v", err)
	}
	if got := f.attendeeCount(t, "ev"); got != 2 {
		t.Fatalf("count=%d want=2 after rejection", got)
	}
	if _, err := f.reservations.Get(ctx, "ev", "c"); !errors.Is(err, portreservationrepo.ErrNotFound) {
		t.Fatalf("expected no ledger record for c, got err=%v", err)
	}

	// A declines, freeing a seat.
	adA2, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusDeclined)
	if err != nil {
		t.Fatalf("a decline: %v", err)
	}
	if adA2.EventFull {
		t.Fatalf("expected seat to free up")
	}
	if got := f.attendeeCount(t, "ev"); got != 1 {
		t.Fatalf("count=%d want=1 after decline", got)
	}

	// C retries and wins the freed seat.
	adC, err := f.svc.RequestStatusChange(ctx, "c", "ev", domain.RSVPStatusAccepted)
	if err != nil {
		t.Fatalf("c retry: %v", err)
	}
	if !adC.EventFull {
		t.Fatalf("expected eventFull after c takes the freed seat")
	}
	if got := f.attendeeCount(t, "ev"); got != 2 {
		t.Fatalf("count=%d want=2", got)
	}
}

func TestRequestStatusChange_NoOversellUnderConcurrency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Repeat to give the race a chance to manifest if serialization is broken.
	for round := 0; round < 25; round++ {
		f := newFixture(t)
		f.addEvent(t, "ev", intPtr(1))

		start := make(chan struct{})
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i, user := range []domain.UserID{"a", "b"} {
			wg.Add(1)
			go func(i int, user domain.UserID) {
				defer wg.Done()
				<-start
				_, errs[i] = f.svc.RequestStatusChange(ctx, user, "ev", domain.RSVPStatusAccepted)
			}(i, user)
		}
		close(start)
		wg.Wait()

		admitted, rejected := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				admitted++
			default:
				var ae *rsvp.Error
				if !errors.As(err, &ae) || ae.Code != "EVENT_AT_CAPACITY" {
					t.Fatalf("unexpected error: %v", err)
				}
				rejected++
			}
		}
		if admitted != 1 || rejected != 1 {
			t.Fatalf("round %d: admitted=%d rejected=%d", round, admitted, rejected)
		}
		if got := f.attendeeCount(t, "ev"); got != 1 {
			t.Fatalf("round %d: count=%d want=1", round, got)
		}
	}
}

func TestRequestStatusChange_ConcurrentDistinctUsersRespectCapacity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	const capacity = 3
	const requesters = 10
	f.addEvent(t, "ev", intPtr(capacity))

	start := make(chan struct{})
	errs := make([]error, requesters)
	var wg sync.WaitGroup
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			user := domain.UserID(rune('a' + i))
			_, errs[i] = f.svc.RequestStatusChange(ctx, user, "ev", domain.RSVPStatusAccepted)
		}(i)
	}
	close(start)
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
		}
	}
	if admitted != capacity {
		t.Fatalf("admitted=%d want=%d", admitted, capacity)
	}
	if got := f.attendeeCount(t, "ev"); got != capacity {
		t.Fatalf("count=%d want=%d", got, capacity)
	}
	recount, err := f.reservations.CountAccepted(ctx, "ev")
	if err != nil {
		t.Fatalf("CountAccepted: %v", err)
	}
	if recount != capacity {
		t.Fatalf("recount=%d want=%d", recount, capacity)
	}
}

func TestRequestStatusChange_IdempotentReaffirmation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", intPtr(5))

	first, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted)
	if err != nil {
		t.Fatalf("first accept: %v", err)
	}
	second, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if got := f.attendeeCount(t, "ev"); got != 1 {
		t.Fatalf("count=%d want=1 after re-affirmation", got)
	}
	// Re-affirmation returns the existing record untouched.
	if !second.Reservation.UpdatedAt.Equal(first.Reservation.UpdatedAt) {
		t.Fatalf("UpdatedAt changed on re-affirmation: %s -> %s",
			first.Reservation.UpdatedAt, second.Reservation.UpdatedAt)
	}
}

func TestRequestStatusChange_ReaffirmationOnFullEventStillAdmits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", intPtr(1))

	if _, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// The seat holder retrying must not be rejected by the capacity check.
	ad, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted)
	if err != nil {
		t.Fatalf("retry while full: %v", err)
	}
	if !ad.EventFull {
		t.Fatalf("expected eventFull=true")
	}
	if got := f.attendeeCount(t, "ev"); got != 1 {
		t.Fatalf("count=%d want=1", got)
	}
}

func TestRequestStatusChange_UnlimitedCapacity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", nil)

	users := []domain.UserID{"a", "b", "c", "d", "e"}
	for _, u := range users {
		ad, err := f.svc.RequestStatusChange(ctx, u, "ev", domain.RSVPStatusAccepted)
		if err != nil {
			t.Fatalf("accept %s: %v", u, err)
		}
		if ad.EventFull {
			t.Fatalf("unlimited event reported full")
		}
	}
	if got := f.attendeeCount(t, "ev"); got != len(users) {
		t.Fatalf("count=%d want=%d", got, len(users))
	}

	ur, err := f.svc.GetUserReservation(ctx, "a", "ev")
	if err != nil {
		t.Fatalf("GetUserReservation: %v", err)
	}
	if ur.EventFull {
		t.Fatalf("isFull must be false for unlimited events")
	}
}

func TestRequestStatusChange_AggregateMatchesRecount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", intPtr(10))

	steps := []struct {
		user   domain.UserID
		status domain.RSVPStatus
	}{
		{"a", domain.RSVPStatusAccepted},
		{"b", domain.RSVPStatusPending},
		{"c", domain.RSVPStatusAccepted},
		{"a", domain.RSVPStatusDeclined},
		{"b", domain.RSVPStatusAccepted},
		{"c", domain.RSVPStatusDeclined},
		{"a", domain.RSVPStatusAccepted},
		{"a", domain.RSVPStatusAccepted},
	}
	for i, st := range steps {
		if _, err := f.svc.RequestStatusChange(ctx, st.user, "ev", st.status); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		recount, err := f.reservations.CountAccepted(ctx, "ev")
		if err != nil {
			t.Fatalf("CountAccepted: %v", err)
		}
		if got := f.attendeeCount(t, "ev"); got != recount {
			t.Fatalf("step %d: aggregate=%d recount=%d", i, got, recount)
		}
	}
}

func TestRequestStatusChange_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", intPtr(1))

	var ae *rsvp.Error

	_, err := f.svc.RequestStatusChange(ctx, "", "ev", domain.RSVPStatusAccepted)
	if !errors.As(err, &ae) || ae.Status != 401 || ae.Code != "UNAUTHORIZED" {
		t.Fatalf("err=%v", err)
	}

	_, err = f.svc.RequestStatusChange(ctx, "a", "missing", domain.RSVPStatusAccepted)
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "EVENT_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}

	_, err = f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatus("MAYBE"))
	if !errors.As(err, &ae) || ae.Status != 422 {
		t.Fatalf("err=%v", err)
	}

	// None of the failures may have touched the ledger.
	rs, err := f.reservations.ListByEvent(ctx, "ev")
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	if len(rs) != 0 {
		t.Fatalf("ledger has %d records after failed requests", len(rs))
	}
}

// faultyReservations wraps a real ledger and fails selected operations, for
// exercising the transient-storage error path.
type faultyReservations struct {
	portreservationrepo.Repository
	upsertErr error
	countErr  error
}

func (r *faultyReservations) Upsert(ctx context.Context, rec portreservationrepo.Reservation) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	return r.Repository.Upsert(ctx, rec)
}

func (r *faultyReservations) CountAccepted(ctx context.Context, id domain.EventID) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return r.Repository.CountAccepted(ctx, id)
}

func TestRequestStatusChange_StorageUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cases := map[string]func(*faultyReservations, error){
		"upsert fails":  func(r *faultyReservations, err error) { r.upsertErr = err },
		"recount fails": func(r *faultyReservations, err error) { r.countErr = err },
	}
	for name, inject := range cases {
		f := newFixture(t)
		f.addEvent(t, "ev", intPtr(2))

		faulty := &faultyReservations{Repository: f.reservations}
		svc := rsvp.NewService(f.events, faulty, f.users, &tickingClock{now: time.Unix(1000, 0).UTC()}, eventlock.New())

		inject(faulty, errors.New("connection reset"))
		_, err := svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted)
		var ae *rsvp.Error
		if !errors.As(err, &ae) || ae.Status != 503 || ae.Code != "STORAGE_UNAVAILABLE" {
			t.Fatalf("%s: err=%v", name, err)
		}

		// The ledger and the aggregate are untouched, so the caller can
		// safely retry the whole call.
		rs, lerr := f.reservations.ListByEvent(ctx, "ev")
		if lerr != nil {
			t.Fatalf("%s: ListByEvent: %v", name, lerr)
		}
		if len(rs) != 0 {
			t.Fatalf("%s: ledger has %d records after storage fault", name, len(rs))
		}
		if got := f.attendeeCount(t, "ev"); got != 0 {
			t.Fatalf("%s: count=%d want=0", name, got)
		}

		// Once storage recovers, the retry goes through.
		faulty.upsertErr, faulty.countErr = nil, nil
		ad, err := svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted)
		if err != nil {
			t.Fatalf("%s: retry after recovery: %v", name, err)
		}
		if ad.Reservation.Status != domain.RSVPStatusAccepted {
			t.Fatalf("%s: retry admission=%+v", name, ad)
		}
		if got := f.attendeeCount(t, "ev"); got != 1 {
			t.Fatalf("%s: count=%d want=1 after retry", name, got)
		}
	}
}

func TestGetUserReservation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", intPtr(1))

	var ae *rsvp.Error
	_, err := f.svc.GetUserReservation(ctx, "a", "missing")
	if !errors.As(err, &ae) || ae.Code != "EVENT_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}
	_, err = f.svc.GetUserReservation(ctx, "a", "ev")
	if !errors.As(err, &ae) || ae.Code != "RESERVATION_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}

	if _, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	ur, err := f.svc.GetUserReservation(ctx, "a", "ev")
	if err != nil {
		t.Fatalf("GetUserReservation: %v", err)
	}
	if ur.Status != domain.RSVPStatusAccepted || !ur.EventFull {
		t.Fatalf("ur=%+v", ur)
	}
}

func TestListReservations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.addEvent(t, "ev", nil)
	f.addUser(t, "a", "Alice")
	f.addUser(t, "b", "Bob")
	f.addUser(t, "c", "Carol")

	if _, err := f.svc.RequestStatusChange(ctx, "c", "ev", domain.RSVPStatusDeclined); err != nil {
		t.Fatalf("c decline: %v", err)
	}
	if _, err := f.svc.RequestStatusChange(ctx, "a", "ev", domain.RSVPStatusAccepted); err != nil {
		t.Fatalf("a accept: %v", err)
	}
	if _, err := f.svc.RequestStatusChange(ctx, "b", "ev", domain.RSVPStatusPending); err != nil {
		t.Fatalf("b pending: %v", err)
	}

	entries, err := f.svc.ListReservations(ctx, "ev")
	if err != nil {
		t.Fatalf("ListReservations: %v", err)
	}
	want := []domain.AttendeeEntry{
		{DisplayName: "Alice", Status: domain.RSVPStatusAccepted},
		{DisplayName: "Bob", Status: domain.RSVPStatusPending},
		{DisplayName: "Carol", Status: domain.RSVPStatusDeclined},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v want %+v", i, entries[i], want[i])
		}
	}

	var ae *rsvp.Error
	if _, err := f.svc.ListReservations(ctx, "missing"); !errors.As(err, &ae) || ae.Code != "EVENT_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}
}

func TestRequestStatusChange_DifferentEventsDoNotContend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	const events = 8
	for i := 0; i < events; i++ {
		f.addEvent(t, domain.EventID(rune('p'+i)), intPtr(1))
	}

	start := make(chan struct{})
	errs := make([]error, events)
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			id := domain.EventID(rune('p' + i))
			_, errs[i] = f.svc.RequestStatusChange(ctx, "u", id, domain.RSVPStatusAccepted)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}
}
