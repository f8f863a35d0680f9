// Package contracttest holds repository contract suites shared by the memory
// and postgres adapters. Each adapter's own test file wires its factory into
// these suites so both backends are held to identical semantics.
package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhall/events-api/internal/domain"
	eventrepoport "github.com/gatherhall/events-api/internal/ports/out/eventrepo"
	reservationrepoport "github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
	userrepoport "github.com/gatherhall/events-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type EventRepoFactory func(t *testing.T) (eventrepoport.Repository, CleanupFunc)
type ReservationRepoFactory func(t *testing.T) (reservationrepoport.Repository, CleanupFunc)
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)

func RunEventRepo(t *testing.T, newRepo EventRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	cap := 5
	id := domain.EventID(uuid.NewString())
	desc := "bring snacks"
	if err := repo.Create(ctx, eventrepoport.Event{
		ID:           id,
		Title:        "Game Night",
		Description:  &desc,
		StartsAt:     now.Add(72 * time.Hour),
		AuthorID:     domain.UserID(uuid.NewString()),
		MaxAttendees: &cap,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Duplicate ID rejected.
	if err := repo.Create(ctx, eventrepoport.Event{ID: id, Title: "dup", StartsAt: now, AuthorID: domain.UserID(uuid.NewString()), CreatedAt: now, UpdatedAt: now}); !errors.Is(err, eventrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Game Night" || got.MaxAttendees == nil || *got.MaxAttendees != 5 || got.AttendeeCount != 0 {
		t.Fatalf("unexpected event: %#v", got)
	}
	if got.Description == nil || *got.Description != "bring snacks" {
		t.Fatalf("description=%v", got.Description)
	}

	// Aggregate write touches only the counter.
	if err := repo.SetAttendeeCount(ctx, id, 3); err != nil {
		t.Fatalf("SetAttendeeCount: %v", err)
	}
	got, err = repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AttendeeCount != 3 || got.Title != "Game Night" {
		t.Fatalf("after SetAttendeeCount: %#v", got)
	}
	if err := repo.SetAttendeeCount(ctx, domain.EventID(uuid.NewString()), 1); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Save overwrites fields, List orders newest first.
	got.Title = "Game Night II"
	got.UpdatedAt = now.Add(time.Hour)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}

	newerID := domain.EventID(uuid.NewString())
	if err := repo.Create(ctx, eventrepoport.Event{
		ID:        newerID,
		Title:     "Newer",
		StartsAt:  now.Add(24 * time.Hour),
		AuthorID:  domain.UserID(uuid.NewString()),
		CreatedAt: now.Add(10 * time.Minute),
		UpdatedAt: now.Add(10 * time.Minute),
	}); err != nil {
		t.Fatalf("Create newer: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != newerID || list[1].ID != id {
		t.Fatalf("unexpected order: %#v", list)
	}
	if list[1].Title != "Game Night II" {
		t.Fatalf("Save not visible in List: %#v", list[1])
	}

	// Delete.
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, id); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, eventrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func RunReservationRepo(t *testing.T, newRepo ReservationRepoFactory, newEventRepo EventRepoFactory, newUserRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	events, eCleanup := newEventRepo(t)
	if eCleanup != nil {
		t.Cleanup(eCleanup)
	}
	users, uCleanup := newUserRepo(t)
	if uCleanup != nil {
		t.Cleanup(uCleanup)
	}

	now := time.Unix(1000, 0).UTC()
	eventID := domain.EventID(uuid.NewString())
	otherEventID := domain.EventID(uuid.NewString())
	userA := domain.UserID(uuid.NewString())
	userB := domain.UserID(uuid.NewString())

	// Referenced rows exist so FK-backed adapters can operate.
	for _, id := range []domain.EventID{eventID, otherEventID} {
		if err := events.Create(ctx, eventrepoport.Event{
			ID:        id,
			Title:     "Seeded",
			StartsAt:  now.Add(time.Hour),
			AuthorID:  userA,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	for i, id := range []domain.UserID{userA, userB} {
		if err := users.Create(ctx, userrepoport.User{
			ID:           id,
			Email:        uuid.NewString() + "@example.com",
			DisplayName:  "User",
			PasswordHash: "x",
			CreatedAt:    now.Add(time.Duration(i) * time.Second),
			UpdatedAt:    now,
		}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	if _, err := repo.Get(ctx, eventID, userA); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Upsert inserts, then replaces in place.
	if err := repo.Upsert(ctx, reservationrepoport.Reservation{
		EventID: eventID, UserID: userA, Status: domain.RSVPStatusAccepted, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	if err := repo.Upsert(ctx, reservationrepoport.Reservation{
		EventID: eventID, UserID: userA, Status: domain.RSVPStatusDeclined, UpdatedAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	got, err := repo.Get(ctx, eventID, userA)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.RSVPStatusDeclined || !got.UpdatedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected reservation: %#v", got)
	}

	rs, err := repo.ListByEvent(ctx, eventID)
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("expected exactly one record per (event,user) pair, got %d", len(rs))
	}

	// CountAccepted sees only ACCEPTED rows of the requested event.
	if err := repo.Upsert(ctx, reservationrepoport.Reservation{
		EventID: eventID, UserID: userB, Status: domain.RSVPStatusAccepted, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Upsert b: %v", err)
	}
	if err := repo.Upsert(ctx, reservationrepoport.Reservation{
		EventID: otherEventID, UserID: userA, Status: domain.RSVPStatusAccepted, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Upsert other event: %v", err)
	}
	if n, err := repo.CountAccepted(ctx, eventID); err != nil || n != 1 {
		t.Fatalf("CountAccepted: n=%d err=%v", n, err)
	}
	if n, err := repo.CountAccepted(ctx, otherEventID); err != nil || n != 1 {
		t.Fatalf("CountAccepted other: n=%d err=%v", n, err)
	}

	// Stable order: userID asc.
	rs, err = repo.ListByEvent(ctx, eventID)
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(rs))
	}
	if string(rs[0].UserID) > string(rs[1].UserID) {
		t.Fatalf("not ordered by userID: %#v", rs)
	}

	// Cascade delete clears one event's ledger only.
	if err := repo.DeleteByEvent(ctx, eventID); err != nil {
		t.Fatalf("DeleteByEvent: %v", err)
	}
	if rs, err := repo.ListByEvent(ctx, eventID); err != nil || len(rs) != 0 {
		t.Fatalf("ledger not cleared: %v %v", rs, err)
	}
	if n, err := repo.CountAccepted(ctx, otherEventID); err != nil || n != 1 {
		t.Fatalf("other event affected by cascade: n=%d err=%v", n, err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	id := domain.UserID(uuid.NewString())
	email := uuid.NewString() + "@example.com"
	if err := repo.Create(ctx, userrepoport.User{
		ID:           id,
		Email:        email,
		DisplayName:  "Alice Johnson",
		PasswordHash: "bcrypt-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.GetByID(ctx, id); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got, err := repo.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != id || got.PasswordHash != "bcrypt-hash" {
		t.Fatalf("unexpected user: %#v", got)
	}

	// Email uniqueness.
	if err := repo.Create(ctx, userrepoport.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		DisplayName:  "Impostor",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}); !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "missing@example.com"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
