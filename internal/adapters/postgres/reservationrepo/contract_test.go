package reservationrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/gatherhall/events-api/internal/adapters/contracttest"
	pgeventrepo "github.com/gatherhall/events-api/internal/adapters/postgres/eventrepo"
	"github.com/gatherhall/events-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/gatherhall/events-api/internal/adapters/postgres/userrepo"
	eventrepoport "github.com/gatherhall/events-api/internal/ports/out/eventrepo"
	reservationrepoport "github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
	userrepoport "github.com/gatherhall/events-api/internal/ports/out/userrepo"
)

func TestContract_PostgresReservationRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunReservationRepo(
		t,
		func(t *testing.T) (reservationrepoport.Repository, contracttest.CleanupFunc) {
			t.Helper()
			return NewRepo(pool), nil
		},
		func(t *testing.T) (eventrepoport.Repository, contracttest.CleanupFunc) {
			t.Helper()
			return pgeventrepo.NewRepo(pool), nil
		},
		func(t *testing.T) (userrepoport.Repository, contracttest.CleanupFunc) {
			t.Helper()
			return pguserrepo.NewRepo(pool), nil
		},
	)
}

func TestPostgresReservationRepo_MalformedEventID(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	// An ID that cannot be a stored key maps to ErrNotFound, like Get,
	// rather than reporting silent success.
	if _, err := repo.CountAccepted(ctx, "not-a-uuid"); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("CountAccepted: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteByEvent(ctx, "not-a-uuid"); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("DeleteByEvent: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, "not-a-uuid", "also-not-a-uuid"); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
}
