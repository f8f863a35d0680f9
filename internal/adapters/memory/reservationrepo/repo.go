package reservationrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/ports/out/reservationrepo"
)

type key struct {
	eventID domain.EventID
	userID  domain.UserID
}

// Repo is an in-memory implementation of reservationrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[key]reservationrepo.Reservation
}

func NewRepo() *Repo {
	return &Repo{m: make(map[key]reservationrepo.Reservation)}
}

func (r *Repo) Get(ctx context.Context, eventID domain.EventID, userID domain.UserID) (reservationrepo.Reservation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[key{eventID: eventID, userID: userID}]
	if !ok {
		return reservationrepo.Reservation{}, reservationrepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) Upsert(ctx context.Context, rec reservationrepo.Reservation) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key{eventID: rec.EventID, userID: rec.UserID}] = rec
	return nil
}

func (r *Repo) ListByEvent(ctx context.Context, eventID domain.EventID) ([]reservationrepo.Reservation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]reservationrepo.Reservation, 0)
	for k, v := range r.m {
		if k.eventID == eventID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID == out[j].UserID {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return string(out[i].UserID) < string(out[j].UserID)
	})
	return out, nil
}

func (r *Repo) CountAccepted(ctx context.Context, eventID domain.EventID) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for k, v := range r.m {
		if k.eventID != eventID {
			continue
		}
		if v.Status == domain.RSVPStatusAccepted {
			n++
		}
	}
	return n, nil
}

func (r *Repo) DeleteByEvent(ctx context.Context, eventID domain.EventID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.m {
		if k.eventID == eventID {
			delete(r.m, k)
		}
	}
	return nil
}
