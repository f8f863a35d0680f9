package eventrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/gatherhall/events-api/internal/domain"
	"github.com/gatherhall/events-api/internal/ports/out/eventrepo"
)

// Repo is an in-memory implementation of eventrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.EventID]eventrepo.Event
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.EventID]eventrepo.Event)}
}

func (r *Repo) Create(ctx context.Context, e eventrepo.Event) error {
	_ = ctx
	if e.ID == "" {
		return errors.New("empty event id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return eventrepo.ErrAlreadyExists
	}
	r.byID[e.ID] = cloneEvent(e)
	return nil
}

func (r *Repo) Save(ctx context.Context, e eventrepo.Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; !ok {
		return eventrepo.ErrNotFound
	}
	r.byID[e.ID] = cloneEvent(e)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EventID) (eventrepo.Event, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return eventrepo.Event{}, eventrepo.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (r *Repo) List(ctx context.Context) ([]eventrepo.Event, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]eventrepo.Event, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return string(out[i].ID) < string(out[j].ID)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) SetAttendeeCount(ctx context.Context, id domain.EventID, n int) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return eventrepo.ErrNotFound
	}
	e.AttendeeCount = n
	r.byID[id] = e
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.EventID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return eventrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func cloneEvent(e eventrepo.Event) eventrepo.Event {
	cp := e
	if e.Description != nil {
		v := *e.Description
		cp.Description = &v
	}
	if e.MaxAttendees != nil {
		v := *e.MaxAttendees
		cp.MaxAttendees = &v
	}
	return cp
}
