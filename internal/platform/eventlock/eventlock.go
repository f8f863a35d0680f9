// Package eventlock provides a mutex keyed by event ID.
//
// Admission decisions for one event must be observed as a single indivisible
// step relative to other admission attempts on the same event, while requests
// for different events proceed in parallel. A keyed mutex gives exactly that
// scope without a process-wide lock.
package eventlock

import (
	"sync"

	"github.com/gatherhall/events-api/internal/domain"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map hands out per-event mutual exclusion. The zero value is not usable;
// construct with New.
type Map struct {
	mu      sync.Mutex
	entries map[domain.EventID]*entry
}

func New() *Map {
	return &Map{entries: make(map[domain.EventID]*entry)}
}

// Lock acquires the mutex for the given event and returns the corresponding
// unlock func. Entries are refcounted and removed once the last holder
// releases, so the map does not accumulate an entry per event ever seen.
func (m *Map) Lock(id domain.EventID) func() {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.entries, id)
			}
			m.mu.Unlock()
		})
	}
}
