package data

import (
	"sync"
	"time"

	"github.com/savid/epg-guide/pkg/epg"
)

// Store holds the currently published schedule index and the refresh status.
// The index itself is immutable; a refresh swaps in a new one.
type Store struct {
	mu       sync.RWMutex
	index    *epg.Index
	status   Status
	lastSync time.Time
}

// Status describes the outcome of the latest refresh step.
type Status struct {
	State     State
	Reason    string
	Source    Source
	Stats     epg.Stats
	UpdatedAt time.Time
}

// NewStore creates a new empty data store.
func NewStore() *Store {
	return &Store{
		status: Status{State: StateIdle},
	}
}

// SetIndex publishes a freshly built index and marks the store ready.
func (s *Store) SetIndex(index *epg.Index, source Source, stats epg.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.index = index
	s.lastSync = now
	s.status = Status{
		State:     StateReady,
		Source:    source,
		Stats:     stats,
		UpdatedAt: now,
	}
}

// SetState records an intermediate refresh step.
func (s *Store) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = state
	s.status.Reason = ""
	s.status.UpdatedAt = time.Now()
}

// Fail records a failed refresh. The published index is left untouched.
func (s *Store) Fail(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = StateFailed
	s.status.Reason = reason
	s.status.UpdatedAt = time.Now()
}

// Index retrieves the published index. Returns false if no data is available.
func (s *Store) Index() (*epg.Index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil {
		return nil, false
	}
	return s.index, true
}

// Status returns the latest refresh status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// HasData returns true if an index has been published.
func (s *Store) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index != nil
}

// LastSync returns the time the current index was published.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSync
}
