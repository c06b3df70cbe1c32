package stage

import (
	"sync"

	"github.com/pagetailor/pagetailor/internal/model"
)

// Store maps pages to one stage's settings.
//
// Writes happen in two well-separated phases: the override engine fills
// stores in bulk before any task runs, and during processing a stage's own
// task may write back a detected value for its own page. The same PageID is
// never written concurrently, but page-level parallelism means different
// pages touch the store at once, so access is guarded.
type Store[T any] struct {
	mu sync.RWMutex
	m  map[model.PageID]T
}

// NewStore creates an empty settings store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{m: make(map[model.PageID]T)}
}

// Get returns the settings for the page and whether an entry exists.
func (s *Store[T]) Get(page model.PageID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[page]
	return v, ok
}

// Set stores the settings for the page, replacing any existing entry.
func (s *Store[T]) Set(page model.PageID, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[page] = v
}

// Delete removes the page's entry, if any.
func (s *Store[T]) Delete(page model.PageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, page)
}

// Len returns the number of pages with an entry.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Snapshot returns a copy of the full mapping, used by project persistence.
func (s *Store[T]) Snapshot() map[model.PageID]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[model.PageID]T, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// Restore replaces the full mapping, used when loading a project.
func (s *Store[T]) Restore(m map[model.PageID]T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[model.PageID]T, len(m))
	for k, v := range m {
		s.m[k] = v
	}
}
