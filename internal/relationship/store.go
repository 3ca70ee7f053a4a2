package relationship

import (
	"sync"

	"github.com/feedsync/feedsync/internal/action"
)

// Store owns the reducer state of one rendered user instance. Instances of
// the same username do not share a Store; they converge through Suggestions.
type Store struct {
	state       UserState
	subscribers map[uint64]func(UserState)
	nextID      uint64
	mu          sync.RWMutex
}

// NewStore creates a store seeded with the server-rendered state.
func NewStore(initial UserState) *Store {
	return &Store{
		state:       initial,
		subscribers: make(map[uint64]func(UserState)),
	}
}

// Username returns the user this store describes.
func (s *Store) Username() action.Username {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Username
}

// State returns the current state.
func (s *Store) State() UserState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a to the state and returns the result.
func (s *Store) Dispatch(a Action) UserState {
	s.mu.Lock()
	prev := s.state
	s.state = Reduce(s.state, a)
	next := s.state
	listeners := s.listeners()
	s.mu.Unlock()

	if next != prev {
		notify(listeners, next)
	}

	return next
}

// Replace swaps in a whole state. Used to restore a captured state on
// rollback, since some transitions (block) have no inverse action.
func (s *Store) Replace(state UserState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	listeners := s.listeners()
	s.mu.Unlock()

	if changed {
		notify(listeners, state)
	}
}

// Subscribe registers fn to run after every state change.
func (s *Store) Subscribe(fn func(UserState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// listeners must be called with the lock held.
func (s *Store) listeners() []func(UserState) {
	out := make([]func(UserState), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(UserState), state UserState) {
	for _, fn := range listeners {
		fn(state)
	}
}
