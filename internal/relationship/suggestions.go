package relationship

import (
	"slices"
	"sync"

	"github.com/feedsync/feedsync/internal/action"
)

// Suggestions is the shared who-to-follow list. It is small, refreshed from
// outside, and the only channel through which relationship changes reach
// other rendered instances of the same user.
type Suggestions struct {
	users       []UserState
	subscribers map[uint64]func([]UserState)
	nextID      uint64
	mu          sync.RWMutex
}

// NewSuggestions creates an empty suggestion list.
func NewSuggestions() *Suggestions {
	return &Suggestions{
		subscribers: make(map[uint64]func([]UserState)),
	}
}

// Set replaces the whole list with a freshly fetched one.
func (s *Suggestions) Set(users []UserState) {
	s.mu.Lock()
	s.users = slices.Clone(users)
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// List returns a copy of the current list.
func (s *Suggestions) List() []UserState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users)
}

// Lookup returns the entry for username, if the list carries one.
func (s *Suggestions) Lookup(username action.Username) (UserState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return user, true
		}
	}
	return UserState{}, false
}

// Update rewrites the entry for username through fn. It reports false and
// leaves the list untouched when the user is not suggested.
func (s *Suggestions) Update(username action.Username, fn func(UserState) UserState) bool {
	s.mu.Lock()

	idx := slices.IndexFunc(s.users, func(u UserState) bool { return u.Username == username })
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	s.users[idx] = fn(s.users[idx])
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}

	return true
}

// Subscribe registers fn to run after every change of the list.
func (s *Suggestions) Subscribe(fn func([]UserState)) func() {
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

func (s *Suggestions) snapshotLocked() ([]UserState, []func([]UserState)) {
	listeners := make([]func([]UserState), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	return slices.Clone(s.users), listeners
}

// Reconcile replays onto store whatever actions bring it in line with the
// suggestion entry of the same username. Users missing from the list are
// left alone and may drift until remounted or refetched.
func Reconcile(store *Store, suggestions *Suggestions) []Action {
	if suggestions == nil {
		return nil
	}

	remote, ok := suggestions.Lookup(store.Username())
	if !ok {
		return nil
	}

	local := store.State()
	var replayed []Action

	// Block first, since it also clears follow edges
	if remote.Relationship.IsBlockedByViewer != local.Relationship.IsBlockedByViewer {
		if remote.Relationship.IsBlockedByViewer {
			replayed = append(replayed, ActionBlock)
		} else {
			replayed = append(replayed, ActionUnblock)
		}
		local = Reduce(local, replayed[len(replayed)-1])
	}

	if remote.Relationship.IsFollowedByViewer != local.Relationship.IsFollowedByViewer {
		if remote.Relationship.IsFollowedByViewer {
			replayed = append(replayed, ActionFollow)
		} else {
			replayed = append(replayed, ActionUnfollow)
		}
	}

	for _, a := range replayed {
		store.Dispatch(a)
	}

	return replayed
}
