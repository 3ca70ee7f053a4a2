package view

import (
	"context"
	"sync"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/mutation"
	"github.com/feedsync/feedsync/internal/relationship"
)

// User is one rendered instance of a user. Each instance owns its store;
// the shared suggestion list is how instances learn of each other's changes.
type User struct {
	exec        *mutation.Executor
	store       *relationship.Store
	suggestions *relationship.Suggestions
	actions     action.UserActions
	follow      *mutation.Guard
	block       *mutation.Guard
	onChange    func(relationship.UserState)
	unsubscribe []func()
	mu          sync.Mutex
}

// NewUser creates an instance from its server snapshot. suggestions may be nil.
func NewUser(exec *mutation.Executor, initial relationship.UserState, suggestions *relationship.Suggestions, actions action.UserActions) *User {
	u := &User{
		exec:        exec,
		store:       relationship.NewStore(initial),
		suggestions: suggestions,
		actions:     actions,
		follow:      mutation.NewGuard(initial.Relationship.IsFollowedByViewer),
		block:       mutation.NewGuard(initial.Relationship.IsBlockedByViewer),
	}

	u.unsubscribe = append(u.unsubscribe, u.store.Subscribe(func(state relationship.UserState) {
		u.sync(state)

		u.mu.Lock()
		hook := u.onChange
		u.mu.Unlock()

		if hook != nil {
			hook(state)
		}
	}))

	if suggestions != nil {
		u.unsubscribe = append(u.unsubscribe, suggestions.Subscribe(func([]relationship.UserState) {
			relationship.Reconcile(u.store, u.suggestions)
		}))
	}

	return u
}

// OnChange sets the re-render hook.
func (u *User) OnChange(fn func(relationship.UserState)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onChange = fn
}

// Render reconciles with the suggestion list and returns the state to show.
func (u *User) Render() relationship.UserState {
	relationship.Reconcile(u.store, u.suggestions)

	state := u.store.State()
	u.sync(state)
	return state
}

// Store returns the instance's relationship store.
func (u *User) Store() *relationship.Store {
	return u.store
}

// FollowGuard returns the follow control state.
func (u *User) FollowGuard() *mutation.Guard {
	return u.follow
}

// BlockGuard returns the block control state.
func (u *User) BlockGuard() *mutation.Guard {
	return u.block
}

// ToggleFollow follows or unfollows the user.
func (u *User) ToggleFollow(ctx context.Context) error {
	return u.toggle(ctx, mutation.UserFollow, u.follow)
}

// ToggleBlock blocks or unblocks the user.
func (u *User) ToggleBlock(ctx context.Context) error {
	return u.toggle(ctx, mutation.UserBlock, u.block)
}

// Close detaches the instance from its store and the suggestion list.
func (u *User) Close() {
	for _, off := range u.unsubscribe {
		off()
	}
}

func (u *User) toggle(ctx context.Context, kind mutation.UserKind, g *mutation.Guard) error {
	tx := u.exec.RelationshipTransaction(kind, g.Status(), mutation.UserTarget{
		Store:       u.store,
		Suggestions: u.suggestions,
		Actions:     u.actions,
	})
	return u.exec.Run(ctx, g, tx)
}

// sync keeps the controls in line with state, which changes under them
// when blocking clears a follow or a sibling instance acts.
func (u *User) sync(state relationship.UserState) {
	u.follow.SetStatus(state.Relationship.IsFollowedByViewer)
	u.block.SetStatus(state.Relationship.IsBlockedByViewer)
}
