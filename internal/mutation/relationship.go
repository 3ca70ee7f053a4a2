package mutation

import (
	"context"
	"fmt"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/push"
	"github.com/feedsync/feedsync/internal/relationship"
)

// UserKind is the action a user control performs.
type UserKind int

const (
	// UserFollow toggles following the user.
	UserFollow UserKind = iota
	// UserBlock toggles blocking the user.
	UserBlock
)

func (k UserKind) String() string {
	if k == UserBlock {
		return "block"
	}
	return "follow"
}

// UserTarget is the user instance a control is bound to. Suggestions may
// be nil; when set, the change is mirrored there so sibling views converge.
type UserTarget struct {
	Store       *relationship.Store
	Suggestions *relationship.Suggestions
	Actions     action.UserActions
}

// RelationshipTransaction builds the transaction for toggling kind on
// target. Rollback restores the captured state rather than replaying an
// inverse, since unblocking does not undo what blocking cleared.
func (e *Executor) RelationshipTransaction(kind UserKind, status bool, target UserTarget) Transaction {
	remove := status
	act := userAction(kind, remove)
	username := target.Store.Username()

	var (
		previous     relationship.UserState
		suggested    relationship.UserState
		wasSuggested bool
	)

	name := kind.String()
	if remove {
		name = "un" + name
	}

	return Transaction{
		Name: name,
		Apply: func() error {
			current := target.Store.State()

			if err := checkCounters(current, act); err != nil {
				return err
			}

			previous = current
			if target.Suggestions != nil {
				suggested, wasSuggested = target.Suggestions.Lookup(username)
			}

			target.Store.Dispatch(act)
			if wasSuggested {
				target.Suggestions.Update(username, func(s relationship.UserState) relationship.UserState {
					return relationship.Reduce(s, act)
				})
			}
			return nil
		},
		Commit: func(ctx context.Context) (bool, error) {
			return userCall(target.Actions, act)(ctx, username)
		},
		Rollback: func() {
			target.Store.Replace(previous)
			if wasSuggested {
				target.Suggestions.Update(username, func(relationship.UserState) relationship.UserState {
					return suggested
				})
			}
		},
		OnSuccess: func(ctx context.Context) {
			if remove {
				return
			}
			e.notify(ctx, push.NotifyPayload{Recipient: username, Reason: name})
		},
	}
}

// checkCounters rejects act when it would take a counter below zero.
func checkCounters(s relationship.UserState, act relationship.Action) error {
	dropsFollower := act == relationship.ActionUnfollow ||
		(act == relationship.ActionBlock && s.Relationship.IsFollowedByViewer)
	if dropsFollower && s.Stats.FollowersCount <= 0 {
		return fmt.Errorf("%w: %s with %d followers", ErrAlreadyInDesiredState, act, s.Stats.FollowersCount)
	}

	if act == relationship.ActionBlock && s.Relationship.IsFollowingViewer && s.Stats.FollowingCount <= 0 {
		return fmt.Errorf("%w: %s with %d following", ErrAlreadyInDesiredState, act, s.Stats.FollowingCount)
	}

	return nil
}

func userAction(kind UserKind, remove bool) relationship.Action {
	switch {
	case kind == UserFollow && !remove:
		return relationship.ActionFollow
	case kind == UserFollow:
		return relationship.ActionUnfollow
	case !remove:
		return relationship.ActionBlock
	default:
		return relationship.ActionUnblock
	}
}

func userCall(actions action.UserActions, act relationship.Action) action.UserCall {
	switch act {
	case relationship.ActionFollow:
		return actions.Follow
	case relationship.ActionUnfollow:
		return actions.Unfollow
	case relationship.ActionBlock:
		return actions.Block
	default:
		return actions.Unblock
	}
}
