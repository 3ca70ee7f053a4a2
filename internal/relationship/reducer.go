// Package relationship models the viewer-relative facts about another user
// and the reducer that moves them between follow and block states.
package relationship

import "github.com/feedsync/feedsync/internal/action"

// Relationship is the set of viewer-relative booleans for one user.
// NotificationsEnabled only holds while IsFollowedByViewer does.
type Relationship struct {
	IsFollowedByViewer   bool `json:"isFollowedByViewer"`
	IsFollowingViewer    bool `json:"isFollowingViewer"`
	IsBlockedByViewer    bool `json:"isBlockedByViewer"`
	HasBlockedViewer     bool `json:"hasBlockedViewer"`
	NotificationsEnabled bool `json:"notificationsEnabled"`
}

// Stats are the aggregate counts shown on a user card.
type Stats struct {
	FollowersCount int `json:"followersCount"`
	FollowingCount int `json:"followingCount"`
	PostsCount     int `json:"postsCount"`
}

// UserState is everything a rendered user instance knows about one user.
type UserState struct {
	Username     action.Username `json:"username"`
	Relationship Relationship    `json:"relationship"`
	Stats        Stats           `json:"stats"`
}

// Action is a reducer transition.
type Action int

const (
	// ActionNone is ignored by the reducer.
	ActionNone Action = iota
	// ActionFollow makes the viewer follow the user.
	ActionFollow
	// ActionUnfollow removes the follow edge and the notification subscription with it.
	ActionUnfollow
	// ActionBlock blocks the user and severs follow edges in both directions.
	ActionBlock
	// ActionUnblock lifts a block without restoring any follow edge.
	ActionUnblock
	// ActionEnableNotifications subscribes to the user's posts when followed.
	ActionEnableNotifications
	// ActionDisableNotifications drops the post subscription.
	ActionDisableNotifications
)

var actionNames = map[Action]string{
	ActionNone:                 "NONE",
	ActionFollow:               "FOLLOW",
	ActionUnfollow:             "UNFOLLOW",
	ActionBlock:                "BLOCK",
	ActionUnblock:              "UNBLOCK",
	ActionEnableNotifications:  "ENABLE_NOTIFICATIONS",
	ActionDisableNotifications: "DISABLE_NOTIFICATIONS",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

// Reduce returns the state after applying a to s. It never mutates s and
// returns s unchanged for unrecognized actions.
//
// Counters only move when the flag they mirror actually flips.
func Reduce(s UserState, a Action) UserState {
	next := s

	switch a {
	case ActionFollow:
		if !next.Relationship.IsFollowedByViewer {
			next.Relationship.IsFollowedByViewer = true
			next.Stats.FollowersCount++
		}

	case ActionUnfollow:
		if next.Relationship.IsFollowedByViewer {
			next.Relationship.IsFollowedByViewer = false
			next.Stats.FollowersCount--
		}
		next.Relationship.NotificationsEnabled = false

	case ActionBlock:
		next.Relationship.IsBlockedByViewer = true
		if next.Relationship.IsFollowedByViewer {
			next.Relationship.IsFollowedByViewer = false
			next.Stats.FollowersCount--
		}
		if next.Relationship.IsFollowingViewer {
			next.Relationship.IsFollowingViewer = false
			next.Stats.FollowingCount--
		}
		next.Relationship.NotificationsEnabled = false

	case ActionUnblock:
		next.Relationship.IsBlockedByViewer = false

	case ActionEnableNotifications:
		if next.Relationship.IsFollowedByViewer {
			next.Relationship.NotificationsEnabled = true
		}

	case ActionDisableNotifications:
		next.Relationship.NotificationsEnabled = false

	case ActionNone:
	}

	return next
}
