package interaction

import "github.com/feedsync/feedsync/internal/action"

// PostStats holds the counters a server-rendered post carries.
// Counters only move by signed deltas except on a full refetch.
type PostStats struct {
	RepliesCount int `json:"repliesCount"`
	RepostsCount int `json:"repostsCount"`
	LikesCount   int `json:"likesCount"`
}

// PostRelationship holds the viewer-relative flags of a post.
type PostRelationship struct {
	ViewerHasLiked      bool `json:"viewerHasLiked"`
	ViewerHasReposted   bool `json:"viewerHasReposted"`
	ViewerHasBookmarked bool `json:"viewerHasBookmarked"`
}

// Snapshot is the initial state a view received from the server.
type Snapshot struct {
	PostID       action.PostID    `json:"postId"`
	Author       action.Username  `json:"author"`
	Stats        PostStats        `json:"stats"`
	Relationship PostRelationship `json:"relationship"`
}

// EntityID returns the post id, so snapshots can be paged directly.
func (s Snapshot) EntityID() action.PostID {
	return s.PostID
}

// Entry is the cached override for one post. The flags toggle in lock-step
// with the counter of the same action.
type Entry struct {
	LikesCount   int  `json:"likesCount"`
	RepostsCount int  `json:"repostsCount"`
	Liked        bool `json:"liked"`
	Reposted     bool `json:"reposted"`
	Bookmarked   bool `json:"bookmarked"`
}

// EntryFromSnapshot derives the cacheable part of a server snapshot.
func EntryFromSnapshot(s Snapshot) Entry {
	return Entry{
		LikesCount:   s.Stats.LikesCount,
		RepostsCount: s.Stats.RepostsCount,
		Liked:        s.Relationship.ViewerHasLiked,
		Reposted:     s.Relationship.ViewerHasReposted,
		Bookmarked:   s.Relationship.ViewerHasBookmarked,
	}
}

// Resolve returns the value a view must render: the cached entry when one
// exists, otherwise the view's own snapshot.
func Resolve(c *Cache, s Snapshot) (Entry, bool) {
	if entry, ok := c.Get(s.PostID); ok {
		return entry, true
	}
	return EntryFromSnapshot(s), false
}

// Direction is the visual offset of a count transition.
type Direction int

const (
	// DirectionNone means the count did not change.
	DirectionNone Direction = 0
	// DirectionUp means the count grew.
	DirectionUp Direction = 1
	// DirectionDown means the count shrank.
	DirectionDown Direction = -1
)

// DirectionOf derives the transition direction from the sign of the change.
func DirectionOf(prev, next int) Direction {
	switch {
	case next > prev:
		return DirectionUp
	case next < prev:
		return DirectionDown
	default:
		return DirectionNone
	}
}

// Transition describes how the counters moved between two renders.
type Transition struct {
	Likes   Direction
	Reposts Direction
}

// Diff compares the last rendered entry with the next one.
func Diff(prev, next Entry) Transition {
	return Transition{
		Likes:   DirectionOf(prev.LikesCount, next.LikesCount),
		Reposts: DirectionOf(prev.RepostsCount, next.RepostsCount),
	}
}

// Changed reports whether any counter moved.
func (t Transition) Changed() bool {
	return t.Likes != DirectionNone || t.Reposts != DirectionNone
}
