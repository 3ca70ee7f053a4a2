package action

import "fmt"

// Kind identifies one independently paginated stream.
type Kind int

const (
	// KindGlobal is the public timeline of every user.
	KindGlobal Kind = iota
	// KindFollowing is the timeline of accounts the viewer follows.
	KindFollowing
	// KindNotifications is the viewer's notification list.
	KindNotifications
	// KindBookmarks is the viewer's saved posts.
	KindBookmarks
	// KindProfilePosts is a profile's posts and reposts tab.
	KindProfilePosts
	// KindProfileReplies is a profile's replies tab.
	KindProfileReplies
	// KindProfileMedia is a profile's media tab.
	KindProfileMedia
	// KindProfileLikes is a profile's likes tab.
	KindProfileLikes
	// KindPostReplies is the reply thread below a single post.
	KindPostReplies
)

var kindNames = map[Kind]string{
	KindGlobal:         "global",
	KindFollowing:      "following",
	KindNotifications:  "notifications",
	KindBookmarks:      "bookmarks",
	KindProfilePosts:   "profile-posts",
	KindProfileReplies: "profile-replies",
	KindProfileMedia:   "profile-media",
	KindProfileLikes:   "profile-likes",
	KindPostReplies:    "post-replies",
}

// String returns the stream name used in logs and config.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds returns every known stream kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindGlobal, KindFollowing, KindNotifications, KindBookmarks,
		KindProfilePosts, KindProfileReplies, KindProfileMedia, KindProfileLikes,
		KindPostReplies,
	}
}

// ParseKind maps a stream name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
