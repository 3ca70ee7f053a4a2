package config

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/feedsync/feedsync/internal/interaction"
	"github.com/feedsync/feedsync/internal/relationship"
)

// Seed is a server-rendered first page: the posts a timeline starts with
// and the who-to-follow list shown beside it.
type Seed struct {
	Viewer      string                   `json:"viewer"`
	Posts       []interaction.Snapshot   `json:"posts"`
	Suggestions []relationship.UserState `json:"suggestions"`
	EndReached  bool                     `json:"endReached"`
}

// LoadSeed loads a seed from a JSON file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := sonic.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return &seed, nil
}

// Cursor returns the id of the last seeded post, or zero when there is none.
func (s *Seed) Cursor() int64 {
	if len(s.Posts) == 0 {
		return 0
	}
	return s.Posts[len(s.Posts)-1].PostID
}
