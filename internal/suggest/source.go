// Package suggest stores the who-to-follow list in Redis so every client
// of a viewer refreshes its suggestion list from the same snapshot.
package suggest

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/relationship"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// SnapshotTTL defines how long a published list stays available.
	SnapshotTTL = 24 * time.Hour

	// KeyPrefix identifies suggestion snapshots in Redis.
	KeyPrefix = "suggestions:"
)

// Source reads and writes suggestion snapshots.
type Source struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewSource creates a source on client.
func NewSource(client rueidis.Client, logger *zap.Logger) *Source {
	return &Source{
		client: client,
		logger: logger.Named("suggestions"),
	}
}

// Publish stores users as the suggestion list of viewer.
func (s *Source) Publish(ctx context.Context, viewer action.Username, users []relationship.UserState) error {
	data, err := sonic.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to encode suggestions: %w", err)
	}

	err = s.client.Do(ctx, s.client.B().Set().Key(KeyPrefix+viewer).Value(rueidis.BinaryString(data)).Ex(SnapshotTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to store suggestions for %s: %w", viewer, err)
	}

	s.logger.Debug("Published suggestions",
		zap.String("viewer", viewer),
		zap.Int("count", len(users)))

	return nil
}

// Fetch returns the suggestion list of viewer. A missing snapshot is an
// empty list.
func (s *Source) Fetch(ctx context.Context, viewer action.Username) ([]relationship.UserState, error) {
	users, _, err := s.load(ctx, viewer)
	return users, err
}

// Refresh replaces the contents of list with the stored snapshot. Every
// user view bound to list reconciles against the new entries. Without a
// stored snapshot list keeps what it has.
func (s *Source) Refresh(ctx context.Context, viewer action.Username, list *relationship.Suggestions) error {
	users, found, err := s.load(ctx, viewer)
	if err != nil {
		return err
	}

	if !found {
		s.logger.Debug("No stored suggestions, keeping current list", zap.String("viewer", viewer))
		return nil
	}

	list.Set(users)
	s.logger.Debug("Refreshed suggestions",
		zap.String("viewer", viewer),
		zap.Int("count", len(users)))

	return nil
}

// load reads the snapshot of viewer and reports whether one was stored.
func (s *Source) load(ctx context.Context, viewer action.Username) ([]relationship.UserState, bool, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(KeyPrefix+viewer).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load suggestions for %s: %w", viewer, err)
	}

	var users []relationship.UserState
	if err := sonic.Unmarshal(data, &users); err != nil {
		return nil, false, fmt.Errorf("invalid suggestions for %s: %w", viewer, err)
	}

	return users, true, nil
}
