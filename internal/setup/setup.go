package setup

import (
	"context"
	"log"
	"time"

	"github.com/feedsync/feedsync/internal/feed"
	"github.com/feedsync/feedsync/internal/interaction"
	"github.com/feedsync/feedsync/internal/live"
	"github.com/feedsync/feedsync/internal/mutation"
	"github.com/feedsync/feedsync/internal/push"
	"github.com/feedsync/feedsync/internal/redis"
	"github.com/feedsync/feedsync/internal/relationship"
	"github.com/feedsync/feedsync/internal/setup/config"
	"github.com/feedsync/feedsync/internal/setup/telemetry"
	"github.com/feedsync/feedsync/internal/suggest"
	"github.com/feedsync/feedsync/pkg/utils"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config            // Application configuration
	Logger       *zap.Logger               // Main application logger
	LogManager   *telemetry.Manager        // Log management system
	RedisManager *redis.Manager            // Redis connection manager
	Push         *push.Redis               // Push channel over Redis pub/sub
	Cache        *interaction.Cache        // Shared post interaction cache
	Suggestions  *relationship.Suggestions // Shared who-to-follow list
	Source       *suggest.Source           // Redis snapshot of the suggestion list
	Executor     *mutation.Executor        // Optimistic mutation runner
	Bridge       *live.Bridge              // Push events to badge counters
	FeedOptions  feed.Options              // Paginator failure policy
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, component, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(component, logDir, &cfg.Common.Debug)

	logger, err := logManager.GetLogger()
	if err != nil {
		return nil, err
	}

	feedOptions, err := FeedOptions(cfg)
	if err != nil {
		return nil, err
	}

	// Redis manager provides connection pools for the push channel and suggestions
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	pushClient, err := redisManager.GetClient(redis.PushDBIndex)
	if err != nil {
		return nil, err
	}

	suggestClient, err := redisManager.GetClient(redis.SuggestionsDBIndex)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	channel := push.NewRedis(pushClient, cfg.Client.Live.ChannelPrefix, logManager.GetComponentLogger("push"))
	bannerDuration := time.Duration(cfg.Client.Mutation.ErrorBannerMS) * time.Millisecond

	logger.Info("Initialized application",
		zap.String("component", component),
		zap.String("session", logManager.GetCurrentSessionDir()),
		zap.String("retryPolicy", string(feedOptions.Policy)))

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		Logger:       logger,
		LogManager:   logManager,
		RedisManager: redisManager,
		Push:         channel,
		Cache:        interaction.NewCache(cfg.Client.Cache.Ceiling, logger),
		Suggestions:  relationship.NewSuggestions(),
		Source:       suggest.NewSource(suggestClient, logger),
		Executor:     mutation.NewExecutor(channel, bannerDuration, logger),
		Bridge:       live.NewBridge(channel, cfg.Client.Live.BadgeCap, logger),
		FeedOptions:  feedOptions,
	}, nil
}

// FeedOptions derives paginator options from the configuration.
func FeedOptions(cfg *config.Config) (feed.Options, error) {
	policy, err := feed.ParseRetryPolicy(cfg.Client.Feed.RetryPolicy)
	if err != nil {
		return feed.Options{}, err
	}

	retry := utils.GetFeedRetryOptions()
	if cfg.Common.Retry.MaxRetries > 0 {
		retry.MaxRetries = cfg.Common.Retry.MaxRetries
	}
	if cfg.Common.Retry.Delay > 0 {
		retry.InitialInterval = time.Duration(cfg.Common.Retry.Delay) * time.Millisecond
	}
	if cfg.Common.Retry.MaxDelay > 0 {
		retry.MaxInterval = time.Duration(cfg.Common.Retry.MaxDelay) * time.Millisecond
	}

	return feed.Options{Policy: policy, Retry: retry}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(_ context.Context) {
	// Stop live updates, which also disconnects the push channel
	if err := s.Bridge.Stop(); err != nil {
		s.Logger.Error("Failed to stop live updates", zap.Error(err))
	}
	if err := s.Push.Disconnect(); err != nil {
		s.Logger.Error("Failed to disconnect push channel", zap.Error(err))
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.LogManager.Stop(); err != nil {
		log.Printf("Failed to close log files: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}
