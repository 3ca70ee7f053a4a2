package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedsync/feedsync/internal/action"
	"github.com/feedsync/feedsync/internal/feed"
	"github.com/feedsync/feedsync/internal/interaction"
	"github.com/feedsync/feedsync/internal/live"
	"github.com/feedsync/feedsync/internal/push"
	"github.com/feedsync/feedsync/internal/setup"
	"github.com/feedsync/feedsync/internal/setup/config"
	"github.com/feedsync/feedsync/internal/view"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// LogDir specifies where log files are stored.
	LogDir = "logs/feedsync_logs"

	// ListenCommand observes live updates.
	ListenCommand = "listen"
	// EmitCommand publishes a push event.
	EmitCommand = "emit"
	// SuggestCommand publishes a suggestion list.
	SuggestCommand = "suggest"
)

var (
	ErrMissingEvent  = errors.New("event name is required")
	ErrMissingViewer = errors.New("viewer is required")
	ErrMissingSeed   = errors.New("seed file is required")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "feedsync",
		Usage: "Observe and drive feed live updates",
		Commands: []*cli.Command{
			{
				Name:  ListenCommand,
				Usage: "Subscribe to push events and report pending badge counts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "viewer", Usage: "Only count notifications for this user"},
					&cli.StringFlag{Name: "seed", Usage: "JSON file with the first page and suggestions"},
					&cli.IntFlag{Name: "interval", Value: 5, Usage: "Seconds between badge reports"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runListen(ctx, c.String("viewer"), c.String("seed"), time.Duration(c.Int("interval"))*time.Second)
				},
			},
			{
				Name:      EmitCommand,
				Usage:     "Publish a push event",
				ArgsUsage: "<event>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "post-id", Usage: "Post the event refers to"},
					&cli.StringFlag{Name: "author", Usage: "Author of the new post"},
					&cli.StringFlag{Name: "recipient", Usage: "User to notify"},
					&cli.StringFlag{Name: "reason", Value: "mention", Usage: "Why the user is notified"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					event := c.Args().First()
					if event == "" {
						return ErrMissingEvent
					}
					return runEmit(ctx, event, eventPayload(event, c))
				},
			},
			{
				Name:  SuggestCommand,
				Usage: "Publish the suggestion list of a seed file for a viewer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "viewer", Usage: "User the suggestions are for"},
					&cli.StringFlag{Name: "seed", Usage: "JSON file with the suggestions"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runSuggest(ctx, c.String("viewer"), c.String("seed"))
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, os.Args)
}

// eventPayload builds the payload matching the event name.
func eventPayload(event string, c *cli.Command) any {
	switch event {
	case push.EventNewUserNotification, push.EventNotifyUser:
		return push.NotifyPayload{
			Recipient: c.String("recipient"),
			Reason:    c.String("reason"),
			PostID:    c.Int("post-id"),
		}
	default:
		return push.NewPostPayload{
			PostID: c.Int("post-id"),
			Author: c.String("author"),
		}
	}
}

// runListen wires a seeded timeline to the live bridge and reports badge
// counts until interrupted.
func runListen(ctx context.Context, viewer, seedPath string, interval time.Duration) error {
	app, err := setup.InitializeApp(ctx, ListenCommand, LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	seed := &config.Seed{Viewer: viewer}
	if seedPath != "" {
		if seed, err = config.LoadSeed(seedPath); err != nil {
			return err
		}
		if viewer != "" {
			seed.Viewer = viewer
		}
	}

	// Nothing serves pages to this command, so streams only hold the seed
	// and whatever the cache ceiling refetch returns
	fetcher := action.FetcherFuncs[interaction.Snapshot]{}
	global := feed.New[interaction.Snapshot](action.KindGlobal, fetcher, app.FeedOptions, app.Logger)
	global.Seed(seed.Posts, seed.Cursor(), seed.EndReached)

	group := feed.NewGroup(app.Logger)
	group.Add(global)

	timeline := view.NewTimeline(ctx, app.Cache, group, app.Logger)
	defer timeline.Close()

	following := live.NewBadge()
	bell := live.NewBadge()

	app.Bridge.SetViewer(seed.Viewer)
	app.Bridge.Attach(push.EventNewGlobalPost, global)
	app.Bridge.Attach(push.EventNewFollowingPost, following)
	app.Bridge.Attach(push.EventNewUserNotification, bell)

	// A stored snapshot replaces the seed's list; without one the seed stays
	app.Suggestions.Set(seed.Suggestions)
	if seed.Viewer != "" {
		if err := app.Source.Refresh(ctx, seed.Viewer, app.Suggestions); err != nil {
			app.Logger.Warn("Failed to refresh suggestions", zap.Error(err))
		}
	}

	app.Push.On(push.EventNotifyUser, func(evt push.Event) {
		var payload push.NotifyPayload
		if err := evt.Decode(&payload); err != nil {
			app.Logger.Warn("Malformed notify payload", zap.Error(err))
			return
		}
		app.Logger.Info("User notified",
			zap.String("recipient", payload.Recipient),
			zap.String("reason", payload.Reason),
			zap.Int64("postID", payload.PostID),
			zap.String("origin", evt.Origin))
	})

	if err := app.Bridge.Start(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				state := global.State()
				app.Logger.Info("Pending items",
					zap.Int("global", state.NewItemCount),
					zap.Int("following", following.Count()),
					zap.Int("notifications", bell.Count()),
					zap.Int("loaded", len(state.Items)),
					zap.Int("cached", app.Cache.Len()))
			}
		}
	})

	log.Printf("Listening for live updates (logs in %s)", app.LogManager.GetCurrentSessionDir())
	return g.Wait()
}

// runEmit publishes one event on the push channel.
func runEmit(ctx context.Context, event string, payload any) error {
	app, err := setup.InitializeApp(ctx, EmitCommand, LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	if err := app.Push.Connect(ctx); err != nil {
		return err
	}

	if err := app.Push.Emit(ctx, event, payload); err != nil {
		return fmt.Errorf("failed to emit %s: %w", event, err)
	}

	app.Logger.Info("Emitted event", zap.String("event", event), zap.String("origin", app.Push.Origin()))
	return nil
}

// runSuggest stores the seed's suggestions for viewer.
func runSuggest(ctx context.Context, viewer, seedPath string) error {
	if viewer == "" {
		return ErrMissingViewer
	}
	if seedPath == "" {
		return ErrMissingSeed
	}

	seed, err := config.LoadSeed(seedPath)
	if err != nil {
		return err
	}

	app, err := setup.InitializeApp(ctx, SuggestCommand, LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	return app.Source.Publish(ctx, viewer, seed.Suggestions)
}
