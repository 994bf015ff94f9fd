// Package app wires the feed reconciler, profile cache and derived stats
// to the collaborator clients and drives them from one event loop. All
// shared state is single-owner: the loop is the only writer to the feed,
// readers get snapshots.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/microfeed/microfeed/internal/auth"
	"github.com/microfeed/microfeed/internal/domain"
	"github.com/microfeed/microfeed/internal/feed"
	"github.com/microfeed/microfeed/internal/profile"
	"github.com/microfeed/microfeed/internal/realtime"
	"github.com/microfeed/microfeed/internal/repository"
)

type App struct {
	logger   *zap.Logger
	posts    repository.PostRepository
	profiles *profile.Cache
	feed     *feed.Feed
	session  *auth.Manager
	pageSize int

	mu    sync.RWMutex
	stats map[string]feed.AuthorStats
}

func New(
	logger *zap.Logger,
	posts repository.PostRepository,
	profiles *profile.Cache,
	session *auth.Manager,
	pageSize int,
) *App {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &App{
		logger:   logger,
		posts:    posts,
		profiles: profiles,
		feed:     feed.New(),
		session:  session,
		pageSize: pageSize,
		stats:    make(map[string]feed.AuthorStats),
	}
}

// Load fetches the first page and establishes the feed's sort invariant.
func (a *App) Load(ctx context.Context) error {
	posts, err := a.posts.List(ctx, a.pageSize)
	if err != nil {
		return fmt.Errorf("loading feed: %w", err)
	}
	a.feed.SetAll(posts)
	a.feed.SetHasMore(len(posts) >= a.pageSize)
	a.refresh(ctx)
	return nil
}

// LoadMore fetches the page older than the current cursor and merges it
// into the tail. Returns whether more pages may remain.
func (a *App) LoadMore(ctx context.Context) (bool, error) {
	cursor, ok := a.feed.OldestCursor()
	if !ok || !a.feed.HasMore() {
		return false, nil
	}
	page, err := a.posts.ListBefore(ctx, cursor, a.pageSize)
	if err != nil {
		return a.feed.HasMore(), fmt.Errorf("loading more: %w", err)
	}
	hasMore := a.feed.AppendPage(page, a.pageSize)
	a.refresh(ctx)
	return hasMore, nil
}

// Run drives the realtime subscriptions and the session watcher until the
// context is canceled. One goroutine consumes each collection's queue, so
// every change passes through exactly one reducer.
func (a *App) Run(ctx context.Context, postCh, profileCh *realtime.Channel) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return postCh.Run(ctx) })
	g.Go(func() error { return profileCh.Run(ctx) })
	g.Go(func() error { a.consumePosts(ctx, postCh.Events()); return nil })
	g.Go(func() error { a.consumeProfiles(ctx, profileCh.Events()); return nil })
	g.Go(func() error { a.watchSession(ctx); return nil })

	return g.Wait()
}

// Feed returns a snapshot of the current collection.
func (a *App) Feed() []domain.Post {
	return a.feed.Snapshot()
}

// HasMore reports whether older pages may remain.
func (a *App) HasMore() bool {
	return a.feed.HasMore()
}

// Stats returns the derived aggregate for one author.
func (a *App) Stats(email string) (feed.AuthorStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.stats[domain.NormalizeEmail(email)]
	return s, ok
}

// Profile returns the cached profile for one author.
func (a *App) Profile(email string) (domain.Profile, bool) {
	return a.profiles.Get(email)
}

// ApplyLocal folds a locally confirmed mutation into the feed without
// waiting for the notification; the later realtime event de-duplicates by
// ID inside the reconciler.
func (a *App) ApplyLocal(ctx context.Context, c feed.Change) {
	a.feed.Apply(c)
	a.refresh(ctx)
}

func (a *App) consumePosts(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !ev.IsChange() {
				continue
			}
			change, err := ev.PostChange()
			if err != nil {
				a.logger.Warn("dropping malformed post event", zap.Error(err))
				continue
			}
			a.feed.Apply(change)
			a.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) consumeProfiles(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !ev.IsChange() {
				continue
			}
			record, err := ev.ProfileRecord()
			if err != nil {
				a.logger.Warn("dropping malformed profile event", zap.Error(err))
				continue
			}
			if ev.Type == realtime.EventTypeRecordDeleted {
				a.profiles.Remove(record.Email)
			} else {
				a.profiles.Merge([]domain.Profile{record})
			}
		case <-ctx.Done():
			return
		}
	}
}

// watchSession resets author-scoped view state on sign-out. The feed
// itself is public read state and survives the transition.
func (a *App) watchSession(ctx context.Context) {
	transitions := a.session.Watch()
	for {
		select {
		case id := <-transitions:
			if id == nil {
				a.logger.Info("signed out, resetting view state")
				a.profiles.Reset()
				a.mu.Lock()
				a.stats = make(map[string]feed.AuthorStats)
				a.mu.Unlock()
			} else {
				a.logger.Info("signed in", zap.String("email", id.Email))
			}
		case <-ctx.Done():
			return
		}
	}
}

// refresh recomputes the derived stats from the full post set and ensures
// profiles for every author in the loaded window. Stats are never patched
// incrementally.
func (a *App) refresh(ctx context.Context) {
	posts := a.feed.Snapshot()

	a.mu.Lock()
	a.stats = feed.ComputeStats(posts)
	a.mu.Unlock()

	emails := make([]string, 0, len(posts))
	for _, p := range posts {
		emails = append(emails, p.AuthorEmail)
	}
	if err := a.profiles.Ensure(ctx, emails); err != nil {
		// Benign: profiles render as bare emails until the next refresh.
		a.logger.Warn("profile lookup failed", zap.Error(err))
	}
}
