package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microfeed/microfeed/internal/auth"
	"github.com/microfeed/microfeed/internal/domain"
	"github.com/microfeed/microfeed/internal/feed"
	"github.com/microfeed/microfeed/internal/profile"
	"github.com/microfeed/microfeed/internal/repository"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakePostRepo serves a fixed, newest-first post set with cursor pagination.
type fakePostRepo struct {
	all []domain.Post
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func (f *fakePostRepo) Create(context.Context, *domain.Post) error { return nil }
func (f *fakePostRepo) Update(context.Context, *domain.Post) error { return nil }
func (f *fakePostRepo) Delete(context.Context, int64) error        { return nil }

func (f *fakePostRepo) GetByID(context.Context, int64) (*domain.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) List(_ context.Context, limit int) ([]domain.Post, error) {
	if limit > len(f.all) {
		limit = len(f.all)
	}
	return append([]domain.Post(nil), f.all[:limit]...), nil
}

func (f *fakePostRepo) ListBefore(_ context.Context, cursor time.Time, limit int) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range f.all {
		if p.CreatedAt.Before(cursor) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeProfileRepo struct {
	profiles map[string]domain.Profile
	lookups  int
}

var _ repository.ProfileRepository = (*fakeProfileRepo)(nil)

func (f *fakeProfileRepo) GetByEmails(_ context.Context, emails []string) ([]domain.Profile, error) {
	f.lookups++
	var out []domain.Profile
	for _, e := range emails {
		if p, ok := f.profiles[e]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) Upsert(context.Context, *domain.Profile) error { return nil }

func (f *fakeProfileRepo) Delete(context.Context, string) error { return nil }

func newApp(pageSize int) (*App, *fakePostRepo, *fakeProfileRepo, *auth.Manager) {
	posts := &fakePostRepo{all: []domain.Post{
		{ID: 5, Title: "e", AuthorEmail: "a@x.com", CreatedAt: base.Add(5 * time.Minute)},
		{ID: 4, Title: "d", AuthorEmail: "b@x.com", CreatedAt: base.Add(4 * time.Minute)},
		{ID: 3, Title: "c", AuthorEmail: "a@x.com", CreatedAt: base.Add(3 * time.Minute)},
		{ID: 2, Title: "b", AuthorEmail: "b@x.com", CreatedAt: base.Add(2 * time.Minute)},
		{ID: 1, Title: "a", AuthorEmail: "a@x.com", CreatedAt: base.Add(1 * time.Minute)},
	}}
	profiles := &fakeProfileRepo{profiles: map[string]domain.Profile{
		"a@x.com": {Email: "a@x.com", Name: "Ada"},
		"b@x.com": {Email: "b@x.com", Name: "Bob"},
	}}
	session := auth.NewManager()
	a := New(zap.NewNop(), posts, profile.NewCache(profiles), session, pageSize)
	return a, posts, profiles, session
}

func feedIDs(a *App) []int64 {
	snapshot := a.Feed()
	out := make([]int64, len(snapshot))
	for i, p := range snapshot {
		out[i] = p.ID
	}
	return out
}

func TestLoadPopulatesFeedStatsAndProfiles(t *testing.T) {
	a, _, profiles, _ := newApp(2)

	require.NoError(t, a.Load(context.Background()))
	require.Equal(t, []int64{5, 4}, feedIDs(a))
	require.True(t, a.HasMore())

	stats, ok := a.Stats("a@x.com")
	require.True(t, ok)
	require.Equal(t, 1, stats.Count)

	prof, ok := a.Profile("a@x.com")
	require.True(t, ok)
	require.Equal(t, "Ada", prof.Name)
	require.Equal(t, 1, profiles.lookups)
}

func TestLoadShortFirstPageEndsPagination(t *testing.T) {
	a, _, _, _ := newApp(50)
	require.NoError(t, a.Load(context.Background()))
	require.False(t, a.HasMore())

	hasMore, err := a.LoadMore(context.Background())
	require.NoError(t, err)
	require.False(t, hasMore)
}

func TestLoadMorePagesBackward(t *testing.T) {
	a, _, _, _ := newApp(2)
	require.NoError(t, a.Load(context.Background()))

	hasMore, err := a.LoadMore(context.Background())
	require.NoError(t, err)
	require.True(t, hasMore)
	require.Equal(t, []int64{5, 4, 3, 2}, feedIDs(a))

	hasMore, err = a.LoadMore(context.Background())
	require.NoError(t, err)
	require.False(t, hasMore)
	require.Equal(t, []int64{5, 4, 3, 2, 1}, feedIDs(a))

	stats, _ := a.Stats("a@x.com")
	require.Equal(t, 3, stats.Count)
	require.True(t, stats.LastPostAt.Equal(base.Add(5*time.Minute)))
}

func TestApplyLocalThenNotificationDeduplicates(t *testing.T) {
	a, _, _, _ := newApp(10)
	require.NoError(t, a.Load(context.Background()))

	created := domain.Post{ID: 6, Title: "new", AuthorEmail: "a@x.com", CreatedAt: base.Add(6 * time.Minute)}
	a.ApplyLocal(context.Background(), feed.Change{Op: feed.OpInsert, Post: created})
	require.Equal(t, []int64{6, 5, 4, 3, 2, 1}, feedIDs(a))

	// The realtime notification for the same record arrives later.
	a.ApplyLocal(context.Background(), feed.Change{Op: feed.OpInsert, Post: created})
	require.Equal(t, []int64{6, 5, 4, 3, 2, 1}, feedIDs(a))

	stats, _ := a.Stats("a@x.com")
	require.Equal(t, 4, stats.Count)
}

func TestSignOutResetsAuthorScopedState(t *testing.T) {
	a, _, _, session := newApp(10)
	require.NoError(t, a.Load(context.Background()))

	_, ok := a.Profile("a@x.com")
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		a.watchSession(ctx)
		close(done)
	}()

	// Give the watcher a subscription before signing out.
	time.Sleep(10 * time.Millisecond)
	session.SignOut()

	require.Eventually(t, func() bool {
		_, ok := a.Profile("a@x.com")
		return !ok
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := a.Stats("a@x.com")
		return !ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	// The public feed itself survives the transition.
	require.NotEmpty(t, a.Feed())
}
