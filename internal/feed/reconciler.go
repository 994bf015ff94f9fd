// Package feed owns the canonical in-memory collection of posts and the
// derived per-author stats. The collection is mutated only through the
// Feed's entry points; every operation is idempotent so that at-least-once,
// out-of-order delivery of change notifications converges to the same state.
package feed

import (
	"sort"
	"sync"
	"time"

	"github.com/microfeed/microfeed/internal/domain"
)

// ChangeOp identifies the kind of change notification.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// Change is one inbound change notification for the posts collection.
// Post carries the new row image for inserts/updates; for deletes only
// the ID of the old row image is needed.
type Change struct {
	Op   ChangeOp
	Post domain.Post
}

// Feed holds posts ordered newest first (descending CreatedAt, ties broken
// by descending ID so repeated merges stay deterministic).
type Feed struct {
	mu      sync.RWMutex
	posts   []domain.Post
	hasMore bool
}

func New() *Feed {
	return &Feed{hasMore: true}
}

// before reports whether a sorts ahead of b in the feed.
func before(a, b domain.Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SetAll replaces the collection wholesale, establishing the sort invariant.
// Used on initial load and after a session reset.
func (f *Feed) SetAll(posts []domain.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append([]domain.Post(nil), posts...)
	sort.Slice(f.posts, func(i, j int) bool { return before(f.posts[i], f.posts[j]) })
	f.hasMore = true
}

// ApplyInsert adds a post at its sorted position. A post with the same ID
// already present (optimistic apply racing the notification) is a no-op.
func (f *Feed) ApplyInsert(p domain.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexOf(p.ID) >= 0 {
		return
	}
	f.insertSorted(p)
}

// ApplyUpdate replaces the post with the matching ID in place. An update
// for an unknown ID is a benign race and is dropped.
func (f *Feed) ApplyUpdate(p domain.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(p.ID)
	if i < 0 {
		return
	}
	// CreatedAt is immutable, so the slot's sort position holds.
	f.posts[i] = p
}

// ApplyDelete removes the post with the matching ID; no-op if absent.
func (f *Feed) ApplyDelete(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return
	}
	f.posts = append(f.posts[:i], f.posts[i+1:]...)
}

// Apply routes one change notification to the matching operation.
// It is the single reducer the event consumer drives.
func (f *Feed) Apply(c Change) {
	switch c.Op {
	case OpInsert:
		f.ApplyInsert(c.Post)
	case OpUpdate:
		f.ApplyUpdate(c.Post)
	case OpDelete:
		f.ApplyDelete(c.Post.ID)
	}
}

// AppendPage merges an older page into the tail, skipping IDs already
// present (a record created between page fetches shifts the cursor window).
// Returns false when the fetched page was shorter than requested, meaning
// no more pages remain.
func (f *Feed) AppendPage(posts []domain.Post, pageSize int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range posts {
		if f.indexOf(p.ID) >= 0 {
			continue
		}
		f.insertSorted(p)
	}
	f.hasMore = len(posts) >= pageSize
	return f.hasMore
}

// SetHasMore records whether older pages remain, used after an initial
// load whose first page came back short.
func (f *Feed) SetHasMore(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasMore = v
}

// HasMore reports whether older pages may remain.
func (f *Feed) HasMore() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hasMore
}

// OldestCursor returns the CreatedAt of the oldest loaded post, the cursor
// for fetching the next page back in time. ok is false on an empty feed.
func (f *Feed) OldestCursor() (cursor time.Time, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.posts) == 0 {
		return time.Time{}, false
	}
	return f.posts[len(f.posts)-1].CreatedAt, true
}

// Snapshot returns a copy of the current collection for readers.
func (f *Feed) Snapshot() []domain.Post {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]domain.Post(nil), f.posts...)
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.posts)
}

// indexOf returns the slice index of the post with the given ID, or -1.
// Caller must hold the lock.
func (f *Feed) indexOf(id int64) int {
	for i := range f.posts {
		if f.posts[i].ID == id {
			return i
		}
	}
	return -1
}

// insertSorted places p at its ordered position. Caller must hold the lock.
func (f *Feed) insertSorted(p domain.Post) {
	i := sort.Search(len(f.posts), func(i int) bool { return !before(f.posts[i], p) })
	f.posts = append(f.posts, domain.Post{})
	copy(f.posts[i+1:], f.posts[i:])
	f.posts[i] = p
}
