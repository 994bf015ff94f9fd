package feed

import (
	"time"

	"github.com/microfeed/microfeed/internal/domain"
)

// AuthorStats is the derived per-author aggregate. It is a pure cache:
// recomputed from the full post set on every relevant change, never
// patched incrementally, so it cannot drift.
type AuthorStats struct {
	Count      int
	LastPostAt time.Time
}

// ComputeStats scans the full post set and returns per-author counts and
// most-recent-post timestamps, keyed by normalized author email.
func ComputeStats(posts []domain.Post) map[string]AuthorStats {
	stats := make(map[string]AuthorStats, len(posts))
	for _, p := range posts {
		key := domain.NormalizeEmail(p.AuthorEmail)
		s := stats[key]
		s.Count++
		if p.CreatedAt.After(s.LastPostAt) {
			s.LastPostAt = p.CreatedAt
		}
		stats[key] = s
	}
	return stats
}
