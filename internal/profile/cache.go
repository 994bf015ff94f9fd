// Package profile maintains the lazily populated author-profile cache,
// keyed by normalized email and merged from realtime notifications.
package profile

import (
	"context"
	"fmt"
	"sync"

	"github.com/microfeed/microfeed/internal/domain"
	"github.com/microfeed/microfeed/internal/repository"
)

type Cache struct {
	repo repository.ProfileRepository

	mu      sync.RWMutex
	byEmail map[string]domain.Profile
}

func NewCache(repo repository.ProfileRepository) *Cache {
	return &Cache{
		repo:    repo,
		byEmail: make(map[string]domain.Profile),
	}
}

// Ensure loads the profiles for the given author emails that are not yet
// cached, in a single batched lookup. Emails are normalized and
// de-duplicated first; the "already cached" check runs against the live
// map at call time, so rapid successive calls do not re-fetch the same
// identities.
func (c *Cache) Ensure(ctx context.Context, emails []string) error {
	missing := c.missing(emails)
	if len(missing) == 0 {
		return nil
	}

	profiles, err := c.repo.GetByEmails(ctx, missing)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}
	c.Merge(profiles)
	return nil
}

// Merge upserts profiles by normalized email, last write wins.
func (c *Cache) Merge(profiles []domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range profiles {
		c.byEmail[domain.NormalizeEmail(p.Email)] = p
	}
}

// Remove evicts an entry, used when a profile deletion notification arrives.
func (c *Cache) Remove(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byEmail, domain.NormalizeEmail(email))
}

func (c *Cache) Get(email string) (domain.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byEmail[domain.NormalizeEmail(email)]
	return p, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byEmail)
}

// Reset drops all entries, used on sign-out.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byEmail = make(map[string]domain.Profile)
}

func (c *Cache) missing(emails []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(emails))
	var missing []string
	for _, e := range emails {
		key := domain.NormalizeEmail(e)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, cached := c.byEmail[key]; !cached {
			missing = append(missing, key)
		}
	}
	return missing
}
