package repository

import (
	"context"
	"io"
	"time"

	"github.com/microfeed/microfeed/internal/domain"
)

// PostRepository is the table-service contract for posts. List results are
// ordered newest first; ListBefore pages backward in time from a cursor.
// Get returns (nil, nil) when the row does not exist.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context, limit int) ([]domain.Post, error)
	ListBefore(ctx context.Context, cursor time.Time, limit int) ([]domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id int64) error
}

// ProfileRepository is the table-service contract for author profiles.
type ProfileRepository interface {
	GetByEmails(ctx context.Context, emails []string) ([]domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
	Delete(ctx context.Context, email string) error
}

// ObjectStore is the object-storage contract. Paths are opaque strings
// scoped to the configured bucket; PublicURL resolves a path to a plain
// (un-busted) public URL and performs no I/O.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, path string) error
	PublicURL(path string) string
}
