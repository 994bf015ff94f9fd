package domain

import "time"

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
)

// Post is a single feed entry. ID and CreatedAt are assigned by the
// database on insert and never change afterwards. ImageRef, when set,
// is a composite "path|url" string (see internal/imageref).
type Post struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	AuthorEmail string    `json:"author_email"`
	ImageRef    *string   `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
