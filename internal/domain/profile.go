package domain

import (
	"strings"
	"time"
)

// Profile is an author's public profile, keyed by normalized email.
type Profile struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Bio       *string   `json:"bio,omitempty"`
	AvatarRef *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail applies the canonical key normalization. Every read and
// write of profile data must go through this, or cache lookups silently miss.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
