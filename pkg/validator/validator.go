package validator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/microfeed/microfeed/internal/domain"
)

// ValidationErrors maps field name to a user-facing message. It implements
// error so orchestrators can return it before any network activity.
type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// MaxImageSize bounds attached image uploads.
const MaxImageSize = 5 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func ValidatePost(title, description string) ValidationErrors {
	errs := make(ValidationErrors)

	title = strings.TrimSpace(title)
	if title == "" {
		errs.Add("title", "Title is required")
	} else if len(title) > domain.MaxTitleLen {
		errs.Add("title", fmt.Sprintf("Title must be at most %d characters", domain.MaxTitleLen))
	}

	if len(description) > domain.MaxDescriptionLen {
		errs.Add("description", fmt.Sprintf("Description must be at most %d characters", domain.MaxDescriptionLen))
	}

	return errs
}

// ValidateImage checks an attached file before any upload is attempted.
func ValidateImage(fileName string, size int64) ValidationErrors {
	errs := make(ValidationErrors)

	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedImageExts[ext] {
		errs.Add("image", "File must be a jpg, png, gif or webp image")
	}
	if size > MaxImageSize {
		errs.Add("image", "Image must be smaller than 5 MB")
	}

	return errs
}
