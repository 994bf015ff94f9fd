// Package imageref encodes and decodes the composite image reference
// stored on posts and profiles: "{storage path}|{public URL}". The path
// is the authoritative handle for deletion; the URL is a derived,
// cache-busted convenience value.
package imageref

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBucket is the object-store bucket posts images live in.
const DefaultBucket = "posts-images"

const publicObjectMarker = "/storage/v1/object/public/"

// Ref is a decoded image reference. Empty fields mean "absent" —
// legacy values may carry only a path or only a URL.
type Ref struct {
	Raw       string
	Path      string
	PublicURL string
}

// Compose serializes a path and its public URL into one reference string.
// Parse splits on the first separator only, so a URL containing '|' is safe.
func Compose(path, publicURL string) string {
	return path + "|" + publicURL
}

// Parse decodes a stored reference. It is total: any input, including
// empty strings and malformed URLs, yields a Ref without error.
// Supported forms:
//   - "path|url" composite
//   - bare storage path (legacy rows written before the composite format)
//   - bare public URL (legacy; path derived from the URL when possible)
func Parse(ref string) Ref {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}
	}

	if path, rest, found := strings.Cut(ref, "|"); found {
		r := Ref{Raw: ref, Path: path, PublicURL: rest}
		if r.Path == "" && r.PublicURL != "" {
			r.Path = DerivePathFromURL(r.PublicURL, DefaultBucket)
		}
		return r
	}

	if isHTTPURL(ref) {
		return Ref{
			Raw:       ref,
			Path:      DerivePathFromURL(ref, DefaultBucket),
			PublicURL: ref,
		}
	}

	return Ref{Raw: ref, Path: ref}
}

// DerivePathFromURL extracts the object path from a public URL by locating
// a known marker segment. Returns "" when no marker matches. Never panics
// on malformed input: when the URL does not parse, it falls back to a raw
// string search.
func DerivePathFromURL(rawURL, bucket string) string {
	target := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		target = u.Path
	}

	markers := []string{
		publicObjectMarker + bucket + "/",
		"/" + bucket + "/",
	}
	for _, marker := range markers {
		if _, rest, found := strings.Cut(target, marker); found && rest != "" {
			// Strip any query string carried along by the raw fallback.
			if i := strings.IndexByte(rest, '?'); i >= 0 {
				rest = rest[:i]
			}
			if decoded, err := url.PathUnescape(rest); err == nil {
				return decoded
			}
			return rest
		}
	}
	return ""
}

// WithCacheBuster appends a v= query parameter so that a re-uploaded image
// at the same path bypasses client and CDN caches. An empty token defaults
// to the current unix timestamp.
func WithCacheBuster(rawURL, token string) string {
	if token == "" {
		token = fmt.Sprintf("%d", time.Now().UnixMilli())
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "v=" + url.QueryEscape(token)
}

// NewObjectPath generates a collision-resistant storage path for an upload,
// preserving the original file extension when present.
func NewObjectPath(fileName, folder string) string {
	ext := filepath.Ext(fileName)
	return folder + "/" + uuid.NewString() + ext
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
