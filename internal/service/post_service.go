package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/microfeed/microfeed/internal/domain"
	"github.com/microfeed/microfeed/internal/imageref"
	"github.com/microfeed/microfeed/internal/repository"
	"github.com/microfeed/microfeed/pkg/validator"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotPostOwner = errors.New("only the post author can perform this action")
)

// imageFolder is the prefix for generated object paths.
const imageFolder = "posts"

// Notifier surfaces user-facing progress while a mutation is in flight.
// The terminal outcome is always the method's return value; Notifier is
// an optional dependency for UI feedback only.
type Notifier interface {
	Progress(stage string)
}

// PostService sequences the multi-step mutations: object-store work first
// where ordering demands it, then the single atomic database write. It
// never mutates feed state directly; callers reconcile via the realtime
// notification the write triggers. No mutation retries automatically.
type PostService struct {
	posts    repository.PostRepository
	objects  repository.ObjectStore
	logger   *zap.Logger
	notifier Notifier
}

func NewPostService(posts repository.PostRepository, objects repository.ObjectStore, logger *zap.Logger) *PostService {
	return &PostService{
		posts:   posts,
		objects: objects,
		logger:  logger,
	}
}

// SetNotifier sets the progress notifier (optional dependency).
func (s *PostService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ImageUpload is an attached file pending upload.
type ImageUpload struct {
	FileName    string
	Content     io.Reader
	Size        int64
	ContentType string
}

type CreatePostInput struct {
	Title       string
	Description string
	Image       *ImageUpload
}

type EditPostInput struct {
	Title       string
	Description string
	// Image replaces the attached image when set.
	Image *ImageUpload
	// ClearImage removes the existing image when no new one is supplied.
	ClearImage bool
}

// Create validates locally, uploads the attached image to a fresh path if
// present, then inserts the record. If the insert fails after a successful
// upload the object is orphaned; it is logged but not rolled back.
func (s *PostService) Create(ctx context.Context, author string, in CreatePostInput) (*domain.Post, error) {
	if err := validateInput(in.Title, in.Description, in.Image); err != nil {
		return nil, err
	}

	var ref *string
	if in.Image != nil {
		path := imageref.NewObjectPath(in.Image.FileName, imageFolder)
		composed, err := s.uploadImage(ctx, path, in.Image)
		if err != nil {
			return nil, err
		}
		ref = &composed
	}

	post := &domain.Post{
		Title:       strings.TrimSpace(in.Title),
		Description: optional(in.Description),
		AuthorEmail: domain.NormalizeEmail(author),
		ImageRef:    ref,
	}

	s.progress("saving post")
	if err := s.posts.Create(ctx, post); err != nil {
		if ref != nil {
			// Known gap: the uploaded object is now orphaned. See DESIGN.md.
			s.logger.Warn("post insert failed after image upload, object orphaned",
				zap.String("path", imageref.Parse(*ref).Path))
		}
		return nil, fmt.Errorf("creating post: %w", err)
	}
	return post, nil
}

// Edit updates title, description and image in one atomic database write.
// A replacement image is uploaded to the record's existing path when one
// exists, keeping the public URL stable behind a fresh cache-bust token.
// An explicit clear deletes the stored object before nulling the field.
// Any storage failure aborts before the database write.
func (s *PostService) Edit(ctx context.Context, author string, id int64, in EditPostInput) (*domain.Post, error) {
	if err := validateInput(in.Title, in.Description, in.Image); err != nil {
		return nil, err
	}

	post, err := s.ownedPost(ctx, author, id)
	if err != nil {
		return nil, err
	}
	existing := imageref.Parse(deref(post.ImageRef))

	switch {
	case in.Image != nil:
		path := existing.Path
		if path == "" {
			path = imageref.NewObjectPath(in.Image.FileName, imageFolder)
		}
		composed, err := s.uploadImage(ctx, path, in.Image)
		if err != nil {
			return nil, err
		}
		post.ImageRef = &composed

	case in.ClearImage:
		if existing.Path != "" {
			s.progress("removing image")
			if err := s.objects.Remove(ctx, existing.Path); err != nil {
				return nil, fmt.Errorf("removing image: %w", err)
			}
		}
		post.ImageRef = nil
	}

	post.Title = strings.TrimSpace(in.Title)
	post.Description = optional(in.Description)

	s.progress("saving post")
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("updating post: %w", err)
	}
	return post, nil
}

// Delete removes the referenced stored object first, then the record.
// Object deletion failure aborts the whole operation: a record without
// its image is a worse failure mode than a stray image without a record.
func (s *PostService) Delete(ctx context.Context, author string, id int64) error {
	post, err := s.ownedPost(ctx, author, id)
	if err != nil {
		return err
	}

	if ref := imageref.Parse(deref(post.ImageRef)); ref.Path != "" {
		s.progress("removing image")
		if err := s.objects.Remove(ctx, ref.Path); err != nil {
			return fmt.Errorf("removing image: %w", err)
		}
	}

	s.progress("deleting post")
	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

// ownedPost loads the post and checks authorship. The table service
// enforces access server-side; this check is a local affordance so the
// failure is descriptive instead of a backend rejection.
func (s *PostService) ownedPost(ctx context.Context, author string, id int64) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.AuthorEmail != domain.NormalizeEmail(author) {
		return nil, ErrNotPostOwner
	}
	return post, nil
}

func (s *PostService) uploadImage(ctx context.Context, path string, img *ImageUpload) (string, error) {
	s.progress("uploading image")
	if err := s.objects.Upload(ctx, path, img.Content, img.Size, img.ContentType); err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	url := imageref.WithCacheBuster(s.objects.PublicURL(path), "")
	return imageref.Compose(path, url), nil
}

func (s *PostService) progress(stage string) {
	if s.notifier != nil {
		s.notifier.Progress(stage)
	}
}

func validateInput(title, description string, img *ImageUpload) error {
	errs := validator.ValidatePost(title, description)
	if img != nil {
		for field, msg := range validator.ValidateImage(img.FileName, img.Size) {
			errs.Add(field, msg)
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
