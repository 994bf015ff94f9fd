package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/microfeed/microfeed/internal/domain"
)

type PostRepo struct {
	pool PgxPool
}

func NewPostRepo(pool PgxPool) *PostRepo {
	return &PostRepo{pool: pool}
}

const postColumns = `id, title, description, author_email, image_url, created_at`

func (r *PostRepo) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (title, description, author_email, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		post.Title, post.Description, post.AuthorEmail, post.ImageRef,
	).Scan(&post.ID, &post.CreatedAt)
}

func (r *PostRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	var p domain.Post
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.AuthorEmail, &p.ImageRef, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) List(ctx context.Context, limit int) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *PostRepo) ListBefore(ctx context.Context, cursor time.Time, limit int) ([]domain.Post, error) {
	query := `
		SELECT ` + postColumns + ` FROM posts
		WHERE created_at < $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// Update writes title, description and image reference in one statement.
// ID, author and created_at are immutable.
func (r *PostRepo) Update(ctx context.Context, post *domain.Post) error {
	query := `UPDATE posts SET title = $1, description = $2, image_url = $3 WHERE id = $4`
	_, err := r.pool.Exec(ctx, query, post.Title, post.Description, post.ImageRef, post.ID)
	return err
}

func (r *PostRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	return err
}

func scanPosts(rows pgx.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.AuthorEmail, &p.ImageRef, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
