package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/microfeed/microfeed/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostRepo_Create_ReturnsIDAndTimestamp(t *testing.T) {
	mock := newMock(t)
	r := NewPostRepo(mock)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs("hello", (*string)(nil), "a@x.com", (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	post := &domain.Post{Title: "hello", AuthorEmail: "a@x.com"}
	require.NoError(t, r.Create(context.Background(), post))
	require.Equal(t, int64(7), post.ID)
	require.True(t, post.CreatedAt.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	r := NewPostRepo(mock)

	mock.ExpectQuery(`SELECT .* FROM posts WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	// Absent rows map to (nil, nil); other errors pass through.
	post, err := r.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, post)

	mock.ExpectQuery(`SELECT .* FROM posts WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(errors.New("connection refused"))
	_, err = r.GetByID(context.Background(), 42)
	require.Error(t, err)
}

func TestPostRepo_GetByID_Found(t *testing.T) {
	mock := newMock(t)
	r := NewPostRepo(mock)

	now := time.Now()
	desc := "d"
	ref := "posts/a.png|http://h/posts-images/posts/a.png"
	mock.ExpectQuery(`SELECT .* FROM posts WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "title", "description", "author_email", "image_url", "created_at"}).
			AddRow(int64(7), "hello", &desc, "a@x.com", &ref, now))

	post, err := r.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "hello", post.Title)
	require.Equal(t, "d", *post.Description)
	require.Equal(t, ref, *post.ImageRef)
}

func TestPostRepo_List(t *testing.T) {
	mock := newMock(t)
	r := NewPostRepo(mock)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM posts ORDER BY created_at DESC, id DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "title", "description", "author_email", "image_url", "created_at"}).
			AddRow(int64(2), "b", (*string)(nil), "a@x.com", (*string)(nil), now).
			AddRow(int64(1), "a", (*string)(nil), "a@x.com", (*string)(nil), now.Add(-time.Minute)))

	posts, err := r.List(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, int64(2), posts[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_ListBefore_UsesCursor(t *testing.T) {
	mock := newMock(t)
	r := NewPostRepo(mock)

	cursor := time.Now()
	mock.ExpectQuery(`WHERE created_at < \$1`).
		WithArgs(cursor, 10).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "title", "description", "author_email", "image_url", "created_at"}))

	posts, err := r.ListBefore(context.Background(), cursor, 10)
	require.NoError(t, err)
	require.Empty(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_UpdateAndDelete(t *testing.T) {
	mock := newMock(t)
	r := NewPostRepo(mock)

	ref := "posts/a.png|http://h/posts-images/posts/a.png"
	mock.ExpectExec(`UPDATE posts SET title = \$1, description = \$2, image_url = \$3 WHERE id = \$4`).
		WithArgs("new", (*string)(nil), &ref, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, r.Update(context.Background(), &domain.Post{ID: 7, Title: "new", ImageRef: &ref}))
	require.NoError(t, r.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}
