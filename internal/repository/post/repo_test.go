package post

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/prok/internal/model"
)

var postColumns = []string{
	"id", "user_id", "content", "media_url", "media_thumbnail", "category", "tags",
	"visibility", "likes_count", "views_count", "created_at",
}

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(&dbpg.DB{Master: db, Slaves: []*sql.DB{db}}), mock
}

func TestCreatePost(t *testing.T) {
	r, mock := newRepo(t)
	id, userID := uuid.New(), uuid.New()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts")).
		WithArgs(userID.String(), "hello", "img_1_deadbeef.png", "thumb_img_1_deadbeef.png", "", sqlmock.AnyArg(), "public").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), created))

	p, err := r.CreatePost(context.Background(), model.Post{
		UserID:         userID,
		Content:        "hello",
		MediaURL:       "img_1_deadbeef.png",
		MediaThumbnail: "thumb_img_1_deadbeef.png",
		Tags:           []string{"go"},
		Visibility:     "public",
	})
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostScansTags(t *testing.T) {
	r, mock := newRepo(t)
	id, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM posts")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(id.String(), userID.String(), "hi", "", "", "", "{go,images}", "public", 3, 7, time.Now()))

	p, err := r.GetPost(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, []string{"go", "images"}, p.Tags)
	assert.Equal(t, 3, p.LikesCount)
}

func TestGetPostNotFound(t *testing.T) {
	r, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM posts")).WillReturnRows(sqlmock.NewRows(postColumns))

	_, err := r.GetPost(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePost(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     error
	}{
		{"owned", 1, nil},
		{"missing or foreign", 0, ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newRepo(t)
			id, userID := uuid.New(), uuid.New()

			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = $1 AND user_id = $2")).
				WithArgs(id.String(), userID.String()).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := r.DeletePost(context.Background(), id, userID)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLatest(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE visibility = 'public'")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(uuid.NewString(), uuid.NewString(), "new", "", "", "", "{}", "public", 0, 0, time.Now()).
			AddRow(uuid.NewString(), uuid.NewString(), "old", "", "", "", "{}", "public", 0, 0, time.Now().Add(-time.Hour)))

	posts, err := r.Latest(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].Content)
	assert.Empty(t, posts[1].Tags)
}
