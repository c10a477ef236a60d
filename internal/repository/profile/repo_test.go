package profile

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/prok/internal/model"
)

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(&dbpg.DB{Master: db, Slaves: []*sql.DB{db}}), mock
}

func TestSetImageReturnsReplacedNames(t *testing.T) {
	r, mock := newRepo(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = $1 FOR UPDATE")).
		WithArgs(userID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"profile_image", "profile_thumbnail"}).
			AddRow("img_1_old.png", "thumb_img_1_old.png"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (user_id, profile_image, profile_thumbnail)")).
		WithArgs(userID.String(), "img_2_new.png", "thumb_img_2_new.png").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	oldImage, oldThumb, err := r.SetImage(context.Background(), userID, "img_2_new.png", "thumb_img_2_new.png")
	require.NoError(t, err)
	assert.Equal(t, "img_1_old.png", oldImage)
	assert.Equal(t, "thumb_img_1_old.png", oldThumb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetImageCreatesMissingProfile(t *testing.T) {
	r, mock := newRepo(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"profile_image", "profile_thumbnail"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	oldImage, oldThumb, err := r.SetImage(context.Background(), userID, "img_2_new.png", "")
	require.NoError(t, err)
	assert.Empty(t, oldImage)
	assert.Empty(t, oldThumb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetImageRollsBackOnWriteFailure(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"profile_image", "profile_thumbnail"}).AddRow("a.png", ""))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	oldImage, _, err := r.SetImage(context.Background(), uuid.New(), "b.png", "")
	require.Error(t, err)
	assert.Empty(t, oldImage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertReplacesSubEntities(t *testing.T) {
	r, mock := newRepo(t)
	userID, profileID := uuid.New(), uuid.New()
	start := 2019

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).
		WithArgs(userID.String(), "Alice", "Engineer", "", "", "Berlin", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(profileID.String()))
	for _, table := range []string{"skills", "experiences", "educations"} {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table + " WHERE profile_id = $1")).
			WithArgs(profileID.String()).
			WillReturnResult(sqlmock.NewResult(0, 2))
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO skills")).
		WithArgs(profileID.String(), "go").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO skills")).
		WithArgs(profileID.String(), "sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO educations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := r.Upsert(context.Background(), model.Profile{
		UserID:     userID,
		FullName:   "Alice",
		Headline:   "Engineer",
		Location:   "Berlin",
		Skills:     []string{"go", "sql"},
		Educations: []model.Education{{School: "TU", StartYear: &start}},
	})
	require.NoError(t, err)
	assert.Equal(t, profileID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRollsBackOnFailure(t *testing.T) {
	r, mock := newRepo(t)
	profileID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO profiles")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(profileID.String()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM skills")).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := r.Upsert(context.Background(), model.Profile{UserID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear skills")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUserIDNotFound(t *testing.T) {
	r, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "full_name", "headline", "summary", "about", "location", "email",
			"profile_image", "profile_thumbnail",
		}))

	_, err := r.GetByUserID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
