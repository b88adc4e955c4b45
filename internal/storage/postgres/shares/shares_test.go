package sharestorage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
)

var shareColumns = []string{"id", "recording_id", "shared_by_id", "shared_with_id", "recipient_email", "created_at", "resolved_at"}

func newStorageWithMock(t *testing.T) (*ShareStorage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSave_Pending(t *testing.T) {
	s, mock := newStorageWithMock(t)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO shared_recordings`).
		WithArgs("share-1", "rec-1", "user-1", nil, "bob@example.com", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	share, err := s.Save(context.Background(), models.Share{
		ID:             "share-1",
		RecordingID:    "rec-1",
		SharedByID:     "user-1",
		RecipientEmail: "bob@example.com",
	})
	require.NoError(t, err)
	assert.True(t, share.Pending())
	assert.Equal(t, created, share.CreatedAt)
}

func TestSave_Duplicate(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`INSERT INTO shared_recordings`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.Save(context.Background(), models.Share{
		ID:           "share-1",
		RecordingID:  "rec-1",
		SharedWithID: sql.NullString{String: "user-2", Valid: true},
	})
	require.ErrorIs(t, err, errs.ErrDuplicateShare)
}

func TestResolved(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("rec-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.Resolved(context.Background(), "rec-1", "user-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPending_NotFound(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`shared_with_id IS NULL`).
		WithArgs("rec-1", "bob@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Pending(context.Background(), "rec-1", "bob@example.com")
	require.ErrorIs(t, err, errs.ErrShareNotFound)
}

func TestPending_Found(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`lower\(recipient_email\) = lower\(\$2\)`).
		WithArgs("rec-1", "Bob@Example.com").
		WillReturnRows(sqlmock.NewRows(shareColumns).
			AddRow("share-1", "rec-1", "user-1", nil, "bob@example.com", time.Now(), nil))

	share, err := s.Pending(context.Background(), "rec-1", "Bob@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "share-1", share.ID)
	assert.True(t, share.Pending())
}

func TestResolvePending(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(`UPDATE shared_recordings p SET shared_with_id = \$1, resolved_at = now\(\)`).
		WithArgs("user-2", "bob@example.com").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.ResolvePending(context.Background(), "bob@example.com", "user-2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestByRecording(t *testing.T) {
	s, mock := newStorageWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE recording_id = \$1 ORDER BY created_at`).
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows(shareColumns).
			AddRow("share-1", "rec-1", "user-1", "user-2", "al@example.com", now, now).
			AddRow("share-2", "rec-1", "user-1", nil, "bob@example.com", now, nil))

	shares, err := s.ByRecording(context.Background(), "rec-1")
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.False(t, shares[0].Pending())
	assert.True(t, shares[1].Pending())
}

func TestDelete(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(`DELETE FROM shared_recordings WHERE id = \$1 AND shared_by_id = \$2`).
		WithArgs("share-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM shared_recordings`).
		WithArgs("share-1", "user-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "user-1", "share-1"))
	require.ErrorIs(t, s.Delete(context.Background(), "user-9", "share-1"), errs.ErrShareNotFound)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(`DELETE FROM shared_recordings`).
		WithArgs("abc", "user-1").
		WillReturnError(&pq.Error{Code: "22P02"})
	mock.ExpectQuery(`FROM shared_recordings`).
		WillReturnError(&pq.Error{Code: "22P02"})

	require.ErrorIs(t, s.Delete(context.Background(), "user-1", "abc"), errs.ErrShareNotFound)

	_, err := s.Pending(context.Background(), "abc", "b@c.io")
	require.ErrorIs(t, err, errs.ErrShareNotFound)
}
