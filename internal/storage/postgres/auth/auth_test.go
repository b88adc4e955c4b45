package authstorage

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
)

func newStorageWithMock(t *testing.T) (*AuthStorage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSaveUser(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(`INSERT INTO users \(id, email, password_hash\)`).
		WithArgs("user-1", "al@example.com", []byte("hash")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.SaveUser(context.Background(), "user-1", "al@example.com", []byte("hash"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestSaveUser_Exists(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.SaveUser(context.Background(), "user-1", "al@example.com", []byte("hash"))
	require.ErrorIs(t, err, errs.ErrUserExists)
}

func TestUser(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("Al@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("user-1", "al@example.com", []byte("hash"), time.Now()))

	user, err := s.User(context.Background(), "Al@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, []byte("hash"), user.PassHash)
}

func TestUser_NotFound(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`FROM users`).WillReturnError(sql.ErrNoRows)

	_, err := s.User(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestUserByID(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("user-1", "al@example.com", []byte("hash"), time.Now()))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("user-9").
		WillReturnError(sql.ErrNoRows)

	user, err := s.UserByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "al@example.com", user.Email)

	_, err = s.UserByID(context.Background(), "user-9")
	require.ErrorIs(t, err, errs.ErrUserNotFound)
}
