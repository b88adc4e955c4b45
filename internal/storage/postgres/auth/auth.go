package authstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/storage/postgres"
)

type AuthStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *AuthStorage {
	return &AuthStorage{db: db}
}

func (s *AuthStorage) SaveUser(ctx context.Context, id, email string, passHash []byte) (string, error) {
	const op = "storage.postgres.auth.SaveUser"

	query := fmt.Sprintf("INSERT INTO %s (id, email, password_hash) VALUES ($1, $2, $3)", postgres.UsersTable)

	if _, err := s.db.ExecContext(ctx, query, id, email, passHash); err != nil {
		if postgres.IsUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, errs.ErrUserExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// User looks a user up by email, case-insensitively.
func (s *AuthStorage) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.auth.User"

	var user models.User
	query := fmt.Sprintf("SELECT id, email, password_hash, created_at FROM %s WHERE lower(email) = lower($1)", postgres.UsersTable)

	if err := s.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, errs.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *AuthStorage) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.postgres.auth.UserByID"

	var user models.User
	query := fmt.Sprintf("SELECT id, email, password_hash, created_at FROM %s WHERE id = $1", postgres.UsersTable)

	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, errs.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
