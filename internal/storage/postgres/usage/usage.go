package usagestorage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zanzhit/voicetribe/internal/storage/postgres"
)

// UsageStorage counts text-to-speech generations per user and calendar month.
type UsageStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *UsageStorage {
	return &UsageStorage{db: db}
}

func (s *UsageStorage) Monthly(ctx context.Context, userID string, at time.Time) (int, error) {
	const op = "storage.postgres.usage.Monthly"

	var count int
	query := fmt.Sprintf(`SELECT COALESCE((SELECT count FROM %s WHERE user_id = $1 AND month = $2), 0)`, postgres.UsageTable)

	if err := s.db.GetContext(ctx, &count, query, userID, monthOf(at)); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (s *UsageStorage) Increment(ctx context.Context, userID string, at time.Time) (int, error) {
	const op = "storage.postgres.usage.Increment"

	var count int
	query := fmt.Sprintf(`INSERT INTO %[1]s (user_id, month, count) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, month) DO UPDATE SET count = %[1]s.count + 1
		RETURNING count`, postgres.UsageTable)

	if err := s.db.GetContext(ctx, &count, query, userID, monthOf(at)); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
