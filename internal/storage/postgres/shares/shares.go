package sharestorage

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

const columns = `id, recording_id, shared_by_id, shared_with_id, recipient_email, created_at, resolved_at`

type ShareStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *ShareStorage {
	return &ShareStorage{db: db}
}

func (s *ShareStorage) Save(ctx context.Context, share models.Share) (models.Share, error) {
	const op = "storage.postgres.shares.Save"

	query := fmt.Sprintf(`INSERT INTO %s (id, recording_id, shared_by_id, shared_with_id, recipient_email, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`, postgres.SharesTable)

	row := s.db.QueryRowContext(ctx, query,
		share.ID, share.RecordingID, share.SharedByID, share.SharedWithID, share.RecipientEmail, share.ResolvedAt,
	)
	if err := row.Scan(&share.CreatedAt); err != nil {
		if postgres.IsUniqueViolation(err) {
			return models.Share{}, fmt.Errorf("%s: %w", op, errs.ErrDuplicateShare)
		}
		return models.Share{}, fmt.Errorf("%s: %w", op, err)
	}

	return share, nil
}

// Resolved reports whether userID already holds a resolved share of the recording.
func (s *ShareStorage) Resolved(ctx context.Context, recordingID, userID string) (bool, error) {
	const op = "storage.postgres.shares.Resolved"

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE recording_id = $1 AND shared_with_id = $2)`, postgres.SharesTable)

	if err := s.db.GetContext(ctx, &exists, query, recordingID, userID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (s *ShareStorage) Pending(ctx context.Context, recordingID, email string) (models.Share, error) {
	const op = "storage.postgres.shares.Pending"

	var share models.Share
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE recording_id = $1 AND lower(recipient_email) = lower($2) AND shared_with_id IS NULL`, columns, postgres.SharesTable)

	if err := s.db.GetContext(ctx, &share, query, recordingID, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) || postgres.IsInvalidText(err) {
			return models.Share{}, fmt.Errorf("%s: %w", op, errs.ErrShareNotFound)
		}
		return models.Share{}, fmt.Errorf("%s: %w", op, err)
	}

	return share, nil
}

// ResolvePending points every pending share addressed to email at userID.
// Shares that would duplicate an existing grant for the same recording are left pending.
func (s *ShareStorage) ResolvePending(ctx context.Context, email, userID string) (int64, error) {
	const op = "storage.postgres.shares.ResolvePending"

	query := fmt.Sprintf(`UPDATE %[1]s p SET shared_with_id = $1, resolved_at = now()
		WHERE lower(p.recipient_email) = lower($2) AND p.shared_with_id IS NULL
		AND NOT EXISTS (SELECT 1 FROM %[1]s g WHERE g.recording_id = p.recording_id AND g.shared_with_id = $1)`,
		postgres.SharesTable)

	result, err := s.db.ExecContext(ctx, query, userID, email)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return rowsAffected, nil
}

func (s *ShareStorage) ByRecording(ctx context.Context, recordingID string) ([]models.Share, error) {
	const op = "storage.postgres.shares.ByRecording"

	shares := []models.Share{}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE recording_id = $1 ORDER BY created_at`, columns, postgres.SharesTable)

	if err := s.db.SelectContext(ctx, &shares, query, recordingID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return shares, nil
}

// Delete removes a share created by ownerID.
func (s *ShareStorage) Delete(ctx context.Context, ownerID, shareID string) error {
	const op = "storage.postgres.shares.Delete"

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND shared_by_id = $2`, postgres.SharesTable)

	result, err := s.db.ExecContext(ctx, query, shareID, ownerID)
	if err != nil {
		if postgres.IsInvalidText(err) {
			return fmt.Errorf("%s: %w", op, errs.ErrShareNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrShareNotFound)
	}

	return nil
}
