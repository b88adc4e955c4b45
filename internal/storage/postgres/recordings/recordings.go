package recordingstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/storage/postgres"
)

const columns = `id, user_id, blob_url, blob_key, title, description, notes, image_url, tags, source, duration_seconds, created_at`

// mutable maps owner-editable fields onto their columns.
var mutable = map[models.Field]string{
	models.FieldTitle:    "title",
	models.FieldNotes:    "notes",
	models.FieldImageURL: "image_url",
	models.FieldTags:     "tags",
}

var orderBy = map[models.SortOption]string{
	models.SortRecent:       "r.created_at DESC",
	models.SortOldest:       "r.created_at ASC",
	models.SortAlphabetical: "lower(r.title) ASC, r.created_at DESC",
}

type RecordingStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *RecordingStorage {
	return &RecordingStorage{
		db: db,
	}
}

func (s *RecordingStorage) Save(ctx context.Context, rec models.Recording) (models.Recording, error) {
	const op = "storage.postgres.recordings.Save"

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, blob_url, blob_key, title, description, notes, image_url, tags, source, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`, postgres.RecordingsTable)

	if rec.Tags == nil {
		rec.Tags = pq.StringArray{}
	}

	row := s.db.QueryRowContext(ctx, query,
		rec.ID, rec.UserID, rec.AudioURL, rec.BlobKey, rec.Title, rec.Description,
		rec.Notes, rec.ImageURL, rec.Tags, rec.Source, rec.DurationSeconds,
	)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (s *RecordingStorage) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	const op = "storage.postgres.recordings.CountByOwner"

	var count int
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE user_id = $1`, postgres.RecordingsTable)

	if err := s.db.GetContext(ctx, &count, query, ownerID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// Recording returns the recording if userID owns it or holds a resolved share.
func (s *RecordingStorage) Recording(ctx context.Context, userID, recordingID string) (models.Recording, error) {
	const op = "storage.postgres.recordings.Recording"

	var rec models.Recording
	query := fmt.Sprintf(`
		SELECT %s FROM %s r
		WHERE r.id = $1 AND (r.user_id = $2 OR EXISTS (
			SELECT 1 FROM %s s WHERE s.recording_id = r.id AND s.shared_with_id = $2
		))`, prefixed("r"), postgres.RecordingsTable, postgres.SharesTable)

	if err := s.db.GetContext(ctx, &rec, query, recordingID, userID); err != nil {
		if notFound(err) {
			return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (s *RecordingStorage) OwnedRecording(ctx context.Context, ownerID, recordingID string) (models.Recording, error) {
	const op = "storage.postgres.recordings.OwnedRecording"

	var rec models.Recording
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, columns, postgres.RecordingsTable)

	if err := s.db.GetContext(ctx, &rec, query, recordingID, ownerID); err != nil {
		if notFound(err) {
			return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (s *RecordingStorage) Owned(ctx context.Context, ownerID string, filter models.ListFilter) ([]models.Recording, error) {
	const op = "storage.postgres.recordings.Owned"

	query := fmt.Sprintf(`SELECT %s FROM %s r WHERE r.user_id = $1`, prefixed("r"), postgres.RecordingsTable)

	recs, err := s.list(ctx, query, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return recs, nil
}

func (s *RecordingStorage) SharedWith(ctx context.Context, userID string, filter models.ListFilter) ([]models.Recording, error) {
	const op = "storage.postgres.recordings.SharedWith"

	query := fmt.Sprintf(`
		SELECT %s FROM %s r
		JOIN %s s ON s.recording_id = r.id
		WHERE s.shared_with_id = $1`, prefixed("r"), postgres.RecordingsTable, postgres.SharesTable)

	recs, err := s.list(ctx, query, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return recs, nil
}

func (s *RecordingStorage) list(ctx context.Context, query, userID string, filter models.ListFilter) ([]models.Recording, error) {
	args := []any{userID}
	if filter.Tag != "" {
		query += " AND $2 = ANY(r.tags)"
		args = append(args, filter.Tag)
	}

	order, ok := orderBy[filter.Sort]
	if !ok {
		order = orderBy[models.SortRecent]
	}
	query += " ORDER BY " + order

	recs := []models.Recording{}
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, err
	}

	return recs, nil
}

// UpdateField sets a single owner-editable column and returns the updated row.
func (s *RecordingStorage) UpdateField(ctx context.Context, ownerID, recordingID string, field models.Field, value any) (models.Recording, error) {
	const op = "storage.postgres.recordings.UpdateField"

	column, ok := mutable[field]
	if !ok {
		return models.Recording{}, fmt.Errorf("%s: field %q: %w", op, field, errs.ErrValidation)
	}

	if tags, ok := value.([]string); ok {
		value = pq.StringArray(tags)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2 AND user_id = $3 RETURNING %s`,
		postgres.RecordingsTable, column, columns)

	return s.updateReturning(ctx, op, query, value, recordingID, ownerID)
}

// AddTag appends tag unless the recording already carries it.
func (s *RecordingStorage) AddTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error) {
	const op = "storage.postgres.recordings.AddTag"

	query := fmt.Sprintf(`UPDATE %s
		SET tags = CASE WHEN $1 = ANY(tags) THEN tags ELSE array_append(tags, $1) END
		WHERE id = $2 AND user_id = $3
		RETURNING %s`, postgres.RecordingsTable, columns)

	return s.updateReturning(ctx, op, query, tag, recordingID, ownerID)
}

func (s *RecordingStorage) RemoveTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error) {
	const op = "storage.postgres.recordings.RemoveTag"

	query := fmt.Sprintf(`UPDATE %s SET tags = array_remove(tags, $1)
		WHERE id = $2 AND user_id = $3
		RETURNING %s`, postgres.RecordingsTable, columns)

	return s.updateReturning(ctx, op, query, tag, recordingID, ownerID)
}

// UpdateDescription overwrites the description of an owned recording.
func (s *RecordingStorage) UpdateDescription(ctx context.Context, ownerID, recordingID, description string) error {
	const op = "storage.postgres.recordings.UpdateDescription"

	query := fmt.Sprintf(`UPDATE %s SET description = $1 WHERE id = $2 AND user_id = $3`, postgres.RecordingsTable)

	result, err := s.db.ExecContext(ctx, query, description, recordingID, ownerID)
	if err != nil {
		if postgres.IsInvalidText(err) {
			return fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
	}

	return nil
}

// Delete removes an owned recording and returns its storage keys for cleanup.
// Shares go with it through the foreign key cascade.
func (s *RecordingStorage) Delete(ctx context.Context, ownerID, recordingID string) (models.Recording, error) {
	const op = "storage.postgres.recordings.Delete"

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2 RETURNING %s`, postgres.RecordingsTable, columns)

	var rec models.Recording
	if err := s.db.GetContext(ctx, &rec, query, recordingID, ownerID); err != nil {
		if notFound(err) {
			return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (s *RecordingStorage) updateReturning(ctx context.Context, op, query string, args ...any) (models.Recording, error) {
	var rec models.Recording
	if err := s.db.GetContext(ctx, &rec, query, args...); err != nil {
		if notFound(err) {
			return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}
		if postgres.IsCheckViolation(err) {
			return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrConflict)
		}
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func prefixed(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.user_id, %[1]s.blob_url, %[1]s.blob_key, %[1]s.title, %[1]s.description,
		%[1]s.notes, %[1]s.image_url, %[1]s.tags, %[1]s.source, %[1]s.duration_seconds, %[1]s.created_at`, alias)
}

// notFound treats a malformed id like an id that matches no row.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || postgres.IsInvalidText(err)
}
