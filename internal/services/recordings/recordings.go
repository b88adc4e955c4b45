package recordingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

const (
	maxTitleLen  = 200
	maxTagLen    = 50
	ttsTitleLen  = 30
	placeholder  = "Recording "
	synthesisMax = 4096
)

type RecordingService struct {
	log               *slog.Logger
	recordingSaver    RecordingSaver
	recordingProvider RecordingProvider
	uploader          Uploader
	synthesizer       Synthesizer
	usage             UsageCounter
	ttsMonthlyLimit   int
	validate          *validator.Validate
	newID             func() string
	now               func() time.Time
}

type RecordingSaver interface {
	Save(ctx context.Context, rec models.Recording) (models.Recording, error)
	UpdateField(ctx context.Context, ownerID, recordingID string, field models.Field, value any) (models.Recording, error)
	AddTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error)
	RemoveTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error)
	Delete(ctx context.Context, ownerID, recordingID string) (models.Recording, error)
}

type RecordingProvider interface {
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Recording(ctx context.Context, userID, recordingID string) (models.Recording, error)
	OwnedRecording(ctx context.Context, ownerID, recordingID string) (models.Recording, error)
	Owned(ctx context.Context, ownerID string, filter models.ListFilter) ([]models.Recording, error)
	SharedWith(ctx context.Context, userID string, filter models.ListFilter) ([]models.Recording, error)
}

type Uploader interface {
	Upload(ctx context.Context, blob models.Blob) (models.StoredObject, error)
	Remove(ctx context.Context, key string) error
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (models.Blob, error)
}

// UsageCounter tracks monthly text-to-speech generations per user.
type UsageCounter interface {
	Monthly(ctx context.Context, userID string, at time.Time) (int, error)
	Increment(ctx context.Context, userID string, at time.Time) (int, error)
}

func New(
	log *slog.Logger,
	recordingSaver RecordingSaver,
	recordingProvider RecordingProvider,
	uploader Uploader,
	synthesizer Synthesizer,
	usage UsageCounter,
	ttsMonthlyLimit int,
) *RecordingService {
	return &RecordingService{
		log:               log,
		recordingSaver:    recordingSaver,
		recordingProvider: recordingProvider,
		uploader:          uploader,
		synthesizer:       synthesizer,
		usage:             usage,
		ttsMonthlyLimit:   ttsMonthlyLimit,
		validate:          validator.New(),
		newID:             uuid.NewString,
		now:               time.Now,
	}
}

// Create is the single entry point turning a captured blob or a piece of
// text into a stored recording. The row is inserted only after the audio
// upload succeeded.
func (s *RecordingService) Create(ctx context.Context, ownerID string, source models.RecordingSource) (models.Recording, error) {
	const op = "service.recordings.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", ownerID),
	)

	switch src := source.(type) {
	case models.CapturedSource:
		return s.createCaptured(ctx, log, ownerID, src)
	case models.SynthesizedSource:
		return s.createSynthesized(ctx, log, ownerID, src)
	default:
		log.Warn("unknown recording source", slog.String("type", fmt.Sprintf("%T", source)))

		return models.Recording{}, fmt.Errorf("%s: unknown source: %w", op, errs.ErrValidation)
	}
}

func (s *RecordingService) createCaptured(ctx context.Context, log *slog.Logger, ownerID string, src models.CapturedSource) (models.Recording, error) {
	const op = "service.recordings.Create"

	log.Info("uploading captured audio", slog.Duration("duration", src.Blob.Duration))

	obj, err := s.uploader.Upload(ctx, src.Blob)
	if err != nil {
		log.Error("failed to upload audio", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	opts := models.NewRecording{
		Source:   models.SourceCaptured,
		Duration: src.Blob.Duration,
	}
	if title := strings.TrimSpace(src.Title); title != "" {
		opts.Title = &title
	}

	return s.CreateRecording(ctx, ownerID, obj, opts)
}

func (s *RecordingService) createSynthesized(ctx context.Context, log *slog.Logger, ownerID string, src models.SynthesizedSource) (models.Recording, error) {
	const op = "service.recordings.Create"

	text := strings.TrimSpace(src.Text)
	if text == "" || utf8.RuneCountInString(text) > synthesisMax {
		log.Warn("invalid synthesis text", slog.Int("length", len(text)))

		return models.Recording{}, fmt.Errorf("%s: text must be 1..%d characters: %w", op, synthesisMax, errs.ErrValidation)
	}

	now := s.now()

	if s.ttsMonthlyLimit > 0 {
		used, err := s.usage.Monthly(ctx, ownerID, now)
		if err != nil {
			log.Error("failed to read usage", sl.Err(err))

			return models.Recording{}, fmt.Errorf("%s: %w", op, err)
		}

		if used >= s.ttsMonthlyLimit {
			log.Warn("monthly synthesis limit reached", slog.Int("used", used), slog.Int("limit", s.ttsMonthlyLimit))

			return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrUsageLimit)
		}
	}

	log.Info("synthesizing speech")

	blob, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		log.Error("failed to synthesize speech", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w: %w", op, errs.ErrSynthesis, err)
	}

	obj, err := s.uploader.Upload(ctx, blob)
	if err != nil {
		log.Error("failed to upload speech", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	title := synthesizedTitle(text)
	rec, err := s.CreateRecording(ctx, ownerID, obj, models.NewRecording{
		Title:       &title,
		Description: &text,
		Source:      models.SourceSynthesized,
		Duration:    blob.Duration,
	})
	if err != nil {
		return models.Recording{}, err
	}

	if _, err := s.usage.Increment(ctx, ownerID, now); err != nil {
		log.Error("failed to record usage", sl.Err(err))
	}

	return rec, nil
}

// CreateRecording inserts the metadata row for an already stored object.
// Missing title and description default to "Recording N", N being the
// owner's recording count plus one.
func (s *RecordingService) CreateRecording(ctx context.Context, ownerID string, obj models.StoredObject, opts models.NewRecording) (models.Recording, error) {
	const op = "service.recordings.CreateRecording"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", ownerID),
		slog.String("key", obj.Key),
	)

	if obj.URL == "" {
		return models.Recording{}, fmt.Errorf("%s: missing audio url: %w", op, errs.ErrValidation)
	}

	rec := models.Recording{
		ID:              s.newID(),
		UserID:          ownerID,
		AudioURL:        obj.URL,
		BlobKey:         obj.Key,
		Tags:            normalizeTags(opts.Tags),
		Source:          opts.Source,
		DurationSeconds: int(opts.Duration.Round(time.Second) / time.Second),
	}
	if rec.Source == "" {
		rec.Source = models.SourceCaptured
	}
	if opts.Notes != nil {
		rec.Notes = *opts.Notes
	}
	if opts.ImageURL != nil {
		rec.ImageURL = *opts.ImageURL
	}

	if opts.Title != nil {
		title, err := s.validTitle(*opts.Title)
		if err != nil {
			log.Warn("invalid title", sl.Err(err))

			return models.Recording{}, fmt.Errorf("%s: %w", op, err)
		}
		rec.Title = title
	}
	if opts.Description != nil {
		rec.Description = *opts.Description
	}

	if opts.Title == nil || opts.Description == nil {
		count, err := s.recordingProvider.CountByOwner(ctx, ownerID)
		if err != nil {
			log.Error("failed to count recordings", sl.Err(err))

			return models.Recording{}, fmt.Errorf("%s: %w", op, err)
		}

		name := Placeholder(count + 1)
		if opts.Title == nil {
			rec.Title = name
		}
		if opts.Description == nil {
			rec.Description = name
		}
	}

	rec, err := s.recordingSaver.Save(ctx, rec)
	if err != nil {
		log.Error("failed to save recording", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w: %w", op, errs.ErrWriteToDB, err)
	}

	log.Info("recording created", slog.String("recording_id", rec.ID))

	return rec, nil
}

// UpdateField changes one owner-editable field.
func (s *RecordingService) UpdateField(ctx context.Context, ownerID, recordingID string, field models.Field, value any) (models.Recording, error) {
	const op = "service.recordings.UpdateField"

	log := s.log.With(
		slog.String("op", op),
		slog.String("recording_id", recordingID),
		slog.String("field", string(field)),
	)

	value, err := s.validField(field, value)
	if err != nil {
		log.Warn("invalid field value", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	rec, err := s.recordingSaver.UpdateField(ctx, ownerID, recordingID, field, value)
	if err != nil {
		if errors.Is(err, errs.ErrRecordingNotFound) {
			log.Warn("recording not found", sl.Err(err))

			return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}

		log.Error("failed to update recording", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (s *RecordingService) AddTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error) {
	const op = "service.recordings.AddTag"

	tag, err := validTag(tag)
	if err != nil {
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	rec, err := s.recordingSaver.AddTag(ctx, ownerID, recordingID, tag)
	if err != nil {
		s.log.Warn("failed to add tag", slog.String("op", op), slog.String("recording_id", recordingID), sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (s *RecordingService) RemoveTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error) {
	const op = "service.recordings.RemoveTag"

	tag, err := validTag(tag)
	if err != nil {
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	rec, err := s.recordingSaver.RemoveTag(ctx, ownerID, recordingID, tag)
	if err != nil {
		s.log.Warn("failed to remove tag", slog.String("op", op), slog.String("recording_id", recordingID), sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// AttachImage uploads a cover image and points the recording at it.
func (s *RecordingService) AttachImage(ctx context.Context, ownerID, recordingID string, image models.Blob) (models.Recording, error) {
	const op = "service.recordings.AttachImage"

	log := s.log.With(
		slog.String("op", op),
		slog.String("recording_id", recordingID),
	)

	if !strings.HasPrefix(image.MimeType, "image/") {
		log.Warn("not an image", slog.String("mime_type", image.MimeType))

		return models.Recording{}, fmt.Errorf("%s: %w", op, errs.ErrValidation)
	}

	if _, err := s.recordingProvider.OwnedRecording(ctx, ownerID, recordingID); err != nil {
		log.Warn("recording not available", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	obj, err := s.uploader.Upload(ctx, image)
	if err != nil {
		log.Error("failed to upload image", sl.Err(err))

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	rec, err := s.recordingSaver.UpdateField(ctx, ownerID, recordingID, models.FieldImageURL, obj.URL)
	if err != nil {
		log.Error("failed to set image url", sl.Err(err))

		_ = s.uploader.Remove(ctx, obj.Key)

		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// Recording returns a recording the user owns or that was shared with them.
func (s *RecordingService) Recording(ctx context.Context, userID, recordingID string) (models.Recording, error) {
	const op = "service.recordings.Recording"

	rec, err := s.recordingProvider.Recording(ctx, userID, recordingID)
	if err != nil {
		return models.Recording{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// List returns the user's own recordings, the ones shared with them, and every
// tag used across both.
func (s *RecordingService) List(ctx context.Context, userID string, filter models.ListFilter) (models.RecordingList, error) {
	const op = "service.recordings.List"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
	)

	if filter.Sort == "" {
		filter.Sort = models.SortRecent
	}

	own, err := s.recordingProvider.Owned(ctx, userID, filter)
	if err != nil {
		log.Error("failed to list own recordings", sl.Err(err))

		return models.RecordingList{}, fmt.Errorf("%s: %w", op, err)
	}

	shared, err := s.recordingProvider.SharedWith(ctx, userID, filter)
	if err != nil {
		log.Error("failed to list shared recordings", sl.Err(err))

		return models.RecordingList{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.RecordingList{
		Own:    own,
		Shared: shared,
		Tags:   collectTags(own, shared),
	}, nil
}

// Delete hard-deletes a recording; its shares go with it. Removing the stored
// audio is best effort.
func (s *RecordingService) Delete(ctx context.Context, ownerID, recordingID string) error {
	const op = "service.recordings.Delete"

	log := s.log.With(
		slog.String("op", op),
		slog.String("recording_id", recordingID),
	)

	rec, err := s.recordingSaver.Delete(ctx, ownerID, recordingID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordingNotFound) {
			log.Warn("recording not found", sl.Err(err))

			return fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}

		log.Error("failed to delete recording", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.uploader.Remove(ctx, rec.BlobKey); err != nil {
		log.Warn("audio left in storage", slog.String("key", rec.BlobKey), sl.Err(err))
	}

	log.Info("recording deleted")

	return nil
}

// Placeholder is the default title and description of the n-th recording.
func Placeholder(n int) string {
	return placeholder + strconv.Itoa(n)
}

func (s *RecordingService) validField(field models.Field, value any) (any, error) {
	switch field {
	case models.FieldTitle:
		v, ok := value.(string)
		if !ok {
			return nil, errs.ErrValidation
		}
		return s.validTitle(v)
	case models.FieldNotes:
		v, ok := value.(string)
		if !ok {
			return nil, errs.ErrValidation
		}
		return v, nil
	case models.FieldImageURL:
		v, ok := value.(string)
		if !ok {
			return nil, errs.ErrValidation
		}
		v = strings.TrimSpace(v)
		if err := s.validate.Var(v, "omitempty,http_url"); err != nil {
			return nil, fmt.Errorf("image url: %w", errs.ErrValidation)
		}
		return v, nil
	case models.FieldTags:
		v, ok := value.([]string)
		if !ok {
			return nil, errs.ErrValidation
		}
		tags := make([]string, 0, len(v))
		for _, t := range v {
			t, err := validTag(t)
			if err != nil {
				return nil, err
			}
			tags = append(tags, t)
		}
		return normalizeTags(tags), nil
	default:
		return nil, fmt.Errorf("field %q is not editable: %w", field, errs.ErrValidation)
	}
}

func (s *RecordingService) validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
		return "", fmt.Errorf("title must be 1..%d characters: %w", maxTitleLen, errs.ErrValidation)
	}

	return title, nil
}

func validTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || utf8.RuneCountInString(tag) > maxTagLen {
		return "", fmt.Errorf("tag must be 1..%d characters: %w", maxTagLen, errs.ErrValidation)
	}

	return tag, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

func collectTags(lists ...[]models.Recording) []string {
	seen := map[string]struct{}{}
	tags := []string{}

	for _, list := range lists {
		for _, rec := range list {
			for _, t := range rec.Tags {
				if _, ok := seen[t]; ok {
					continue
				}
				seen[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}

	sort.Strings(tags)

	return tags
}

func synthesizedTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= ttsTitleLen {
		return "TTS: " + text
	}

	return "TTS: " + string(runes[:ttsTitleLen]) + "..."
}
