package transcriptionservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var placeholderRe = regexp.MustCompile(`^Recording [0-9]+$`)

var ErrEmptyTranscript = errors.New("empty transcript")

// callTimeout bounds one shared fetch, transcribe and store round.
const callTimeout = 5 * time.Minute

type TranscriptionService struct {
	log               *slog.Logger
	recordingProvider RecordingProvider
	descriptionWriter DescriptionWriter
	fetcher           AudioFetcher
	transcriber       Transcriber
	workers           int
	timeout           time.Duration
	inflight          singleflight.Group
}

type RecordingProvider interface {
	OwnedRecording(ctx context.Context, ownerID, recordingID string) (models.Recording, error)
	Owned(ctx context.Context, ownerID string, filter models.ListFilter) ([]models.Recording, error)
}

type DescriptionWriter interface {
	UpdateDescription(ctx context.Context, ownerID, recordingID, description string) error
}

type AudioFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

func New(
	log *slog.Logger,
	recordingProvider RecordingProvider,
	descriptionWriter DescriptionWriter,
	fetcher AudioFetcher,
	transcriber Transcriber,
	workers int,
) *TranscriptionService {
	if workers < 1 {
		workers = 1
	}

	return &TranscriptionService{
		log:               log,
		recordingProvider: recordingProvider,
		descriptionWriter: descriptionWriter,
		fetcher:           fetcher,
		transcriber:       transcriber,
		workers:           workers,
		timeout:           callTimeout,
	}
}

// NeedsTranscription reports whether description is still empty or an
// auto-generated "Recording N" placeholder.
func NeedsTranscription(description string) bool {
	description = strings.TrimSpace(description)

	return description == "" || placeholderRe.MatchString(description)
}

// Transcribe fetches the recording's audio, converts it to text and stores the
// text as the description. On failure the description is left as it was.
// Concurrent calls for the same recording share one upstream request.
func (s *TranscriptionService) Transcribe(ctx context.Context, ownerID, recordingID string) (string, error) {
	const op = "service.transcription.Transcribe"

	// The shared call is detached from every caller's ctx; callTimeout bounds it.
	ch := s.inflight.DoChan(ownerID+"/"+recordingID, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		return s.transcribe(callCtx, ownerID, recordingID)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.log.Debug("joined in-flight transcription", slog.String("op", op), slog.String("recording_id", recordingID))
		}
		if res.Err != nil {
			return "", fmt.Errorf("%s: %w", op, res.Err)
		}

		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

func (s *TranscriptionService) transcribe(ctx context.Context, ownerID, recordingID string) (string, error) {
	const op = "service.transcription.transcribe"

	log := s.log.With(
		slog.String("op", op),
		slog.String("recording_id", recordingID),
	)

	rec, err := s.recordingProvider.OwnedRecording(ctx, ownerID, recordingID)
	if err != nil {
		log.Warn("recording not available", sl.Err(err))

		return "", err
	}

	log.Info("fetching audio")

	audio, mimeType, err := s.fetcher.Fetch(ctx, rec.AudioURL)
	if err != nil {
		log.Error("failed to fetch audio", sl.Err(err))

		return "", fmt.Errorf("%w: %w", errs.ErrTranscription, err)
	}

	text, err := s.transcriber.Transcribe(ctx, audio, audioType(mimeType, rec.BlobKey))
	if err != nil {
		log.Error("speech-to-text failed", sl.Err(err))

		return "", fmt.Errorf("%w: %w", errs.ErrTranscription, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		log.Warn("speech-to-text returned no text")

		return "", fmt.Errorf("%w: %w", errs.ErrTranscription, ErrEmptyTranscript)
	}

	if err := s.descriptionWriter.UpdateDescription(ctx, ownerID, recordingID, text); err != nil {
		log.Error("failed to store transcript", sl.Err(err))

		return "", err
	}

	log.Info("recording transcribed", slog.Int("length", len(text)))

	return text, nil
}

// TranscribePending transcribes every owned recording that still needs it.
// One failure does not stop the others; each outcome is reported separately.
func (s *TranscriptionService) TranscribePending(ctx context.Context, ownerID string) ([]models.TranscriptionOutcome, error) {
	const op = "service.transcription.TranscribePending"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", ownerID),
	)

	recs, err := s.recordingProvider.Owned(ctx, ownerID, models.ListFilter{Sort: models.SortOldest})
	if err != nil {
		log.Error("failed to list recordings", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var pending []models.Recording
	for _, rec := range recs {
		if NeedsTranscription(rec.Description) {
			pending = append(pending, rec)
		}
	}

	log.Info("transcribing pending recordings", slog.Int("count", len(pending)))

	outcomes := make([]models.TranscriptionOutcome, len(pending))

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, rec := range pending {
		g.Go(func() error {
			outcomes[i].RecordingID = rec.ID

			text, err := s.Transcribe(ctx, ownerID, rec.ID)
			if err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}

			outcomes[i].Text = text
			return nil
		})
	}

	_ = g.Wait()

	return outcomes, nil
}

func audioType(mimeType, key string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	if strings.HasPrefix(mt, "audio/") {
		return mimeType
	}

	switch path.Ext(key) {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "audio/webm"
	}
}
