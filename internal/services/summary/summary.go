package summaryservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
	transcriptionservice "github.com/zanzhit/voicetribe/internal/services/transcription"
)

var ErrNoTranscript = errors.New("recording has no transcript")

type SummaryService struct {
	log               *slog.Logger
	summarizer        Summarizer
	recordingProvider RecordingProvider
	transcriber       Transcriber
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (models.Summary, error)
}

type RecordingProvider interface {
	Recording(ctx context.Context, userID, recordingID string) (models.Recording, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, ownerID, recordingID string) (string, error)
}

func New(log *slog.Logger, summarizer Summarizer, recordingProvider RecordingProvider, transcriber Transcriber) *SummaryService {
	return &SummaryService{
		log:               log,
		summarizer:        summarizer,
		recordingProvider: recordingProvider,
		transcriber:       transcriber,
	}
}

// Summarize returns the bullet, detailed and simple variants of text. All
// three must be present or the whole result is rejected.
func (s *SummaryService) Summarize(ctx context.Context, text string) (models.Summary, error) {
	const op = "service.summary.Summarize"

	log := s.log.With(
		slog.String("op", op),
		slog.Int("length", len(text)),
	)

	text = strings.TrimSpace(text)
	if text == "" {
		log.Warn("empty transcription")

		return models.Summary{}, fmt.Errorf("%s: empty transcription: %w", op, errs.ErrValidation)
	}

	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		log.Error("summarization failed", sl.Err(err))

		return models.Summary{}, fmt.Errorf("%s: %w: %w", op, errs.ErrSummary, err)
	}

	if missing := missingKeys(summary); len(missing) > 0 {
		log.Error("incomplete summary", slog.Any("missing", missing))

		return models.Summary{}, fmt.Errorf("%s: missing %s: %w", op, strings.Join(missing, ", "), errs.ErrSummary)
	}

	return summary, nil
}

// SummarizeRecording summarizes a recording's transcript, transcribing it
// first when it only carries a placeholder. Only the owner can trigger that
// transcription.
func (s *SummaryService) SummarizeRecording(ctx context.Context, userID, recordingID string) (models.Summary, error) {
	const op = "service.summary.SummarizeRecording"

	log := s.log.With(
		slog.String("op", op),
		slog.String("recording_id", recordingID),
	)

	rec, err := s.recordingProvider.Recording(ctx, userID, recordingID)
	if err != nil {
		log.Warn("recording not available", sl.Err(err))

		return models.Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	text := rec.Description
	if transcriptionservice.NeedsTranscription(text) {
		if rec.UserID != userID {
			return models.Summary{}, fmt.Errorf("%s: %w: %w", op, ErrNoTranscript, errs.ErrValidation)
		}

		log.Info("transcribing before summary")

		text, err = s.transcriber.Transcribe(ctx, userID, recordingID)
		if err != nil {
			return models.Summary{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	summary, err := s.Summarize(ctx, text)
	if err != nil {
		return models.Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	return summary, nil
}

func missingKeys(s models.Summary) []string {
	var missing []string

	if strings.TrimSpace(s.BulletPoints) == "" {
		missing = append(missing, "bulletPoints")
	}
	if strings.TrimSpace(s.Detailed) == "" {
		missing = append(missing, "detailed")
	}
	if strings.TrimSpace(s.Simple) == "" {
		missing = append(missing, "simple")
	}

	return missing
}
