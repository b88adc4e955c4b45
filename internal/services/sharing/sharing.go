package sharingservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type SharingService struct {
	log               *slog.Logger
	recordingProvider RecordingProvider
	userProvider      UserProvider
	shareSaver        ShareSaver
	shareProvider     ShareProvider
	mailer            Mailer
	validate          *validator.Validate
	newID             func() string
	now               func() time.Time
}

type RecordingProvider interface {
	OwnedRecording(ctx context.Context, ownerID, recordingID string) (models.Recording, error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

type ShareSaver interface {
	Save(ctx context.Context, share models.Share) (models.Share, error)
	ResolvePending(ctx context.Context, email, userID string) (int64, error)
	Delete(ctx context.Context, ownerID, shareID string) error
}

type ShareProvider interface {
	Resolved(ctx context.Context, recordingID, userID string) (bool, error)
	Pending(ctx context.Context, recordingID, email string) (models.Share, error)
	ByRecording(ctx context.Context, recordingID string) ([]models.Share, error)
}

type Mailer interface {
	SendShared(ctx context.Context, inv models.Invite) error
	SendInvite(ctx context.Context, inv models.Invite) error
}

func New(
	log *slog.Logger,
	recordingProvider RecordingProvider,
	userProvider UserProvider,
	shareSaver ShareSaver,
	shareProvider ShareProvider,
	mailer Mailer,
) *SharingService {
	return &SharingService{
		log:               log,
		recordingProvider: recordingProvider,
		userProvider:      userProvider,
		shareSaver:        shareSaver,
		shareProvider:     shareProvider,
		mailer:            mailer,
		validate:          validator.New(),
		newID:             uuid.NewString,
		now:               time.Now,
	}
}

// Share grants the recipient read access to an owned recording and emails them.
// A known recipient gets a resolved share at once; an unknown one gets a
// pending share, resolved when they sign up with that address. The share row
// is kept even when the email cannot be delivered.
func (s *SharingService) Share(ctx context.Context, recordingID, sharedByID, email string) (models.ShareResult, error) {
	const op = "service.sharing.Share"

	email = strings.ToLower(strings.TrimSpace(email))

	log := s.log.With(
		slog.String("op", op),
		slog.String("recording_id", recordingID),
		slog.String("email", email),
	)

	if err := s.validate.Var(email, "required,email"); err != nil {
		log.Warn("invalid recipient email", sl.Err(err))

		return models.ShareResult{}, fmt.Errorf("%s: recipient email: %w", op, errs.ErrValidation)
	}

	rec, err := s.recordingProvider.OwnedRecording(ctx, sharedByID, recordingID)
	if err != nil {
		log.Warn("recording not available", sl.Err(err))

		return models.ShareResult{}, fmt.Errorf("%s: %w", op, err)
	}

	inv := models.Invite{
		To:             email,
		RecordingID:    rec.ID,
		RecordingTitle: rec.Title,
		SharedByID:     sharedByID,
	}
	if sharer, err := s.userProvider.UserByID(ctx, sharedByID); err == nil {
		inv.SharedByEmail = sharer.Email
	}

	recipient, err := s.userProvider.User(ctx, email)
	switch {
	case err == nil:
		return s.shareResolved(ctx, log, rec, recipient, inv)
	case errors.Is(err, errs.ErrUserNotFound):
		return s.sharePending(ctx, log, rec, inv)
	default:
		log.Error("failed to look up recipient", sl.Err(err))

		return models.ShareResult{}, fmt.Errorf("%s: %w", op, err)
	}
}

func (s *SharingService) shareResolved(ctx context.Context, log *slog.Logger, rec models.Recording, recipient models.User, inv models.Invite) (models.ShareResult, error) {
	const op = "service.sharing.Share"

	if recipient.ID == inv.SharedByID {
		log.Warn("cannot share with yourself")

		return models.ShareResult{}, fmt.Errorf("%s: cannot share with yourself: %w", op, errs.ErrValidation)
	}

	exists, err := s.shareProvider.Resolved(ctx, rec.ID, recipient.ID)
	if err != nil {
		log.Error("failed to check existing share", sl.Err(err))

		return models.ShareResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if exists {
		log.Warn("recording already shared with user")

		return models.ShareResult{UserExists: true}, fmt.Errorf("%s: %w", op, errs.ErrDuplicateShare)
	}

	share, err := s.shareSaver.Save(ctx, models.Share{
		ID:             s.newID(),
		RecordingID:    rec.ID,
		SharedByID:     inv.SharedByID,
		SharedWithID:   sql.NullString{String: recipient.ID, Valid: true},
		RecipientEmail: inv.To,
		ResolvedAt:     sql.NullTime{Time: s.now(), Valid: true},
	})
	if err != nil {
		log.Error("failed to save share", sl.Err(err))

		return models.ShareResult{UserExists: true}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("recording shared", slog.String("share_id", share.ID))

	result := models.ShareResult{UserExists: true, Share: share}

	if err := s.mailer.SendShared(ctx, inv); err != nil {
		log.Error("failed to send share notification", sl.Err(err))

		return result, fmt.Errorf("%s: %w: %w", op, errs.ErrEmailDelivery, err)
	}

	result.Success = true

	return result, nil
}

func (s *SharingService) sharePending(ctx context.Context, log *slog.Logger, rec models.Recording, inv models.Invite) (models.ShareResult, error) {
	const op = "service.sharing.Share"

	share, err := s.shareProvider.Pending(ctx, rec.ID, inv.To)
	switch {
	case err == nil:
		log.Info("resending invite for pending share", slog.String("share_id", share.ID))
	case errors.Is(err, errs.ErrShareNotFound):
		share, err = s.shareSaver.Save(ctx, models.Share{
			ID:             s.newID(),
			RecordingID:    rec.ID,
			SharedByID:     inv.SharedByID,
			RecipientEmail: inv.To,
		})
		if err != nil {
			log.Error("failed to save pending share", sl.Err(err))

			return models.ShareResult{}, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("pending share created", slog.String("share_id", share.ID))
	default:
		log.Error("failed to look up pending share", sl.Err(err))

		return models.ShareResult{}, fmt.Errorf("%s: %w", op, err)
	}

	result := models.ShareResult{Share: share}

	if err := s.mailer.SendInvite(ctx, inv); err != nil {
		log.Error("failed to send invite", sl.Err(err))

		return result, fmt.Errorf("%s: %w: %w", op, errs.ErrEmailDelivery, err)
	}

	result.Success = true

	return result, nil
}

// ResolvePending backfills the recipient of every pending share addressed to
// email. It runs when an account for that address is created.
func (s *SharingService) ResolvePending(ctx context.Context, email, userID string) (int64, error) {
	const op = "service.sharing.ResolvePending"

	email = strings.ToLower(strings.TrimSpace(email))

	n, err := s.shareSaver.ResolvePending(ctx, email, userID)
	if err != nil {
		s.log.Error("failed to resolve pending shares", slog.String("op", op), slog.String("email", email), sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// Shares lists every share of an owned recording, pending ones included.
func (s *SharingService) Shares(ctx context.Context, ownerID, recordingID string) ([]models.Share, error) {
	const op = "service.sharing.Shares"

	if _, err := s.recordingProvider.OwnedRecording(ctx, ownerID, recordingID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	shares, err := s.shareProvider.ByRecording(ctx, recordingID)
	if err != nil {
		s.log.Error("failed to list shares", slog.String("op", op), slog.String("recording_id", recordingID), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return shares, nil
}

func (s *SharingService) Revoke(ctx context.Context, ownerID, shareID string) error {
	const op = "service.sharing.Revoke"

	if err := s.shareSaver.Delete(ctx, ownerID, shareID); err != nil {
		s.log.Warn("failed to revoke share", slog.String("op", op), slog.String("share_id", shareID), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
