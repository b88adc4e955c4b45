package uploadservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lithammer/shortuuid/v3"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

var extensions = map[string]string{
	"audio/webm": ".webm",
	"audio/ogg":  ".ogg",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/wav":  ".wav",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStore is the blob backend recordings and images are written to.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type UploadService struct {
	log   *slog.Logger
	store ObjectStore
	newID func() string
}

func New(log *slog.Logger, store ObjectStore) *UploadService {
	return &UploadService{
		log:   log,
		store: store,
		newID: shortuuid.New,
	}
}

// Upload writes blob under a fresh key and returns where it can be fetched.
// It never touches recording metadata.
func (s *UploadService) Upload(ctx context.Context, blob models.Blob) (models.StoredObject, error) {
	const op = "service.upload.Upload"

	log := s.log.With(
		slog.String("op", op),
		slog.String("mime_type", blob.MimeType),
		slog.Int("size", len(blob.Data)),
	)

	if len(blob.Data) == 0 {
		log.Warn("empty blob")

		return models.StoredObject{}, fmt.Errorf("%s: empty blob: %w", op, errs.ErrValidation)
	}

	key := s.newID() + Extension(blob.MimeType)

	if err := s.store.Put(ctx, key, blob.Data, contentType(blob.MimeType)); err != nil {
		log.Error("failed to write blob", sl.Err(err))

		return models.StoredObject{}, fmt.Errorf("%s: %w: %w", op, errs.ErrStorageWrite, err)
	}

	log.Info("blob stored", slog.String("key", key))

	return models.StoredObject{Key: key, URL: s.store.PublicURL(key)}, nil
}

// Remove deletes a stored object. Failures are logged and reported, never retried.
func (s *UploadService) Remove(ctx context.Context, key string) error {
	const op = "service.upload.Remove"

	if key == "" {
		return nil
	}

	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete blob", slog.String("op", op), slog.String("key", key), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Extension maps a mime type (parameters ignored) to a file extension.
// Unknown audio types fall back to .webm.
func Extension(mimeType string) string {
	if ext, ok := extensions[contentType(mimeType)]; ok {
		return ext
	}

	return ".webm"
}

func contentType(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	mt = strings.TrimSpace(strings.ToLower(mt))
	if mt == "" {
		return "audio/webm"
	}

	return mt
}
