package filehandler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zanzhit/voicetribe/internal/http-server/handlers"
	"github.com/zanzhit/voicetribe/internal/lib/api/response"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
	localstore "github.com/zanzhit/voicetribe/internal/storage/objects/local"
)

// Opener reads objects kept on the server's disk.
type Opener interface {
	Open(ctx context.Context, key string) (*os.File, error)
}

// Signer issues short-lived URLs for objects in a private bucket.
type Signer interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type FileHandler struct {
	log    *slog.Logger
	opener Opener
	signer Signer
	ttl    time.Duration
}

// NewLocal serves objects straight from disk.
func NewLocal(log *slog.Logger, opener Opener) *FileHandler {
	return &FileHandler{log: log, opener: opener}
}

// NewPresigned redirects every request to a presigned bucket URL.
func NewPresigned(log *slog.Logger, signer Signer, ttl time.Duration) *FileHandler {
	return &FileHandler{log: log, signer: signer, ttl: ttl}
}

func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.files.Serve"

	key := chi.URLParam(r, "*")

	log := h.log.With(
		slog.String("op", op),
		slog.String("key", key),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.signer != nil {
		url, err := h.signer.PresignedURL(r.Context(), key, h.ttl)
		if err != nil {
			log.Error("failed to presign object", sl.Err(err))

			handlers.Error(w, r, http.StatusBadGateway, response.Error("object unavailable", middleware.GetReqID(r.Context())))

			return
		}

		http.Redirect(w, r, url, http.StatusFound)

		return
	}

	f, err := h.opener.Open(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, localstore.ErrInvalidKey):
			handlers.Error(w, r, http.StatusNotFound, response.Error("object not found", ""))
		default:
			log.Error("failed to open object", sl.Err(err))

			handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to open object", middleware.GetReqID(r.Context())))
		}

		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		handlers.Error(w, r, http.StatusNotFound, response.Error("object not found", ""))

		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
