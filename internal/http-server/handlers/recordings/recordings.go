package recordinghandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/http-server/handlers"
	authmiddleware "github.com/zanzhit/voicetribe/internal/http-server/middleware/auth"
	"github.com/zanzhit/voicetribe/internal/lib/api/response"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type RecordingHandler struct {
	log            *slog.Logger
	recordings     Recordings
	transcriber    Transcriber
	summarizer     Summarizer
	maxUploadBytes int64
}

type Recordings interface {
	Create(ctx context.Context, ownerID string, source models.RecordingSource) (models.Recording, error)
	Recording(ctx context.Context, userID, recordingID string) (models.Recording, error)
	List(ctx context.Context, userID string, filter models.ListFilter) (models.RecordingList, error)
	UpdateField(ctx context.Context, ownerID, recordingID string, field models.Field, value any) (models.Recording, error)
	AddTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error)
	RemoveTag(ctx context.Context, ownerID, recordingID, tag string) (models.Recording, error)
	AttachImage(ctx context.Context, ownerID, recordingID string, image models.Blob) (models.Recording, error)
	Delete(ctx context.Context, ownerID, recordingID string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, ownerID, recordingID string) (string, error)
	TranscribePending(ctx context.Context, ownerID string) ([]models.TranscriptionOutcome, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (models.Summary, error)
	SummarizeRecording(ctx context.Context, userID, recordingID string) (models.Summary, error)
}

func New(
	log *slog.Logger,
	recordings Recordings,
	transcriber Transcriber,
	summarizer Summarizer,
	maxUploadBytes int64,
) *RecordingHandler {
	return &RecordingHandler{
		log:            log,
		recordings:     recordings,
		transcriber:    transcriber,
		summarizer:     summarizer,
		maxUploadBytes: maxUploadBytes,
	}
}

type SynthesizeRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

type FieldRequest struct {
	Field string          `json:"field" validate:"required,oneof=title notes image_url tags"`
	Value json.RawMessage `json:"value" validate:"required"`
}

type TagRequest struct {
	Tag string `json:"tag" validate:"required,max=50"`
}

func (h *RecordingHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.List"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	filter := models.ListFilter{
		Sort: models.SortOption(r.URL.Query().Get("sort")),
		Tag:  r.URL.Query().Get("tag"),
	}
	switch filter.Sort {
	case "", models.SortRecent, models.SortOldest, models.SortAlphabetical:
	default:
		handlers.Error(w, r, http.StatusBadRequest, response.Error("sort must be one of: recent oldest alphabetical", ""))

		return
	}

	list, err := h.recordings.List(r.Context(), user.ID, filter)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to list recordings", err)

		return
	}

	render.JSON(w, r, list)
}

// Create accepts a multipart form with the encoded audio in the "audio" part
// and optional "title" and "duration" (seconds) values.
func (h *RecordingHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.Create"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	blob, ok := h.readFile(w, r, log, "audio")
	if !ok {
		return
	}

	if d := r.FormValue("duration"); d != "" {
		secs, err := strconv.ParseFloat(d, 64)
		if err != nil || secs < 0 {
			handlers.Error(w, r, http.StatusBadRequest, response.Error("field duration is not valid", ""))

			return
		}
		blob.Duration = time.Duration(secs * float64(time.Second))
	}

	rec, err := h.recordings.Create(r.Context(), user.ID, models.CapturedSource{
		Blob:  blob,
		Title: r.FormValue("title"),
	})
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to create recording", err)

		return
	}

	log.Info("recording created", slog.String("recording_id", rec.ID))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (h *RecordingHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.Synthesize"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	var req SynthesizeRequest
	if !handlers.Decode(w, r, log, &req) {
		return
	}

	rec, err := h.recordings.Create(r.Context(), user.ID, models.SynthesizedSource{Text: req.Text})
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to synthesize recording", err)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (h *RecordingHandler) Recording(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.Recording"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	rec, err := h.recordings.Recording(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to get recording", err)

		return
	}

	render.JSON(w, r, rec)
}

func (h *RecordingHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.UpdateField"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	var req FieldRequest
	if !handlers.Decode(w, r, log, &req) {
		return
	}

	value, err := fieldValue(models.Field(req.Field), req.Value)
	if err != nil {
		log.Warn("invalid field value", sl.Err(err))

		handlers.Error(w, r, http.StatusBadRequest, response.Error("field value is not valid", ""))

		return
	}

	rec, err := h.recordings.UpdateField(r.Context(), user.ID, chi.URLParam(r, "id"), models.Field(req.Field), value)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to update recording", err)

		return
	}

	render.JSON(w, r, rec)
}

func (h *RecordingHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.AddTag"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	var req TagRequest
	if !handlers.Decode(w, r, log, &req) {
		return
	}

	rec, err := h.recordings.AddTag(r.Context(), user.ID, chi.URLParam(r, "id"), req.Tag)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to add tag", err)

		return
	}

	render.JSON(w, r, rec)
}

func (h *RecordingHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.RemoveTag"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	rec, err := h.recordings.RemoveTag(r.Context(), user.ID, chi.URLParam(r, "id"), chi.URLParam(r, "tag"))
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to remove tag", err)

		return
	}

	render.JSON(w, r, rec)
}

// AttachImage accepts a multipart form with the picture in the "image" part.
func (h *RecordingHandler) AttachImage(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.AttachImage"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	blob, ok := h.readFile(w, r, log, "image")
	if !ok {
		return
	}

	rec, err := h.recordings.AttachImage(r.Context(), user.ID, chi.URLParam(r, "id"), blob)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to attach image", err)

		return
	}

	render.JSON(w, r, rec)
}

func (h *RecordingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.Delete"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	if err := h.recordings.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handlers.ServiceError(w, r, log, "failed to delete recording", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordingHandler) begin(w http.ResponseWriter, r *http.Request, op string) (*slog.Logger, models.User, bool) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := authmiddleware.UserFromContext(r.Context())
	if !ok {
		log.Error("no user in request context")

		handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", ""))

		return log, models.User{}, false
	}

	return log.With(slog.String("user_id", user.ID)), user, true
}

func (h *RecordingHandler) readFile(w http.ResponseWriter, r *http.Request, log *slog.Logger, part string) (models.Blob, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.Error(w, r, http.StatusRequestEntityTooLarge, response.Error("upload too large", ""))

			return models.Blob{}, false
		}

		log.Error("failed to parse multipart form", sl.Err(err))

		handlers.Error(w, r, http.StatusBadRequest, response.Error("invalid multipart form", ""))

		return models.Blob{}, false
	}

	file, header, err := r.FormFile(part)
	if err != nil {
		handlers.Error(w, r, http.StatusBadRequest, response.Error("field "+part+" is a required field", ""))

		return models.Blob{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("failed to read upload", sl.Err(err))

		handlers.Error(w, r, http.StatusBadRequest, response.Error("failed to read upload", middleware.GetReqID(r.Context())))

		return models.Blob{}, false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	return models.Blob{Data: data, MimeType: mimeType}, true
}

func fieldValue(field models.Field, raw json.RawMessage) (any, error) {
	if field == models.FieldTags {
		var tags []string
		if err := json.Unmarshal(raw, &tags); err != nil {
			return nil, err
		}

		return tags, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	return s, nil
}
