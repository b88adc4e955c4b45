package sharehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/http-server/handlers"
	authmiddleware "github.com/zanzhit/voicetribe/internal/http-server/middleware/auth"
	"github.com/zanzhit/voicetribe/internal/lib/api/response"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type ShareHandler struct {
	log     *slog.Logger
	sharing Sharing
}

type Sharing interface {
	Share(ctx context.Context, recordingID, sharedByID, email string) (models.ShareResult, error)
	Shares(ctx context.Context, ownerID, recordingID string) ([]models.Share, error)
	Revoke(ctx context.Context, ownerID, shareID string) error
}

func New(log *slog.Logger, sharing Sharing) *ShareHandler {
	return &ShareHandler{
		log:     log,
		sharing: sharing,
	}
}

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	models.ShareResult
	response.Response
}

func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.shares.Share"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := authmiddleware.UserFromContext(r.Context())
	if !ok {
		handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", ""))

		return
	}

	var req Request
	if !handlers.Decode(w, r, log, &req) {
		return
	}

	result, err := h.sharing.Share(r.Context(), chi.URLParam(r, "id"), user.ID, req.Email)
	if err != nil {
		// The share row exists even when the email bounced; the client still
		// gets the result so it can tell the user.
		if errors.Is(err, errs.ErrEmailDelivery) {
			log.Error("share saved but email not delivered", sl.Err(err))

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, Response{
				ShareResult: result,
				Response:    response.Error(errs.ErrEmailDelivery.Error(), middleware.GetReqID(r.Context())),
			})

			return
		}

		handlers.ServiceError(w, r, log, "failed to share recording", err)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{ShareResult: result})
}

func (h *ShareHandler) Shares(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.shares.Shares"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := authmiddleware.UserFromContext(r.Context())
	if !ok {
		handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", ""))

		return
	}

	shares, err := h.sharing.Shares(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to list shares", err)

		return
	}

	render.JSON(w, r, map[string]any{"shares": shares})
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.shares.Revoke"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := authmiddleware.UserFromContext(r.Context())
	if !ok {
		handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", ""))

		return
	}

	if err := h.sharing.Revoke(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handlers.ServiceError(w, r, log, "failed to revoke share", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
