package authhandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/voicetribe/internal/http-server/handlers"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AuthHandler struct {
	log  *slog.Logger
	user User
}

type User interface {
	Login(ctx context.Context, email, password string) (string, error)
	RegisterNewUser(ctx context.Context, email, password string) (string, error)
}

func New(
	log *slog.Logger,
	user User,
) *AuthHandler {
	return &AuthHandler{
		log:  log,
		user: user,
	}
}

func (h *AuthHandler) RegisterNewUser(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if !handlers.Decode(w, r, log, &req) {
		return
	}

	log.Info("request body decoded", slog.String("email", req.Email))

	id, err := h.user.RegisterNewUser(r.Context(), req.Email, req.Password)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to register new user", err)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"id": id})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if !handlers.Decode(w, r, log, &req) {
		return
	}

	log.Info("request body decoded", slog.String("email", req.Email))

	token, err := h.user.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to login", err)

		return
	}

	render.JSON(w, r, map[string]string{"token": token})
}
