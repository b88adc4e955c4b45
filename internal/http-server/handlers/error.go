package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/lib/api/response"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

var validate = validator.New()

func Error(w http.ResponseWriter, r *http.Request, statusCode int, err response.Response) {
	render.Status(r, statusCode)
	render.JSON(w, r, err)
}

var statuses = []struct {
	err    error
	status int
}{
	{errs.ErrRecordingNotFound, http.StatusNotFound},
	{errs.ErrShareNotFound, http.StatusNotFound},
	{errs.ErrUserNotFound, http.StatusNotFound},
	{errs.ErrInvalidCredentials, http.StatusUnauthorized},
	{errs.ErrUserExists, http.StatusConflict},
	{errs.ErrDuplicateShare, http.StatusConflict},
	{errs.ErrConflict, http.StatusConflict},
	{errs.ErrUsageLimit, http.StatusForbidden},
	{errs.ErrTranscription, http.StatusBadGateway},
	{errs.ErrSummary, http.StatusBadGateway},
	{errs.ErrSynthesis, http.StatusBadGateway},
	{errs.ErrEmailDelivery, http.StatusBadGateway},
	{errs.ErrStorageWrite, http.StatusBadGateway},
}

// Status maps a domain error to the HTTP status and message shown to clients.
// Only validation errors carry their detail; unknown errors are reported as
// 500 with a generic message.
func Status(err error) (int, string) {
	if errors.Is(err, errs.ErrValidation) {
		return http.StatusBadRequest, stripOps(err.Error())
	}

	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}

	return http.StatusInternalServerError, "internal error"
}

// stripOps drops the leading "pkg.op.Name: " prefixes added while wrapping.
func stripOps(msg string) string {
	for {
		head, rest, ok := strings.Cut(msg, ": ")
		if !ok || strings.ContainsAny(head, " ") || !strings.Contains(head, ".") {
			return msg
		}
		msg = rest
	}
}

// ServiceError logs server-side failures and writes the mapped response.
func ServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	status, text := Status(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, sl.Err(err))
	} else {
		log.Info(msg, sl.Err(err))
	}

	Error(w, r, status, response.Error(text, middleware.GetReqID(r.Context())))
}

// Decode reads a JSON body into req and validates it. It writes the error
// response itself and returns false when the request cannot be served.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, req any) bool {
	err := render.DecodeJSON(r.Body, req)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Error("request body is empty")

			Error(w, r, http.StatusBadRequest, response.Error("empty request", ""))

			return false
		}

		log.Error("failed to decode request body", sl.Err(err))

		Error(w, r, http.StatusBadRequest, response.Error("failed to decode request", middleware.GetReqID(r.Context())))

		return false
	}

	if err := validate.Struct(req); err != nil {
		var validateErr validator.ValidationErrors
		if !errors.As(err, &validateErr) {
			Error(w, r, http.StatusBadRequest, response.Error("invalid request", ""))

			return false
		}

		log.Error("invalid request", sl.Err(err))

		Error(w, r, http.StatusBadRequest, response.ValidationError(validateErr))

		return false
	}

	return true
}
