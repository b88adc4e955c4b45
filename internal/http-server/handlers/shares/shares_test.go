package sharehandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	authmiddleware "github.com/zanzhit/voicetribe/internal/http-server/middleware/auth"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type fakeSharing struct {
	result  models.ShareResult
	err     error
	email   string
	revoked string
}

func (f *fakeSharing) Share(_ context.Context, _, _, email string) (models.ShareResult, error) {
	f.email = email
	return f.result, f.err
}

func (f *fakeSharing) Shares(context.Context, string, string) ([]models.Share, error) {
	return []models.Share{{ID: "s1", RecipientEmail: "b@c.io"}}, f.err
}

func (f *fakeSharing) Revoke(_ context.Context, _, id string) error {
	f.revoked = id
	return f.err
}

func router(s *fakeSharing) http.Handler {
	h := New(sl.NewDiscardLogger(), s)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authmiddleware.WithUser(r.Context(), models.User{ID: "owner"})))
		})
	})
	r.Post("/recordings/{id}/shares", h.Share)
	r.Get("/recordings/{id}/shares", h.Shares)
	r.Delete("/shares/{id}", h.Revoke)

	return r
}

func share(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/recordings/rec-1/shares", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestShare(t *testing.T) {
	s := &fakeSharing{result: models.ShareResult{Success: true, UserExists: false, Share: models.Share{ID: "s1"}}}

	rec := share(t, router(s), `{"email":"new@person.io"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "new@person.io", s.email)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["userExists"])
}

func TestShare_Errors(t *testing.T) {
	rec := share(t, router(&fakeSharing{}), `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = share(t, router(&fakeSharing{err: errs.ErrDuplicateShare}), `{"email":"b@c.io"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = share(t, router(&fakeSharing{err: fmt.Errorf("x: %w", errs.ErrRecordingNotFound)}), `{"email":"b@c.io"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bounced := &fakeSharing{
		result: models.ShareResult{UserExists: true, Share: models.Share{ID: "s1"}},
		err:    fmt.Errorf("x: %w: smtp down", errs.ErrEmailDelivery),
	}
	rec = share(t, router(bounced), `{"email":"b@c.io"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, true, out["userExists"])
	assert.Equal(t, errs.ErrEmailDelivery.Error(), out["error"])
}

func TestSharesAndRevoke(t *testing.T) {
	s := &fakeSharing{}
	h := router(s)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recordings/rec-1/shares", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recipient_email":"b@c.io"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/shares/s9", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "s9", s.revoked)

	missing := router(&fakeSharing{err: errs.ErrShareNotFound})
	rec = httptest.NewRecorder()
	missing.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/shares/s9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
