package authhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type fakeUser struct {
	registerErr error
	loginErr    error
	email       string
}

func (f *fakeUser) Login(_ context.Context, email, _ string) (string, error) {
	f.email = email
	return "token", f.loginErr
}

func (f *fakeUser) RegisterNewUser(_ context.Context, email, _ string) (string, error) {
	f.email = email
	return "user-1", f.registerErr
}

func do(t *testing.T, fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)

	return rec
}

func TestRegisterNewUser(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "created", body: `{"email":"a@b.io","password":"password1"}`, status: http.StatusCreated},
		{name: "empty body", body: ``, status: http.StatusBadRequest},
		{name: "bad email", body: `{"email":"nope","password":"password1"}`, status: http.StatusBadRequest},
		{name: "short password", body: `{"email":"a@b.io","password":"short"}`, status: http.StatusBadRequest},
		{name: "exists", body: `{"email":"a@b.io","password":"password1"}`, err: errs.ErrUserExists, status: http.StatusConflict},
		{name: "internal", body: `{"email":"a@b.io","password":"password1"}`, err: fmt.Errorf("db: boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(sl.NewDiscardLogger(), &fakeUser{registerErr: tt.err})

			rec := do(t, h.RegisterNewUser, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusCreated {
				var out map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
				assert.Equal(t, "user-1", out["id"])
			}
		})
	}
}

func TestLogin(t *testing.T) {
	user := &fakeUser{}
	h := New(sl.NewDiscardLogger(), user)

	rec := do(t, h.Login, `{"email":"a@b.io","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "token", out["token"])
	assert.Equal(t, "a@b.io", user.email)

	h = New(sl.NewDiscardLogger(), &fakeUser{loginErr: fmt.Errorf("auth: %w", errs.ErrInvalidCredentials)})
	rec = do(t, h.Login, `{"email":"a@b.io","password":"password1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
