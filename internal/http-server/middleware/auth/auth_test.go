package authmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/jwt"
)

func TestJWTAuth(t *testing.T) {
	const secret = "secret"

	var got models.User
	h := JWTAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		got = u
	}))

	token, err := jwt.NewToken(models.User{ID: "u1", Email: "a@b.io"}, time.Hour, secret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "a@b.io", got.Email)
}

func TestJWTAuth_Rejects(t *testing.T) {
	h := JWTAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not be called")
	}))

	expired, err := jwt.NewToken(models.User{ID: "u1"}, -time.Minute, "secret")
	require.NoError(t, err)
	foreign, err := jwt.NewToken(models.User{ID: "u1"}, time.Hour, "other")
	require.NoError(t, err)

	for _, header := range []string{"", "Token abc", "Bearer garbage", "Bearer " + expired, "Bearer " + foreign} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}
