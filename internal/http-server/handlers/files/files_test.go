package filehandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/voicetribe/internal/lib/sl"
	localstore "github.com/zanzhit/voicetribe/internal/storage/objects/local"
)

func get(h *FileHandler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/files/*", h.Serve)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func TestServe_Local(t *testing.T) {
	store, err := localstore.New(t.TempDir(), "http://localhost/files")
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "abc.webm", []byte("audio-bytes"), "audio/webm"))

	h := NewLocal(sl.NewDiscardLogger(), store)

	rec := get(h, "/files/abc.webm")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio-bytes", rec.Body.String())

	rec = get(h, "/files/missing.webm")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(h, "/files/tmp")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeSigner struct {
	err error
	ttl time.Duration
}

func (f *fakeSigner) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.ttl = ttl
	return "https://bucket.example.com/" + key + "?sig=1", f.err
}

func TestServe_Presigned(t *testing.T) {
	signer := &fakeSigner{}
	rec := get(NewPresigned(sl.NewDiscardLogger(), signer, 5*time.Minute), "/files/abc.webm")

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://bucket.example.com/abc.webm?sig=1", rec.Header().Get("Location"))
	assert.Equal(t, 5*time.Minute, signer.ttl)

	rec = get(NewPresigned(sl.NewDiscardLogger(), &fakeSigner{err: errors.New("no creds")}, time.Minute), "/files/abc.webm")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
