package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/webm")
		_, _ = w.Write([]byte("webm-bytes"))
	}))
	defer srv.Close()

	data, mime, err := New(time.Second).Fetch(context.Background(), srv.URL+"/a.webm")
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(data))
	assert.Equal(t, "audio/webm", mime)
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, err := New(time.Second).Fetch(context.Background(), srv.URL+"/missing.webm")
	require.ErrorIs(t, err, ErrFetch)
}

func TestFetch_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, _, err := New(time.Second).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrFetch)
}
