package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zanzhit/voicetribe/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.OpenAI{
		APIKey:             "test-key",
		BaseURL:            srv.URL + "/",
		TranscriptionModel: "whisper-1",
		SummaryModel:       "gpt-4o-mini",
		SpeechModel:        "tts-1",
		Voice:              "alloy",
	})
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestTranscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "audio-bytes", string(data))
		assert.Equal(t, "recording.webm", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Buy milk and eggs"}`))
	})

	text, err := c.Transcribe(context.Background(), []byte("audio-bytes"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk and eggs", text)
}

func TestTranscribe_UpstreamErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := c.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSummarize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "Generate three summaries for this transcription: Buy milk and eggs",
			msgs[1].(map[string]any)["content"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(
			`{"bulletPoints":["Buy milk","Buy eggs"],"detailed":"The speaker needs milk and eggs.","simple":"Groceries."}`,
		))
	})

	summary, err := c.Summarize(context.Background(), "Buy milk and eggs")
	require.NoError(t, err)
	assert.Equal(t, "• Buy milk\n• Buy eggs", summary.BulletPoints)
	assert.Equal(t, "The speaker needs milk and eggs.", summary.Detailed)
	assert.Equal(t, "Groceries.", summary.Simple)
}

func TestSummarize_MissingKeyComesBackEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"detailed":"d","simple":"s"}`))
	})

	summary, err := c.Summarize(context.Background(), "text")
	require.NoError(t, err)
	assert.Empty(t, summary.BulletPoints)
}

func TestSummarize_NotJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`sorry, I can't`))
	})

	_, err := c.Summarize(context.Background(), "text")
	require.Error(t, err)
}

func TestSynthesize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello there", body["input"])
		assert.Equal(t, "alloy", body["voice"])
		assert.Equal(t, "mp3", body["response_format"])

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3mp3data"))
	})

	blob, err := c.Synthesize(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", blob.MimeType)
	assert.Equal(t, []byte("ID3mp3data"), blob.Data)
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "x", flatten(json.RawMessage(`"  x "`), "- "))
	assert.Equal(t, "- a\n- b", flatten(json.RawMessage(`["a"," ","b"]`), "- "))
	assert.Equal(t, "", flatten(json.RawMessage(`42`), "- "))
	assert.Equal(t, "", flatten(nil, "- "))
}
