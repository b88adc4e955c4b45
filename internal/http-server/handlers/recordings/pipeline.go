package recordinghandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/zanzhit/voicetribe/internal/http-server/handlers"
)

type SummaryRequest struct {
	Transcription string `json:"transcription" validate:"required"`
}

func (h *RecordingHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.Transcribe"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to transcribe recording", err)

		return
	}

	render.JSON(w, r, map[string]string{"text": text})
}

func (h *RecordingHandler) TranscribePending(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.TranscribePending"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	outcomes, err := h.transcriber.TranscribePending(r.Context(), user.ID)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to transcribe pending recordings", err)

		return
	}

	render.JSON(w, r, map[string]any{"results": outcomes})
}

func (h *RecordingHandler) SummarizeRecording(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.SummarizeRecording"

	log, user, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	summary, err := h.summarizer.SummarizeRecording(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to summarize recording", err)

		return
	}

	render.JSON(w, r, summary)
}

// Summarize produces the three summaries for an arbitrary transcription.
func (h *RecordingHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recordings.Summarize"

	log, _, ok := h.begin(w, r, op)
	if !ok {
		return
	}

	var req SummaryRequest
	if !handlers.Decode(w, r, log, &req) {
		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), req.Transcription)
	if err != nil {
		handlers.ServiceError(w, r, log, "failed to summarize transcription", err)

		return
	}

	render.JSON(w, r, summary)
}
