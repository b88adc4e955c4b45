package summaryservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type fakeSummarizer struct {
	got     string
	summary models.Summary
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (models.Summary, error) {
	f.got = text
	return f.summary, f.err
}

type fakeRecordings map[string]models.Recording

func (f fakeRecordings) Recording(_ context.Context, userID, id string) (models.Recording, error) {
	rec, ok := f[id]
	if !ok {
		return models.Recording{}, errs.ErrRecordingNotFound
	}
	return rec, nil
}

type fakeTranscriber struct {
	calls int
	text  string
	err   error
	order *[]string
}

func (f *fakeTranscriber) Transcribe(context.Context, string, string) (string, error) {
	f.calls++
	if f.order != nil {
		*f.order = append(*f.order, "transcribe")
	}
	return f.text, f.err
}

var full = models.Summary{BulletPoints: "• milk\n• eggs", Detailed: "Buy milk and eggs at the store.", Simple: "Groceries."}

func TestSummarize(t *testing.T) {
	sum := &fakeSummarizer{summary: full}
	svc := New(sl.NewDiscardLogger(), sum, fakeRecordings{}, &fakeTranscriber{})

	got, err := svc.Summarize(context.Background(), "Buy milk and eggs")
	require.NoError(t, err)
	assert.NotEmpty(t, got.BulletPoints)
	assert.NotEmpty(t, got.Detailed)
	assert.NotEmpty(t, got.Simple)
	assert.Equal(t, "Buy milk and eggs", sum.got)
}

func TestSummarize_MissingKey(t *testing.T) {
	for name, summary := range map[string]models.Summary{
		"bulletPoints": {Detailed: "d", Simple: "s"},
		"detailed":     {BulletPoints: "b", Simple: "s"},
		"simple":       {BulletPoints: "b", Detailed: "d", Simple: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			svc := New(sl.NewDiscardLogger(), &fakeSummarizer{summary: summary}, fakeRecordings{}, &fakeTranscriber{})

			_, err := svc.Summarize(context.Background(), "Buy milk and eggs")
			require.ErrorIs(t, err, errs.ErrSummary)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestSummarize_UpstreamError(t *testing.T) {
	svc := New(sl.NewDiscardLogger(), &fakeSummarizer{err: errors.New("429")}, fakeRecordings{}, &fakeTranscriber{})

	_, err := svc.Summarize(context.Background(), "Buy milk and eggs")
	require.ErrorIs(t, err, errs.ErrSummary)
}

func TestSummarize_EmptyText(t *testing.T) {
	sum := &fakeSummarizer{summary: full}
	svc := New(sl.NewDiscardLogger(), sum, fakeRecordings{}, &fakeTranscriber{})

	_, err := svc.Summarize(context.Background(), " \n ")
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Empty(t, sum.got)
}

func TestSummarizeRecording_UsesExistingTranscript(t *testing.T) {
	sum := &fakeSummarizer{summary: full}
	tr := &fakeTranscriber{}
	recs := fakeRecordings{"rec-1": {ID: "rec-1", UserID: "user-1", Description: "Buy milk and eggs"}}
	svc := New(sl.NewDiscardLogger(), sum, recs, tr)

	_, err := svc.SummarizeRecording(context.Background(), "user-1", "rec-1")
	require.NoError(t, err)
	assert.Zero(t, tr.calls)
	assert.Equal(t, "Buy milk and eggs", sum.got)
}

func TestSummarizeRecording_TranscribesFirst(t *testing.T) {
	var order []string
	sum := &fakeSummarizer{summary: full}
	tr := &fakeTranscriber{text: "fresh transcript", order: &order}
	recs := fakeRecordings{"rec-1": {ID: "rec-1", UserID: "user-1", Description: "Recording 1"}}
	svc := New(sl.NewDiscardLogger(), sum, recs, tr)

	_, err := svc.SummarizeRecording(context.Background(), "user-1", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"transcribe"}, order)
	assert.Equal(t, "fresh transcript", sum.got)
}

func TestSummarizeRecording_TranscriptionFailureSkipsSummary(t *testing.T) {
	sum := &fakeSummarizer{summary: full}
	tr := &fakeTranscriber{err: errs.ErrTranscription}
	recs := fakeRecordings{"rec-1": {ID: "rec-1", UserID: "user-1", Description: ""}}
	svc := New(sl.NewDiscardLogger(), sum, recs, tr)

	_, err := svc.SummarizeRecording(context.Background(), "user-1", "rec-1")
	require.ErrorIs(t, err, errs.ErrTranscription)
	assert.Empty(t, sum.got)
}

func TestSummarizeRecording_SharedWithoutTranscript(t *testing.T) {
	tr := &fakeTranscriber{}
	recs := fakeRecordings{"rec-1": {ID: "rec-1", UserID: "user-1", Description: "Recording 3"}}
	svc := New(sl.NewDiscardLogger(), &fakeSummarizer{summary: full}, recs, tr)

	_, err := svc.SummarizeRecording(context.Background(), "user-2", "rec-1")
	require.ErrorIs(t, err, ErrNoTranscript)
	assert.Zero(t, tr.calls)
}

func TestSummarizeRecording_NotFound(t *testing.T) {
	svc := New(sl.NewDiscardLogger(), &fakeSummarizer{}, fakeRecordings{}, &fakeTranscriber{})

	_, err := svc.SummarizeRecording(context.Background(), "user-1", "missing")
	require.ErrorIs(t, err, errs.ErrRecordingNotFound)
}
