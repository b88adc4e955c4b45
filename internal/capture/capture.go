// Package capture drives a single microphone capture session at a time.
//
// A session moves Idle -> Recording -> (Paused <-> Recording) -> Stopped.
// Cancel returns any non-Idle session to Idle and drops what was captured.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Device acquires the microphone. Open fails when access is denied or no
// input device exists.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open microphone. Chunks delivers encoded audio in capture
// order; Close flushes pending audio, closes the chunk channel and releases
// the device.
type Stream interface {
	Chunks() <-chan []byte
	Pause() error
	Resume() error
	Close() error
}

// Ticker drives the elapsed-time counter.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Option func(*Recorder)

// WithMimeType sets the mime type reported on finished blobs.
func WithMimeType(mimeType string) Option {
	return func(r *Recorder) { r.mimeType = mimeType }
}

// WithTicker replaces the one-second ticker.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(r *Recorder) { r.newTicker = newTicker }
}

type Recorder struct {
	log       *slog.Logger
	device    Device
	mimeType  string
	newTicker func(time.Duration) Ticker

	mu      sync.Mutex
	state   State
	closing bool
	elapsed time.Duration
	sess    *session
}

type session struct {
	stream    Stream
	chunks    [][]byte
	collected chan struct{}
	stopTick  chan struct{}
	tickDone  chan struct{}
}

func New(log *slog.Logger, device Device, opts ...Option) *Recorder {
	r := &Recorder{
		log:       log,
		device:    device,
		mimeType:  "audio/webm",
		newTicker: newTimeTicker,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start opens the device and begins a new session. A session that is
// already recording or paused is left untouched and ErrSessionActive is
// returned.
func (r *Recorder) Start(ctx context.Context) error {
	const op = "capture.Start"

	log := r.log.With(slog.String("op", op))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active() {
		log.Warn("capture session already active", slog.String("state", r.state.String()))

		return fmt.Errorf("%s: %w", op, errs.ErrSessionActive)
	}

	stream, err := r.device.Open(ctx)
	if err != nil {
		log.Error("failed to open microphone", sl.Err(err))

		return fmt.Errorf("%s: %w: %w", op, errs.ErrPermissionDenied, err)
	}

	sess := &session{
		stream:    stream,
		collected: make(chan struct{}),
		stopTick:  make(chan struct{}),
		tickDone:  make(chan struct{}),
	}

	r.sess = sess
	r.state = StateRecording
	r.elapsed = 0

	go r.collect(sess)
	go r.tick(sess, r.newTicker(time.Second))

	log.Info("capture started")

	return nil
}

func (r *Recorder) Pause() error {
	const op = "capture.Pause"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording || r.closing {
		return fmt.Errorf("%s: cannot pause while %s: %w", op, r.state, errs.ErrInvalidState)
	}

	if err := r.sess.stream.Pause(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.state = StatePaused

	return nil
}

func (r *Recorder) Resume() error {
	const op = "capture.Resume"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePaused || r.closing {
		return fmt.Errorf("%s: cannot resume while %s: %w", op, r.state, errs.ErrInvalidState)
	}

	if err := r.sess.stream.Resume(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.state = StateRecording

	return nil
}

// Stop finishes the session and returns the captured audio as one blob. The
// device is released even when Stop fails.
func (r *Recorder) Stop(ctx context.Context) (models.Blob, error) {
	const op = "capture.Stop"

	log := r.log.With(slog.String("op", op))

	sess, err := r.beginClose(op)
	if err != nil {
		return models.Blob{}, err
	}

	if err := r.release(ctx, sess); err != nil {
		log.Error("failed to release microphone", sl.Err(err))

		r.finish(StateIdle)

		return models.Blob{}, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	blob := models.Blob{
		Data:     bytes.Join(sess.chunks, nil),
		MimeType: r.mimeType,
		Duration: r.elapsed,
	}
	chunks := len(sess.chunks)
	r.mu.Unlock()

	r.finish(StateStopped)

	log.Info("capture stopped",
		slog.Int("chunks", chunks),
		slog.Int("bytes", len(blob.Data)),
		slog.Duration("duration", blob.Duration),
	)

	return blob, nil
}

// Cancel releases the device before returning and drops every captured
// chunk. Cancelling an idle recorder is a no-op.
func (r *Recorder) Cancel() error {
	const op = "capture.Cancel"

	r.mu.Lock()
	if r.state == StateStopped && !r.closing {
		r.finishLocked(StateIdle)
		r.mu.Unlock()

		return nil
	}
	r.mu.Unlock()

	sess, err := r.beginClose(op)
	if err != nil {
		if r.State() == StateIdle {
			return nil
		}

		return err
	}

	err = r.release(context.Background(), sess)

	r.finish(StateIdle)

	if err != nil {
		r.log.Warn("microphone released with error", slog.String("op", op), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	r.log.Info("capture cancelled", slog.String("op", op))

	return nil
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Elapsed is the time spent in Recording, in whole seconds.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.elapsed
}

func (r *Recorder) ChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess == nil {
		return 0
	}

	return len(r.sess.chunks)
}

func (r *Recorder) active() bool {
	return r.state == StateRecording || r.state == StatePaused
}

func (r *Recorder) beginClose(op string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active() || r.closing {
		return nil, fmt.Errorf("%s: no active session (%s): %w", op, r.state, errs.ErrInvalidState)
	}

	r.closing = true

	return r.sess, nil
}

// release stops the timer, closes the stream and waits until every chunk it
// flushed has been collected.
func (r *Recorder) release(ctx context.Context, sess *session) error {
	close(sess.stopTick)
	<-sess.tickDone

	closeErr := sess.stream.Close()

	select {
	case <-sess.collected:
	case <-ctx.Done():
		return ctx.Err()
	}

	return closeErr
}

func (r *Recorder) finish(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishLocked(state)
}

func (r *Recorder) finishLocked(state State) {
	r.state = state
	r.closing = false
	if state == StateIdle {
		r.sess = nil
		r.elapsed = 0
	}
}

func (r *Recorder) collect(sess *session) {
	defer close(sess.collected)

	for chunk := range sess.stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}

		r.mu.Lock()
		sess.chunks = append(sess.chunks, chunk)
		r.mu.Unlock()
	}
}

func (r *Recorder) tick(sess *session, t Ticker) {
	defer close(sess.tickDone)
	defer t.Stop()

	for {
		select {
		case <-sess.stopTick:
			return
		case <-t.C():
			r.mu.Lock()
			if r.sess == sess && r.state == StateRecording {
				r.elapsed += time.Second
			}
			r.mu.Unlock()
		}
	}
}
