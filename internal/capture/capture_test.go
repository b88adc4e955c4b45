package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

type fakeStream struct {
	chunks chan []byte

	mu      sync.Mutex
	closed  bool
	paused  bool
	closeFn func() error
}

func (s *fakeStream) Chunks() <-chan []byte { return s.chunks }

func (s *fakeStream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	return nil
}

func (s *fakeStream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.chunks)
	}
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDevice struct {
	err     error
	opened  int
	streams []*fakeStream
}

func (d *fakeDevice) Open(context.Context) (Stream, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.opened++
	s := &fakeStream{chunks: make(chan []byte)}
	d.streams = append(d.streams, s)
	return s, nil
}

type fakeTicker struct {
	c chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               {}

func newRecorder(d *fakeDevice) (*Recorder, *fakeTicker) {
	ticker := &fakeTicker{c: make(chan time.Time)}
	r := New(sl.NewDiscardLogger(), d, WithTicker(func(time.Duration) Ticker { return ticker }))
	return r, ticker
}

// tick delivers one tick and waits until the counter has moved.
func tick(t *testing.T, r *Recorder, ticker *fakeTicker) {
	t.Helper()

	before := r.Elapsed()
	ticker.c <- time.Now()
	if r.State() != StateRecording {
		return
	}
	require.Eventually(t, func() bool { return r.Elapsed() > before }, time.Second, time.Millisecond)
}

func TestStartStop_ThreeChunks(t *testing.T) {
	d := &fakeDevice{}
	r, ticker := newRecorder(d)

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, StateRecording, r.State())

	s := d.streams[0]
	for _, c := range []string{"one-", "two-", "three"} {
		s.chunks <- []byte(c)
		tick(t, r, ticker)
	}

	blob, err := r.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "one-two-three", string(blob.Data))
	assert.Equal(t, "audio/webm", blob.MimeType)
	assert.Equal(t, 3*time.Second, blob.Duration)
	assert.Equal(t, StateStopped, r.State())
	assert.Equal(t, 3, r.ChunkCount())
	assert.True(t, s.isClosed())
}

func TestPauseResume(t *testing.T) {
	d := &fakeDevice{}
	r, ticker := newRecorder(d)

	require.ErrorIs(t, r.Pause(), errs.ErrInvalidState)

	require.NoError(t, r.Start(context.Background()))
	s := d.streams[0]

	s.chunks <- []byte("a")
	tick(t, r, ticker)

	require.NoError(t, r.Pause())
	assert.Equal(t, StatePaused, r.State())
	assert.True(t, s.paused)
	require.ErrorIs(t, r.Pause(), errs.ErrInvalidState)

	ticker.c <- time.Now()
	ticker.c <- time.Now()
	assert.Equal(t, time.Second, r.Elapsed())

	s.chunks <- []byte("b")

	require.NoError(t, r.Resume())
	assert.Equal(t, StateRecording, r.State())
	require.ErrorIs(t, r.Resume(), errs.ErrInvalidState)

	s.chunks <- []byte("c")
	tick(t, r, ticker)

	blob, err := r.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(blob.Data))
	assert.Equal(t, 2*time.Second, blob.Duration)
}

func TestCancel_DropsChunks(t *testing.T) {
	d := &fakeDevice{}
	r, _ := newRecorder(d)

	require.NoError(t, r.Start(context.Background()))
	s := d.streams[0]
	for i := 0; i < 5; i++ {
		s.chunks <- []byte{byte(i)}
	}

	require.NoError(t, r.Cancel())

	assert.Equal(t, StateIdle, r.State())
	assert.Equal(t, 0, r.ChunkCount())
	assert.Equal(t, time.Duration(0), r.Elapsed())
	assert.True(t, s.isClosed())

	require.NoError(t, r.Cancel())
}

func TestCancel_FromPausedAndStopped(t *testing.T) {
	d := &fakeDevice{}
	r, _ := newRecorder(d)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Pause())
	require.NoError(t, r.Cancel())
	assert.Equal(t, StateIdle, r.State())
	assert.True(t, d.streams[0].isClosed())

	require.NoError(t, r.Start(context.Background()))
	s := d.streams[1]
	s.chunks <- []byte("a")
	s.chunks <- []byte("b")
	_, err := r.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, r.ChunkCount())

	require.NoError(t, r.Cancel())
	assert.Equal(t, StateIdle, r.State())
	assert.Equal(t, 0, r.ChunkCount())
	assert.Equal(t, time.Duration(0), r.Elapsed())
}

func TestStart_WhileActiveIsRejected(t *testing.T) {
	d := &fakeDevice{}
	r, _ := newRecorder(d)

	require.NoError(t, r.Start(context.Background()))
	d.streams[0].chunks <- []byte("first")

	err := r.Start(context.Background())
	require.ErrorIs(t, err, errs.ErrSessionActive)
	assert.Equal(t, 1, d.opened)
	assert.Equal(t, StateRecording, r.State())

	require.NoError(t, r.Pause())
	require.ErrorIs(t, r.Start(context.Background()), errs.ErrSessionActive)

	require.NoError(t, r.Resume())
	blob, err := r.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", string(blob.Data))

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, 2, d.opened)
	assert.Equal(t, 0, r.ChunkCount())
}

func TestStart_PermissionDenied(t *testing.T) {
	r, _ := newRecorder(&fakeDevice{err: errors.New("no input device")})

	err := r.Start(context.Background())
	require.ErrorIs(t, err, errs.ErrPermissionDenied)
	assert.Equal(t, StateIdle, r.State())
}

func TestStop_ReleasesDeviceOnFailure(t *testing.T) {
	d := &fakeDevice{}
	r, _ := newRecorder(d)

	require.NoError(t, r.Start(context.Background()))
	s := d.streams[0]
	s.closeFn = func() error { return errors.New("encoder crashed") }

	_, err := r.Stop(context.Background())
	require.Error(t, err)
	assert.True(t, s.isClosed())
	assert.Equal(t, StateIdle, r.State())

	_, err = r.Stop(context.Background())
	require.ErrorIs(t, err, errs.ErrInvalidState)
}
