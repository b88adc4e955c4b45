// Package ffmpeg captures the default microphone through an ffmpeg
// subprocess that writes webm/opus to stdout.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/zanzhit/voicetribe/internal/capture"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

const (
	MimeType = "audio/webm"

	chunkSize    = 16 * 1024
	closeTimeout = 5 * time.Second
	startGrace   = 500 * time.Millisecond
)

var (
	ErrNotInstalled = errors.New("ffmpeg not found")
	ErrNoInput      = errors.New("microphone unavailable")
)

type Device struct {
	log    *slog.Logger
	bin    string
	format string
	input  string
	// grace is how long Open waits for audio before trusting a silent process.
	grace time.Duration
}

// New returns a device reading from input through the platform's default
// capture backend. An empty input selects the default microphone.
func New(log *slog.Logger, input string) *Device {
	format, def := "pulse", "default"
	switch runtime.GOOS {
	case "darwin":
		format, def = "avfoundation", ":default"
	case "windows":
		format, def = "dshow", "audio=default"
	}
	if input == "" {
		input = def
	}

	return &Device{
		log:    log,
		bin:    "ffmpeg",
		format: format,
		input:  input,
		grace:  startGrace,
	}
}

func (d *Device) args() []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-f", d.format,
		"-i", d.input,
		"-ac", "1",
		"-ar", "48000",
		"-c:a", "libopus",
		"-f", "webm",
		"pipe:1",
	}
}

func (d *Device) Open(ctx context.Context) (capture.Stream, error) {
	const op = "capture.ffmpeg.Open"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bin, err := exec.LookPath(d.bin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotInstalled)
	}

	// The process must outlive ctx, so it is not bound to it.
	cmd := exec.Command(bin, d.args()...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &stream{
		log:    d.log.With(slog.String("op", op), slog.Int("pid", cmd.Process.Pid)),
		cmd:    cmd,
		stderr: &stderr,
		chunks:  make(chan []byte, 8),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.read(stdout)

	// ffmpeg exits at once when the device is missing or access is denied.
	timer := time.NewTimer(d.grace)
	defer timer.Stop()

	select {
	case <-s.done:
		return nil, fmt.Errorf("%s: %w: %s", op, ErrNoInput, s.exitReason())
	case <-s.started:
	case <-timer.C:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-s.done

		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	}

	return s, nil
}

type stream struct {
	log    *slog.Logger
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	chunks  chan []byte
	started chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	paused  bool
	closed  bool
	waitErr error
}

func (s *stream) Chunks() <-chan []byte { return s.chunks }

func (s *stream) read(stdout io.Reader) {
	defer close(s.done)
	defer close(s.chunks)

	buf := make([]byte, chunkSize)
	first := true
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.chunks <- chunk

			if first {
				close(s.started)
				first = false
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("ffmpeg output ended", sl.Err(err))
			}
			break
		}
	}

	err := s.cmd.Wait()

	s.mu.Lock()
	s.waitErr = err
	s.mu.Unlock()
}

// exitReason describes why the process ended. It must only be called once
// done is closed.
func (s *stream) exitReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := bytes.TrimSpace(s.stderr.Bytes()); len(msg) > 0 {
		return string(msg)
	}
	if s.waitErr != nil {
		return s.waitErr.Error()
	}

	return "ffmpeg exited before recording"
}

func (s *stream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("stream closed")
	}
	if err := suspend(s.cmd.Process); err != nil {
		return err
	}
	s.paused = true

	return nil
}

func (s *stream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("stream closed")
	}
	if err := resume(s.cmd.Process); err != nil {
		return err
	}
	s.paused = false

	return nil
}

// Close asks ffmpeg to finish the container and waits for it to exit. A
// process that ignores the request is killed.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	if s.paused {
		_ = resume(s.cmd.Process)
	}
	_ = interrupt(s.cmd.Process)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(closeTimeout):
		s.log.Warn("ffmpeg did not exit, killing")
		_ = s.cmd.Process.Kill()
		<-s.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exitErr *exec.ExitError
	if s.waitErr != nil && !errors.As(s.waitErr, &exitErr) {
		return fmt.Errorf("ffmpeg: %w", s.waitErr)
	}
	if exitErr != nil && s.stderr.Len() > 0 && exitErr.ExitCode() != 255 {
		return fmt.Errorf("ffmpeg exited with %d: %s", exitErr.ExitCode(), bytes.TrimSpace(s.stderr.Bytes()))
	}

	return nil
}
