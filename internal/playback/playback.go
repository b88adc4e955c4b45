// Package playback keeps at most one clip playing at a time.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zanzhit/voicetribe/internal/lib/sl"
)

// Handle is a clip being played.
type Handle interface {
	Stop() error
	Done() <-chan struct{}
}

type Backend interface {
	Start(ctx context.Context, url string) (Handle, error)
}

type Player struct {
	log     *slog.Logger
	backend Backend

	mu      sync.Mutex
	current Handle
	url     string
}

func New(log *slog.Logger, backend Backend) *Player {
	return &Player{
		log:     log,
		backend: backend,
	}
}

// Play stops whatever is playing and starts url.
func (p *Player) Play(ctx context.Context, url string) error {
	const op = "playback.Play"

	log := p.log.With(
		slog.String("op", op),
		slog.String("url", url),
	)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.stopLocked(); err != nil {
		log.Warn("previous clip stopped with error", sl.Err(err))
	}

	h, err := p.backend.Start(ctx, url)
	if err != nil {
		log.Error("failed to start playback", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	p.current, p.url = h, url

	return nil
}

func (p *Player) Stop() error {
	const op = "playback.Stop"

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.stopLocked(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Current reports the clip that is still playing.
func (p *Player) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return "", false
	}

	select {
	case <-p.current.Done():
		p.current, p.url = nil, ""
		return "", false
	default:
		return p.url, true
	}
}

// Wait blocks until the current clip ends or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.Lock()
	h := p.current
	p.mu.Unlock()

	if h == nil {
		return nil
	}

	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Player) stopLocked() error {
	if p.current == nil {
		return nil
	}

	h := p.current
	p.current, p.url = nil, ""

	select {
	case <-h.Done():
		return nil
	default:
	}

	return h.Stop()
}
