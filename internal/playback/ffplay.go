package playback

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

var ErrPlayerMissing = errors.New("ffplay not found")

// FFPlay plays clips with a headless ffplay process.
type FFPlay struct {
	bin string
}

func NewFFPlay() *FFPlay {
	return &FFPlay{bin: "ffplay"}
}

func (f *FFPlay) Start(_ context.Context, url string) (Handle, error) {
	bin, err := exec.LookPath(f.bin)
	if err != nil {
		return nil, ErrPlayerMissing
	}

	cmd := exec.Command(bin, "-nodisp", "-autoexit", "-loglevel", "error", url)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffplay: %w", err)
	}

	h := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		h.err = cmd.Wait()
		close(h.done)
	}()

	return h, nil
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
	once sync.Once
}

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Stop() error {
	var err error
	p.once.Do(func() {
		err = p.cmd.Process.Kill()
		<-p.done
	})

	return err
}
