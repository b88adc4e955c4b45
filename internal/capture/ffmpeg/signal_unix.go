//go:build !windows

package ffmpeg

import (
	"os"
	"syscall"
)

func suspend(p *os.Process) error { return p.Signal(syscall.SIGSTOP) }

func resume(p *os.Process) error { return p.Signal(syscall.SIGCONT) }

// interrupt lets ffmpeg write the container trailer before exiting.
func interrupt(p *os.Process) error { return p.Signal(os.Interrupt) }
