//go:build windows

package ffmpeg

import (
	"errors"
	"os"
)

var errPauseUnsupported = errors.New("pausing ffmpeg is not supported on windows")

func suspend(*os.Process) error { return errPauseUnsupported }

func resume(*os.Process) error { return errPauseUnsupported }

func interrupt(p *os.Process) error { return p.Kill() }
