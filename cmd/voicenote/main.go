package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zanzhit/voicetribe/internal/capture"
	"github.com/zanzhit/voicetribe/internal/capture/ffmpeg"
	"github.com/zanzhit/voicetribe/internal/cli"
	"github.com/zanzhit/voicetribe/internal/playback"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	path, err := cli.ConfigPath()
	if err != nil {
		return fmt.Errorf("locating config: %w", err)
	}

	cfg, err := cli.LoadConfig(path)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if os.Getenv("VOICENOTE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	deps := &cli.Dependencies{
		Config:     cfg,
		ConfigPath: path,
		Log:        log,
		In:         os.Stdin,
		NewAPI:     cli.DefaultAPI,
		NewDevice: func(input string) capture.Device {
			return ffmpeg.New(log, input)
		},
		Player: playback.New(log, playback.NewFFPlay()),
	}

	return cli.NewRootCmd(deps).ExecuteContext(context.Background())
}
