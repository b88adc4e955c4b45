package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zanzhit/voicetribe/internal/capture"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var title string
	var maxDuration time.Duration
	var transcribe bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice note from the microphone and upload it",
		Long: "Record from the default microphone. Press Enter or Ctrl+C to stop and upload,\n" +
			"type p + Enter to pause or resume, c + Enter to discard the recording.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deps.api(true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rec := capture.New(deps.Log, deps.NewDevice(deps.Config.Input))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if err := rec.Start(ctx); err != nil {
				if errors.Is(err, errs.ErrPermissionDenied) {
					return fmt.Errorf("cannot open the microphone (is ffmpeg installed and allowed to record?): %w", err)
				}

				return err
			}
			defer func() {
				if s := rec.State(); s == capture.StateRecording || s == capture.StatePaused {
					_ = rec.Cancel()
				}
			}()

			fmt.Fprintln(out, "Recording... Enter to stop, p to pause, c to cancel")

			quit := make(chan struct{})
			defer close(quit)

			done, err := control(ctx, rec, lines(quit, deps.In), maxDuration, out)
			if err != nil {
				return err
			}
			if !done {
				fmt.Fprintln(out, "Recording discarded")

				return nil
			}

			blob, err := rec.Stop(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Uploading %s of audio...\n", blob.Duration)

			saved, err := client.CreateRecording(cmd.Context(), blob, title)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Saved %q (%s)\n", saved.Title, saved.ID)

			if transcribe {
				text, err := client.Transcribe(cmd.Context(), saved.ID)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "\n%s\n", text)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "recording title (defaults to \"Recording N\")")
	cmd.Flags().DurationVar(&maxDuration, "max", 0, "stop automatically after this long")
	cmd.Flags().BoolVar(&transcribe, "transcribe", false, "transcribe right after upload")

	return cmd
}

// control drives the session from user input until it should be stopped
// (true) or was cancelled (false).
func control(ctx context.Context, rec *capture.Recorder, input <-chan string, limit time.Duration, out io.Writer) (bool, error) {
	var deadline <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		deadline = timer.C
	}

	status := time.NewTicker(time.Second)
	defer status.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return true, nil
		case <-deadline:
			fmt.Fprintln(out)
			return true, nil
		case <-status.C:
			fmt.Fprintf(out, "\r%s %s  ", rec.State(), rec.Elapsed())
		case line, ok := <-input:
			if !ok {
				input = nil
				continue
			}

			switch strings.ToLower(strings.TrimSpace(line)) {
			case "", "s", "stop":
				return true, nil
			case "p", "pause":
				var err error
				if rec.State() == capture.StatePaused {
					err = rec.Resume()
				} else {
					err = rec.Pause()
				}
				if err != nil {
					fmt.Fprintf(out, "\n%v\n", err)
				}
			case "c", "cancel":
				if err := rec.Cancel(); err != nil {
					return false, err
				}

				return false, nil
			}
		}
	}
}

// lines delivers r line by line until r ends or quit is closed.
func lines(quit <-chan struct{}, r io.Reader) <-chan string {
	ch := make(chan string)

	go func() {
		defer close(ch)

		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-quit:
				return
			}
		}
	}()

	return ch
}
