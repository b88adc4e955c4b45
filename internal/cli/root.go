// Package cli implements the voicenote command line client.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/zanzhit/voicetribe/internal/capture"
	"github.com/zanzhit/voicetribe/internal/clients/api"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	"github.com/zanzhit/voicetribe/internal/playback"
)

var ErrNotLoggedIn = errors.New("not logged in, run 'voicenote login' first")

// API is the server surface the commands use.
type API interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	CreateRecording(ctx context.Context, blob models.Blob, title string) (models.Recording, error)
	Synthesize(ctx context.Context, text string) (models.Recording, error)
	List(ctx context.Context, filter models.ListFilter) (models.RecordingList, error)
	Recording(ctx context.Context, id string) (models.Recording, error)
	Transcribe(ctx context.Context, id string) (string, error)
	TranscribePending(ctx context.Context) ([]models.TranscriptionOutcome, error)
	Summarize(ctx context.Context, id string) (models.Summary, error)
	Share(ctx context.Context, id, email string) (models.ShareResult, error)
}

type Dependencies struct {
	Config     *Config
	ConfigPath string
	Log        *slog.Logger
	In         io.Reader

	// NewAPI builds a client for the configured server and token.
	NewAPI func(server, token string) API
	// NewDevice opens the microphone named by input; empty means default.
	NewDevice func(input string) capture.Device
	Player    *playback.Player
}

func DefaultAPI(server, token string) API {
	return api.New(server, token, 5*time.Minute)
}

func (d *Dependencies) api(authed bool) (API, error) {
	if authed && d.Config.Token == "" {
		return nil, ErrNotLoggedIn
	}

	return d.NewAPI(d.Config.Server, d.Config.Token), nil
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "voicenote",
		Short:         "Record, transcribe, summarize and share voice notes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&deps.Config.Server, "server", deps.Config.Server, "voicetribe server URL")

	rootCmd.AddCommand(NewLoginCmd(deps))
	rootCmd.AddCommand(NewRegisterCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewSayCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewTranscribeCmd(deps))
	rootCmd.AddCommand(NewSummarizeCmd(deps))
	rootCmd.AddCommand(NewShareCmd(deps))
	rootCmd.AddCommand(NewPlayCmd(deps))

	return rootCmd
}
