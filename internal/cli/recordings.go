package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/zanzhit/voicetribe/internal/domain/models"
	transcriptionservice "github.com/zanzhit/voicetribe/internal/services/transcription"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	var sort, tag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your recordings and the ones shared with you",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deps.api(true)
			if err != nil {
				return err
			}

			list, err := client.List(cmd.Context(), models.ListFilter{Sort: models.SortOption(sort), Tag: tag})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list.Own) == 0 && len(list.Shared) == 0 {
				fmt.Fprintln(out, "No recordings found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCREATED\tTAGS\tTRANSCRIBED\t")
			for _, r := range list.Own {
				row(w, r, "")
			}
			for _, r := range list.Shared {
				row(w, r, " (shared)")
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(list.Tags) > 0 {
				fmt.Fprintf(out, "\nTags: %s\n", strings.Join(list.Tags, ", "))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&sort, "sort", "recent", "recent, oldest or alphabetical")
	cmd.Flags().StringVar(&tag, "tag", "", "only recordings carrying this tag")

	return cmd
}

func row(w *tabwriter.Writer, r models.Recording, suffix string) {
	transcribed := "yes"
	if transcriptionservice.NeedsTranscription(r.Description) {
		transcribed = "no"
	}

	fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\t%s\t\n",
		r.ID,
		truncate(r.Title, 40),
		suffix,
		r.CreatedAt.Local().Format("2006-01-02 15:04"),
		strings.Join(r.Tags, ","),
		transcribed,
	)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n-1]) + "…"
}

func NewTranscribeCmd(deps *Dependencies) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "transcribe [recording-id]",
		Short: "Transcribe a recording, or every recording still waiting for one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deps.api(true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if pending || len(args) == 0 {
				results, err := client.TranscribePending(cmd.Context())
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(out, "Nothing to transcribe")
					return nil
				}

				for _, r := range results {
					if r.Error != "" {
						fmt.Fprintf(out, "%s  failed: %s\n", r.RecordingID, r.Error)
						continue
					}
					fmt.Fprintf(out, "%s  %s\n", r.RecordingID, truncate(r.Text, 60))
				}

				return nil
			}

			text, err := client.Transcribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(out, text)

			return nil
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "transcribe every recording without a transcript")

	return cmd
}

func NewSummarizeCmd(deps *Dependencies) *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "summarize <recording-id>",
		Short: "Summarize a recording, transcribing it first when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deps.api(true)
			if err != nil {
				return err
			}

			summary, err := client.Summarize(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			switch style {
			case "bullets":
				fmt.Fprintln(out, summary.BulletPoints)
			case "detailed":
				fmt.Fprintln(out, summary.Detailed)
			case "simple":
				fmt.Fprintln(out, summary.Simple)
			case "all":
				fmt.Fprintf(out, "Key points\n%s\n\nDetailed\n%s\n\nIn short\n%s\n",
					summary.BulletPoints, summary.Detailed, summary.Simple)
			default:
				return fmt.Errorf("unknown style %q", style)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&style, "style", "all", "bullets, detailed, simple or all")

	return cmd
}

func NewShareCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "share <recording-id> <email>",
		Short: "Share a recording; unknown addresses get a signup invitation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deps.api(true)
			if err != nil {
				return err
			}

			res, err := client.Share(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if res.UserExists {
				fmt.Fprintf(cmd.OutOrStdout(), "Shared with %s\n", args[1])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Invitation sent to %s\n", args[1])
			}

			return nil
		},
	}
}

func NewSayCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "say <text>",
		Short: "Turn text into a spoken recording",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deps.api(true)
			if err != nil {
				return err
			}

			rec, err := client.Synthesize(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q (%s)\n", rec.Title, rec.ID)

			return nil
		},
	}
}

func NewPlayCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "play <recording-id>",
		Short: "Play a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := deps.api(true)
			if err != nil {
				return err
			}

			rec, err := client.Recording(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Playing %q\n", rec.Title)

			if err := deps.Player.Play(cmd.Context(), rec.AudioURL); err != nil {
				return err
			}
			defer deps.Player.Stop()

			return deps.Player.Wait(cmd.Context())
		},
	}
}
