package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veldie123/hugoherbots.com-sub000/pkg/cli"
	"github.com/Veldie123/hugoherbots.com-sub000/pkg/transcript"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Manage stored transcripts",
	Long: `Manage conversation transcripts stored under ~/.hugocoach/transcripts.

Every chat and call session is recorded locally unless started with
--no-store.`,
}

var transcriptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions with stored transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}
		defer store.Close()

		count := 0
		for id, err := range store.Sessions(cmd.Context()) {
			if err != nil {
				return err
			}
			fmt.Println(id)
			count++
		}
		if count == 0 {
			cli.PrintInfo("No transcripts stored")
		}
		return nil
	},
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if outputJSON {
			var records []transcript.Record
			for rec, err := range store.List(cmd.Context(), args[0]) {
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			return outputResult(records)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		count := 0
		for rec, err := range store.List(cmd.Context(), args[0]) {
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", rec.At.Format("15:04:05"), rec.Role, rec.Text)
			count++
		}
		if count == 0 {
			return fmt.Errorf("no transcript for session %q", args[0])
		}
		return w.Flush()
	},
}

var transcriptPurgeCmd = &cobra.Command{
	Use:   "purge <session-id>",
	Short: "Delete a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTranscriptStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Purge(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Transcript for %q deleted", args[0])
		return nil
	},
}

func init() {
	transcriptCmd.AddCommand(transcriptListCmd)
	transcriptCmd.AddCommand(transcriptShowCmd)
	transcriptCmd.AddCommand(transcriptPurgeCmd)
}

// openTranscriptStore opens the on-disk transcript store under the CLI
// base directory, creating the directory if needed.
func openTranscriptStore() (*transcript.BadgerStore, error) {
	paths, err := cli.NewPaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureTranscriptDir(); err != nil {
		return nil, err
	}
	return transcript.NewBadger(transcript.BadgerOptions{Dir: paths.TranscriptDir()})
}
