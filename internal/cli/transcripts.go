package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var transcriptsIdentity string

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "List archived transcripts for an identity",
	RunE:  runTranscripts,
}

func init() {
	transcriptsCmd.Flags().StringVar(&transcriptsIdentity, "identity", "", "caller identity to list transcripts for")
	transcriptsCmd.MarkFlagRequired("identity")
	rootCmd.AddCommand(transcriptsCmd)
}

func runTranscripts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.archiver.ListByIdentity(ctx, transcriptsIdentity)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No transcripts found.")
		return nil
	}

	for _, id := range ids {
		transcript, ok, err := a.archiver.Load(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		fmt.Printf("%s  %s  %d messages\n",
			transcript.SessionID,
			transcript.UpdatedAt.Format("2006-01-02 15:04"),
			len(transcript.Messages))
	}
	return nil
}
