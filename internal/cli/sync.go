package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the knowledge base index from the docs directory",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.service.SyncRetrievalIndex(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d chunks from %d files (%d chunks skipped)\n",
		stats.TotalChunks, stats.FilesProcessed, stats.SkippedChunks)
	return nil
}
