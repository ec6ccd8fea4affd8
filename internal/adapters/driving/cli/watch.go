package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Watch a folder and ingest documents",
	Long: `Scans the folder, ingests every supported document, then keeps
watching for new, changed, renamed and deleted files until interrupted.
Without an argument the configured watch folder is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if err := requireEnricher(); err != nil {
		return err
	}

	folder := settings.Watch.Folder
	if len(args) > 0 {
		folder = args[0]
	}

	engine := watcher.NewEngine(
		folder,
		ingestService,
		watcher.WithWorkers(settings.Watch.Workers),
		watcher.WithQueueSize(settings.Watch.QueueSize),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start watch engine: %w", err)
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", folder)
	<-ctx.Done()

	if err := engine.Stop(); err != nil {
		return fmt.Errorf("stop watch engine: %w", err)
	}
	cmd.Println("Watch engine stopped.")
	return nil
}
