package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a file or directory once",
	Long: `Runs the ingestion pipeline for a single file, or recursively for
every file in a directory, without starting the watch engine.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-ingest even if the file is already indexed")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if err := requireEnricher(); err != nil {
		return err
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	ctx := context.Background()

	if info.IsDir() {
		cmd.Printf("Ingesting directory: %s\n", path)
		if err := ingestService.ProcessDirectory(ctx, path); err != nil {
			return fmt.Errorf("ingest directory: %w", err)
		}
	} else {
		cmd.Printf("Ingesting file: %s\n", path)
		if err := ingestService.ProcessFile(ctx, path, ingestForce); err != nil {
			return fmt.Errorf("ingest file: %w", err)
		}
	}

	cmd.Println("Done.")
	return nil
}
