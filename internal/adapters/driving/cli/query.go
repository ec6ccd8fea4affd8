package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

var (
	queryTopic   string
	queryKeyword string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter documents by topic or keyword",
	Long: `Returns documents whose enrichment tags match the given topic
and/or keyword exactly.`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryTopic, "topic", "t", "", "topic to filter by")
	queryCmd.Flags().StringVarP(&queryKeyword, "keyword", "k", "", "keyword to filter by")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if queryTopic == "" && queryKeyword == "" {
		return fmt.Errorf("%w: provide --topic and/or --keyword", domain.ErrInvalidInput)
	}

	ctx := context.Background()
	docs, err := documentService.Query(ctx, queryTopic, queryKeyword)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No matching documents.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File: %s\n", docs[i].Filename)
		if len(docs[i].Topics) > 0 {
			cmd.Printf("    Topics: %s\n", strings.Join(docs[i].Topics, ", "))
		}
		if len(docs[i].Keywords) > 0 {
			cmd.Printf("    Keywords: %s\n", strings.Join(docs[i].Keywords, ", "))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}
