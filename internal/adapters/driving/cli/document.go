package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect indexed documents",
	Long:  `List, view, compare, or analyse indexed documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentStatsCmd = &cobra.Command{
	Use:   "stats [doc-id]",
	Short: "Show document statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentStats,
}

var documentCompareCmd = &cobra.Command{
	Use:   "compare [doc-id] [doc-id]",
	Short: "Compare two documents",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentCompare,
}

// summaryLength is a flag for the summary command.
var summaryLength int

var documentSummaryCmd = &cobra.Command{
	Use:   "summary [doc-id]",
	Short: "Summarise a document",
	Long:  `Prints a summary of the requested word length, generating and storing one when not cached.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentSummary,
}

func init() {
	documentSummaryCmd.Flags().IntVarP(&summaryLength, "length", "l", 150, "summary length in words")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentStatsCmd)
	documentCmd.AddCommand(documentCompareCmd)
	documentCmd.AddCommand(documentSummaryCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := context.Background()
	docs, err := documentService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File: %s\n", docs[i].Filename)
		if len(docs[i].Topics) > 0 {
			cmd.Printf("    Topics: %s\n", strings.Join(docs[i].Topics, ", "))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := context.Background()
	doc, err := documentService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  File:      %s\n", doc.Filename)
	cmd.Printf("  Path:      %s\n", doc.Path)
	cmd.Printf("  MIME:      %s\n", doc.Metadata.MIME)
	cmd.Printf("  Size:      %d bytes\n", doc.Metadata.SizeBytes)
	if doc.Metadata.Title != "" {
		cmd.Printf("  Title:     %s\n", doc.Metadata.Title)
	}
	if doc.Metadata.Author != "" {
		cmd.Printf("  Author:    %s\n", doc.Metadata.Author)
	}
	if doc.Metadata.Pages != nil {
		cmd.Printf("  Pages:     %d\n", *doc.Metadata.Pages)
	}
	cmd.Printf("  Uploaded:  %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))

	if len(doc.Keywords) > 0 {
		cmd.Printf("\n  Keywords: %s\n", strings.Join(doc.Keywords, ", "))
	}
	if len(doc.Topics) > 0 {
		cmd.Printf("  Topics:   %s\n", strings.Join(doc.Topics, ", "))
	}
	if doc.Summary != "" {
		cmd.Printf("\n  Summary:\n    %s\n", doc.Summary)
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := context.Background()
	doc, err := documentService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Println(doc.Text)
	return nil
}

func runDocumentStats(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := context.Background()
	stats, err := documentService.Stats(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	cmd.Printf("Statistics for %s\n\n", args[0])
	cmd.Printf("  Words:       %d\n", stats.WordCount)
	cmd.Printf("  Characters:  %d\n", stats.CharCount)
	cmd.Printf("  Sentences:   %d\n", stats.SentenceCount)
	cmd.Printf("  Paragraphs:  %d\n", stats.ParagraphCount)
	cmd.Println()
	cmd.Printf("  Avg word length:       %.2f\n", stats.AvgWordLength)
	cmd.Printf("  Avg sentence length:   %.2f\n", stats.AvgSentenceLength)
	cmd.Printf("  Avg paragraph length:  %.2f\n", stats.AvgParagraphLength)
	cmd.Printf("  Reading time:          %.2f minutes\n", stats.ReadingTimeMinutes)
	cmd.Printf("  Flesch reading ease:   %.2f\n", stats.FleschReadingEase)
	cmd.Println()
	cmd.Printf("  Unique words:          %d\n", stats.UniqueWordCount)
	cmd.Printf("  Vocabulary richness:   %.4f\n", stats.VocabularyRichness)

	if len(stats.MostCommonWords) > 0 {
		cmd.Println("\n  Most common words:")
		for _, wc := range stats.MostCommonWords {
			cmd.Printf("    %-20s %d\n", wc.Word, wc.Count)
		}
	}

	return nil
}

func runDocumentCompare(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := context.Background()
	comparison, err := documentService.Compare(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to compare documents: %w", err)
	}

	cmd.Printf("Comparing %s and %s\n\n", args[0], args[1])
	cmd.Printf("  Size difference:        %d bytes\n", comparison.SizeDifference)
	cmd.Printf("  Word count difference:  %d\n", comparison.WordCountDifference)
	cmd.Printf("  Similarity ratio:       %.2f\n", comparison.SimilarityRatio)
	cmd.Printf("  Common sentences:       %d\n", comparison.CommonSentenceCount)

	printStringList(cmd, "Shared topics", comparison.SharedTopics)
	printStringList(cmd, "Topics only in first", comparison.UniqueTopics1)
	printStringList(cmd, "Topics only in second", comparison.UniqueTopics2)
	printStringList(cmd, "Shared keywords", comparison.SharedKeywords)
	printStringList(cmd, "Keywords only in first", comparison.UniqueKeywords1)
	printStringList(cmd, "Keywords only in second", comparison.UniqueKeywords2)

	return nil
}

func runDocumentSummary(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if summaryLength <= 0 {
		return fmt.Errorf("%w: length must be positive", domain.ErrInvalidInput)
	}

	ctx := context.Background()
	summary, err := documentService.Summarise(ctx, args[0], summaryLength)
	if err != nil {
		return fmt.Errorf("failed to summarise document: %w", err)
	}

	cmd.Println(summary)
	return nil
}

func printStringList(cmd *cobra.Command, label string, values []string) {
	if len(values) == 0 {
		return
	}
	cmd.Printf("\n  %s:\n", label)
	for _, v := range values {
		cmd.Printf("    %s\n", v)
	}
}
