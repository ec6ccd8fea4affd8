// Package cli wires the services into cobra commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/adapters/driven/config"
	"github.com/custodia-labs/docwatch/internal/adapters/driven/enrichment/openai"
	"github.com/custodia-labs/docwatch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/core/services"
	"github.com/custodia-labs/docwatch/internal/logger"
	"github.com/custodia-labs/docwatch/internal/parsers"
	"github.com/custodia-labs/docwatch/internal/parsers/docx"
	"github.com/custodia-labs/docwatch/internal/parsers/pdf"
	"github.com/custodia-labs/docwatch/internal/parsers/plaintext"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Populated by ensureServices; tests
// inject fakes directly.
var (
	settings        *config.Settings
	enricher        driven.Enricher
	ingestService   driving.Ingestor
	documentService driving.DocumentService
)

var (
	verboseFlag bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "docwatch",
	Short: "Watch a folder and index its documents",
	Long: `docwatch watches a folder for documents, extracts their text,
enriches them with keywords, topics and a summary, and makes the
result queryable from the command line.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ensureServices builds the service graph on first use. The enricher
// stays nil without an API key so read-only commands keep working.
func ensureServices() error {
	if ingestService != nil && documentService != nil {
		return nil
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings = cfg

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	if cfg.OpenAI.APIKey != "" {
		client, err := openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
		if err != nil {
			return fmt.Errorf("create enrichment client: %w", err)
		}
		enricher = client
	}

	registry := parsers.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(pdf.New())
	registry.Register(docx.New())

	ingest, err := services.NewIngestService(store, registry, enricher)
	if err != nil {
		return fmt.Errorf("create ingestion service: %w", err)
	}
	ingest.SetScanWorkers(cfg.Watch.Workers)

	ingestService = ingest
	documentService = services.NewDocumentService(store, enricher)
	return nil
}

// requireEnricher guards commands that call the language model.
func requireEnricher() error {
	if enricher == nil {
		return fmt.Errorf("OpenAI API key not configured, set OPENAI_API_KEY or the openai.api_key config value")
	}
	return nil
}
