package driven

import "context"

// Enrichment is the analysis derived from a document's text.
type Enrichment struct {
	// Keywords are important terms, at most 15.
	Keywords []string

	// Topics are main themes, at most 10.
	Topics []string

	// Summary is a 150-200 word summary.
	Summary string
}

// Enricher derives keywords, topics and summaries from raw text via an
// external language model. Calls are treated as opaque, potentially slow
// and potentially failing; no retry is performed here.
//
// Implementations must cap the amount of text sent upstream.
type Enricher interface {
	// Enrich analyses the text and returns keywords, topics and a
	// summary. Failures wrap domain.ErrEnrichment.
	Enrich(ctx context.Context, text string) (*Enrichment, error)

	// Summarise produces a summary of roughly lengthWords words.
	Summarise(ctx context.Context, text string, lengthWords int) (string, error)

	// ModelName returns the model identifier in use.
	ModelName() string
}
