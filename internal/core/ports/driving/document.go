package driving

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// DocumentService exposes the store's read surface plus the analysis
// operations built on top of it (statistics, comparison, search,
// per-length summaries).
type DocumentService interface {
	// List returns metadata-only records, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a full document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Query filters metadata-only records by topic or keyword
	// (OR semantics). At least one filter is required.
	Query(ctx context.Context, topic, keyword string) ([]domain.Document, error)

	// Summarise returns a summary of roughly lengthWords words, serving
	// a previously stored summary of that length when one exists and
	// persisting freshly generated ones.
	Summarise(ctx context.Context, id string, lengthWords int) (string, error)

	// Stats computes text statistics for a document.
	Stats(ctx context.Context, id string) (*DocumentStats, error)

	// Compare contrasts two documents by topics, keywords and content.
	Compare(ctx context.Context, id1, id2 string) (*Comparison, error)

	// Search scores all documents against a free-text query and returns
	// the best matches, highest relevance first.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// DocumentStats holds computed text statistics for one document.
type DocumentStats struct {
	WordCount      int
	CharCount      int
	SentenceCount  int
	ParagraphCount int

	AvgWordLength      float64
	AvgSentenceLength  float64
	AvgParagraphLength float64

	// ReadingTimeMinutes assumes an average pace of 225 words per minute.
	ReadingTimeMinutes float64

	// FleschReadingEase is a rough approximation using word length as a
	// syllable proxy.
	FleschReadingEase float64

	UniqueWordCount int

	// VocabularyRichness is the type-token ratio.
	VocabularyRichness float64

	// MostCommonWords are the top non-stopword terms, most frequent first.
	MostCommonWords []WordCount
}

// WordCount pairs a term with its occurrence count.
type WordCount struct {
	Word  string
	Count int
}

// Comparison contrasts two documents.
type Comparison struct {
	SizeDifference      int64
	WordCountDifference int

	SharedTopics    []string
	UniqueTopics1   []string
	UniqueTopics2   []string
	SharedKeywords  []string
	UniqueKeywords1 []string
	UniqueKeywords2 []string

	// SimilarityRatio is the share of sentences the two texts have in
	// common, in [0, 1].
	SimilarityRatio     float64
	CommonSentenceCount int
}

// SearchResult is one scored match from a content search.
type SearchResult struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Title    string  `json:"title"`
	Score    float64 `json:"relevance_score"`

	// Snippet is an excerpt around the first matched term.
	Snippet string `json:"snippet"`

	Keywords []string `json:"keywords,omitempty"`
	Topics   []string `json:"topics,omitempty"`
}
