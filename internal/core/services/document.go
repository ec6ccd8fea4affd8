package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/logger"
)

var _ driving.DocumentService = (*DocumentService)(nil)

var (
	wordPattern      = regexp.MustCompile(`\b\w+\b`)
	sentencePattern  = regexp.MustCompile(`[.!?]+`)
	paragraphPattern = regexp.MustCompile(`\n\s*\n`)
	lowerWordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)
)

// stopWords are excluded from the most-common-words ranking.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "in": {}, "on": {}, "at": {}, "of": {},
	"for": {}, "to": {}, "and": {}, "or": {}, "but": {}, "is": {},
	"are": {}, "was": {}, "were": {},
}

const (
	// readingWordsPerMinute is an average adult reading speed.
	readingWordsPerMinute = 225

	mostCommonWordsLimit = 10
	searchResultKeywords = 5
	searchResultTopics   = 3
	snippetContextChars  = 50
)

// DocumentService answers read-side queries over the stored corpus.
type DocumentService struct {
	store    driven.DocumentStore
	enricher driven.Enricher
}

// NewDocumentService creates the query service.
func NewDocumentService(store driven.DocumentStore, enricher driven.Enricher) *DocumentService {
	return &DocumentService{store: store, enricher: enricher}
}

// List returns metadata projections of every document, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListMeta(ctx)
}

// Get returns the full document, text included.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.store.Get(ctx, id)
}

// Query filters document metadata by exact topic and/or keyword match.
func (s *DocumentService) Query(ctx context.Context, topic, keyword string) ([]domain.Document, error) {
	return s.store.Query(ctx, topic, keyword)
}

// Summarise returns a summary of the document at the requested word
// length, serving a previously stored one when available.
func (s *DocumentService) Summarise(ctx context.Context, id string, lengthWords int) (string, error) {
	if lengthWords <= 0 {
		return "", fmt.Errorf("%w: summary length must be positive", domain.ErrInvalidInput)
	}

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if cached, ok := doc.Summaries[lengthWords]; ok && cached != "" {
		logger.Debug("Serving stored %d-word summary for %s", lengthWords, id)
		return cached, nil
	}

	if s.enricher == nil {
		return "", fmt.Errorf("%w: no enrichment client configured", domain.ErrEnrichment)
	}

	summary, err := s.enricher.Summarise(ctx, doc.Text, lengthWords)
	if err != nil {
		return "", fmt.Errorf("summarise %s: %w", id, err)
	}

	if err := s.store.SetSummary(ctx, id, lengthWords, summary); err != nil {
		// The summary itself is still good; losing the cache write is
		// only a cost on the next request.
		logger.Warn("Failed to store %d-word summary for %s: %v", lengthWords, id, err)
	}
	return summary, nil
}

// Stats computes corpus-free statistics over one document's text.
func (s *DocumentService) Stats(ctx context.Context, id string) (*driving.DocumentStats, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	text := doc.Text
	wordCount := len(wordPattern.FindAllString(text, -1))
	charCount := len(text)
	sentenceCount := len(sentencePattern.FindAllString(text, -1))
	if sentenceCount == 0 {
		sentenceCount = 1
	}
	paragraphCount := len(paragraphPattern.Split(text, -1))

	words := lowerWordPattern.FindAllString(strings.ToLower(text), -1)

	counts := make(map[string]int)
	unique := make(map[string]struct{}, len(words))
	letterTotal := 0
	for _, w := range words {
		unique[w] = struct{}{}
		letterTotal += len(w)
		if _, stop := stopWords[w]; !stop {
			counts[w]++
		}
	}

	flesch := 0.0
	if wordCount > 0 {
		flesch = 206.835 -
			1.015*(float64(wordCount)/float64(sentenceCount)) -
			84.6*(float64(letterTotal)/float64(wordCount))
	}

	stats := &driving.DocumentStats{
		WordCount:              wordCount,
		CharCount:              charCount,
		SentenceCount:          sentenceCount,
		ParagraphCount:         paragraphCount,
		AvgWordLength:          round2(float64(charCount) / float64(max(1, wordCount))),
		AvgSentenceLength:      round2(float64(wordCount) / float64(sentenceCount)),
		AvgParagraphLength:     round2(float64(wordCount) / float64(max(1, paragraphCount))),
		ReadingTimeMinutes:     round2(float64(wordCount) / readingWordsPerMinute),
		FleschReadingEase:      round2(flesch),
		UniqueWordCount:        len(unique),
		VocabularyRichness:     round4(float64(len(unique)) / float64(max(1, wordCount))),
		MostCommonWords:        topWords(counts, mostCommonWordsLimit),
	}
	return stats, nil
}

// Compare reports similarities and differences between two documents.
func (s *DocumentService) Compare(ctx context.Context, id1, id2 string) (*driving.Comparison, error) {
	doc1, err := s.store.Get(ctx, id1)
	if err != nil {
		return nil, fmt.Errorf("first document: %w", err)
	}
	doc2, err := s.store.Get(ctx, id2)
	if err != nil {
		return nil, fmt.Errorf("second document: %w", err)
	}

	words1 := len(wordPattern.FindAllString(doc1.Text, -1))
	words2 := len(wordPattern.FindAllString(doc2.Text, -1))

	sentences1 := sentenceSet(doc1.Text)
	sentences2 := sentenceSet(doc2.Text)
	common := 0
	for sentence := range sentences1 {
		if _, ok := sentences2[sentence]; ok {
			common++
		}
	}
	meanSentences := float64(len(sentences1)+len(sentences2)) / 2
	if meanSentences < 1 {
		meanSentences = 1
	}

	return &driving.Comparison{
		SizeDifference:      doc1.Metadata.SizeBytes - doc2.Metadata.SizeBytes,
		WordCountDifference: words1 - words2,
		SharedTopics:        intersect(doc1.Topics, doc2.Topics),
		UniqueTopics1:       subtract(doc1.Topics, doc2.Topics),
		UniqueTopics2:       subtract(doc2.Topics, doc1.Topics),
		SharedKeywords:      intersect(doc1.Keywords, doc2.Keywords),
		UniqueKeywords1:     subtract(doc1.Keywords, doc2.Keywords),
		UniqueKeywords2:     subtract(doc2.Keywords, doc1.Keywords),
		SimilarityRatio:     round2(float64(common) / meanSentences),
		CommonSentenceCount: common,
	}, nil
}

// Search ranks documents against a free-text query.
// Exact phrase hits weigh 3x, title hits 2x, keyword and topic hits
// 1.5x; the combined score is softened by sqrt of the word count so
// long documents do not dominate.
func (s *DocumentService) Search(ctx context.Context, query string, limit int) ([]driving.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query cannot be empty", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 5
	}

	metas, err := s.store.ListMeta(ctx)
	if err != nil {
		return nil, err
	}

	terms := wordPattern.FindAllString(strings.ToLower(query), -1)
	queryLower := strings.ToLower(query)

	type scored struct {
		doc   *domain.Document
		score float64
	}
	var matches []scored
	for _, meta := range metas {
		doc, err := s.store.Get(ctx, meta.ID)
		if err != nil {
			logger.Warn("Skipping document %s during search: %v", meta.ID, err)
			continue
		}
		score := relevance(doc, queryLower, terms)
		if score > 0 {
			matches = append(matches, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]driving.SearchResult, 0, len(matches))
	for _, m := range matches {
		title := m.doc.Metadata.Title
		if title == "" {
			title = m.doc.Filename
		}
		results = append(results, driving.SearchResult{
			ID:       m.doc.ID,
			Filename: m.doc.Filename,
			Title:    title,
			Score:    round2(m.score),
			Snippet:  snippet(m.doc.Text, terms),
			Keywords: headOf(m.doc.Keywords, searchResultKeywords),
			Topics:   headOf(m.doc.Topics, searchResultTopics),
		})
	}
	return results, nil
}

func relevance(doc *domain.Document, queryLower string, terms []string) float64 {
	textLower := strings.ToLower(doc.Text)
	titleLower := strings.ToLower(doc.Metadata.Title)

	score := float64(strings.Count(textLower, queryLower)) * 3

	for _, term := range terms {
		score += float64(strings.Count(textLower, term))
		score += float64(strings.Count(titleLower, term)) * 2
	}

	tagHits := 0
	for _, term := range terms {
		if containsSubstring(doc.Keywords, term) {
			tagHits++
		}
		if containsSubstring(doc.Topics, term) {
			tagHits++
		}
	}
	score += float64(tagHits) * 1.5

	if wordCount := len(wordPattern.FindAllString(doc.Text, -1)); wordCount > 0 {
		score /= math.Sqrt(float64(wordCount))
	}
	return score
}

// snippet extracts text surrounding the first matched term, falling
// back to the document head.
func snippet(text string, terms []string) string {
	for _, term := range terms {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			continue
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := max(0, loc[0]-snippetContextChars)
		end := min(len(text), loc[1]+snippetContextChars)
		if context := strings.TrimSpace(text[start:end]); context != "" {
			return "..." + context + "..."
		}
	}
	if text == "" {
		return ""
	}
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text + "..."
}

func sentenceSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, sentence := range sentencePattern.Split(text, -1) {
		set[sentence] = struct{}{}
	}
	return set
}

func intersect(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{})
	for _, v := range a {
		if _, ok := inB[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func subtract(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{})
	for _, v := range a {
		if _, ok := inB[v]; ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func containsSubstring(values []string, term string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func topWords(counts map[string]int, limit int) []driving.WordCount {
	out := make([]driving.WordCount, 0, len(counts))
	for word, count := range counts {
		out = append(out, driving.WordCount{Word: word, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func headOf(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
