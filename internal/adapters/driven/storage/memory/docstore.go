// Package memory provides in-memory storage adapters for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Ensure DocStore implements the interface.
var _ driven.DocumentStore = (*DocStore)(nil)

// DocStore is an in-memory implementation of driven.DocumentStore.
// It mirrors the SQLite adapter's contract exactly so service and
// pipeline tests can run without a database.
type DocStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewDocStore creates a new in-memory document store.
func NewDocStore() *DocStore {
	return &DocStore{docs: make(map[string]domain.Document)}
}

// Upsert inserts or wholesale-replaces a document by ID.
func (s *DocStore) Upsert(_ context.Context, doc *domain.Document) (string, error) {
	if doc == nil {
		return "", domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	s.docs[doc.ID] = *doc
	return doc.ID, nil
}

// Delete removes a document by ID. No-op when absent.
func (s *DocStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// DeleteByPath removes every record matching the exact path.
func (s *DocStore) DeleteByPath(_ context.Context, path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, doc := range s.docs {
		if doc.Path == path {
			delete(s.docs, id)
			count++
		}
	}
	return count, nil
}

// Get retrieves the full record, including text.
func (s *DocStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListMeta returns metadata-only records, newest uploaded first.
func (s *DocStore) ListMeta(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc.WithoutText())
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

// Query returns metadata-only records matching topic OR keyword.
func (s *DocStore) Query(_ context.Context, topic, keyword string) ([]domain.Document, error) {
	if topic == "" && keyword == "" {
		return nil, domain.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	for _, doc := range s.docs {
		if (topic != "" && contains(doc.Topics, topic)) ||
			(keyword != "" && contains(doc.Keywords, keyword)) {
			docs = append(docs, doc.WithoutText())
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

// Exists reports whether a document with the given ID exists.
func (s *DocStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[id]
	return ok, nil
}

// GetIDByPath returns the ID of a record at the given path.
func (s *DocStore) GetIDByPath(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, doc := range s.docs {
		if doc.Path == path {
			return id, nil
		}
	}
	return "", domain.ErrNotFound
}

// SetSummary upserts one entry of the per-length summary map.
func (s *DocStore) SetSummary(_ context.Context, id string, length int, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.Summaries == nil {
		doc.Summaries = make(map[int]string)
	}
	doc.Summaries[length] = summary
	s.docs[id] = doc
	return nil
}

// contains reports whether list holds exactly item.
func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
