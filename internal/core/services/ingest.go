package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

const (
	// pathLockStripes sizes the striped per-path mutex table. Two events
	// racing on the same path always serialise; distinct paths may share
	// a stripe, which only costs unnecessary waiting.
	pathLockStripes = 64

	// enrichmentCacheSize bounds the content-hash keyed enrichment cache.
	enrichmentCacheSize = 256

	// defaultScanWorkers bounds per-file parallelism in directory scans.
	defaultScanWorkers = 4
)

// IngestService runs the parse-enrich-persist pipeline.
// The store exclusively owns persisted state; the service always
// re-queries before mutating.
type IngestService struct {
	store    driven.DocumentStore
	registry driven.ParserRegistry
	enricher driven.Enricher

	scanWorkers int

	locks [pathLockStripes]sync.Mutex

	// cache holds enrichment results keyed by content hash, so a
	// force-update whose text is unchanged (or identical content at a
	// second path) skips the remote call.
	cache *lru.Cache[string, driven.Enrichment]
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(
	store driven.DocumentStore,
	registry driven.ParserRegistry,
	enricher driven.Enricher,
) (*IngestService, error) {
	cache, err := lru.New[string, driven.Enrichment](enrichmentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating enrichment cache: %w", err)
	}

	return &IngestService{
		store:       store,
		registry:    registry,
		enricher:    enricher,
		scanWorkers: defaultScanWorkers,
		cache:       cache,
	}, nil
}

// SetScanWorkers overrides the per-file parallelism of directory scans.
func (s *IngestService) SetScanWorkers(n int) {
	if n > 0 {
		s.scanWorkers = n
	}
}

// ProcessFile ingests one file, serialised per path.
func (s *IngestService) ProcessFile(ctx context.Context, path string, force bool) error {
	path = absPath(path)

	mu := s.pathLock(path)
	mu.Lock()
	defer mu.Unlock()

	return s.processLocked(ctx, path, force)
}

// processLocked runs the pipeline; the caller holds the path's lock.
func (s *IngestService) processLocked(ctx context.Context, path string, force bool) error {
	// 1. Resolve any existing record for this path.
	existingID, err := s.store.GetIDByPath(ctx, path)
	switch {
	case err == nil && !force:
		// Dedup guarantee: at most one record per path unless forced.
		logger.Info("Document already exists, skipping: %s", existingID)
		return nil
	case err == nil:
		logger.Info("Force updating existing document: %s", existingID)
		if _, err := s.store.DeleteByPath(ctx, path); err != nil {
			return fmt.Errorf("delete by path: %w", err)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("lookup by path: %w", err)
	}

	// 2. Resolve a parser. No parser means skip, not failure.
	parser, err := s.registry.Resolve(filepath.Ext(path))
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			logger.Info("Skipping unsupported file: %s", path)
			return nil
		}
		return fmt.Errorf("resolve parser: %w", err)
	}

	logger.Info("Processing file: %s", path)

	// 3. Parse.
	doc, err := parser.Parse(ctx, path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	// 4. Enrich. The write below is all-or-nothing: a failure here
	// leaves no record at all for this file.
	enrichment, err := s.enrich(ctx, doc.ID, doc.Text)
	if err != nil {
		return fmt.Errorf("enrich %s: %w", path, err)
	}

	doc.Keywords = enrichment.Keywords
	doc.Topics = enrichment.Topics
	doc.Summary = enrichment.Summary

	// 5. Persist the merged record.
	id, err := s.store.Upsert(ctx, doc)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	logger.Info("Document processed successfully: %s", id)
	return nil
}

// enrich consults the content-hash cache before calling the remote client.
func (s *IngestService) enrich(ctx context.Context, contentHash, text string) (*driven.Enrichment, error) {
	if cached, ok := s.cache.Get(contentHash); ok {
		logger.Debug("Enrichment cache hit: %s", contentHash)
		return &cached, nil
	}

	if s.enricher == nil {
		return nil, fmt.Errorf("%w: no enrichment client configured", domain.ErrEnrichment)
	}

	enrichment, err := s.enricher.Enrich(ctx, text)
	if err != nil {
		return nil, err
	}

	s.cache.Add(contentHash, *enrichment)
	return enrichment, nil
}

// ProcessDirectory recursively ingests every file under dir, then removes
// store records under dir whose backing file was not observed.
func (s *IngestService) ProcessDirectory(ctx context.Context, dir string) error {
	dir = absPath(dir)
	logger.Info("Processing directory: %s", dir)

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Only a broken root aborts the scan. Unreadable subtrees and
			// files vanishing mid-walk are skipped like any other bad file.
			if path == dir {
				return err
			}
			logger.Warn("Skipping unreadable entry %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}

	// Per-file failures are isolated: one bad file never stops the scan.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scanWorkers)
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := s.ProcessFile(gctx, file, false); err != nil {
				logger.Error("Failed to process %s: %v", file, err)
			}
			return nil
		})
	}
	// Wait returns nil: workers swallow per-file errors above. The
	// reconciliation sweep must only run after every file was attempted.
	_ = g.Wait()

	if err := s.reconcile(ctx, dir, files); err != nil {
		return fmt.Errorf("reconcile %s: %w", dir, err)
	}
	return nil
}

// reconcile deletes records under dir whose path was not in the observed
// file set. Linear in store size, acceptable for a single watched inbox.
func (s *IngestService) reconcile(ctx context.Context, dir string, observed []string) error {
	seen := make(map[string]struct{}, len(observed))
	for _, f := range observed {
		seen[f] = struct{}{}
	}

	prefix := strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)

	records, err := s.store.ListMeta(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	deleted := 0
	for _, rec := range records {
		if rec.Path == "" || !strings.HasPrefix(rec.Path, prefix) {
			continue
		}
		if _, ok := seen[rec.Path]; ok {
			continue
		}
		logger.Info("Deleting orphaned document: %s (path: %s)", rec.ID, rec.Path)
		if err := s.store.Delete(ctx, rec.ID); err != nil {
			return fmt.Errorf("delete orphan %s: %w", rec.ID, err)
		}
		deleted++
	}

	if deleted > 0 {
		logger.Info("Cleaned up %d orphaned documents under %s", deleted, dir)
	}
	return nil
}

// RemoveFile deletes the record for a path. No-op when absent.
func (s *IngestService) RemoveFile(ctx context.Context, path string) error {
	path = absPath(path)

	mu := s.pathLock(path)
	mu.Lock()
	defer mu.Unlock()

	id, err := s.store.GetIDByPath(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("No document found for deleted file: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup by path: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	logger.Info("Document %s deleted for removed file %s", id, path)
	return nil
}

// MoveFile re-points the record at oldPath to newPath without re-parsing
// or re-enriching. When no record exists for oldPath - for example the
// move happened while the engine was down - the destination is ingested
// as a brand-new file.
func (s *IngestService) MoveFile(ctx context.Context, oldPath, newPath string) error {
	oldPath = absPath(oldPath)
	newPath = absPath(newPath)

	unlock := s.lockPair(oldPath, newPath)
	defer unlock()

	id, err := s.store.GetIDByPath(ctx, oldPath)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("No document for source path %s, processing %s as new", oldPath, newPath)
		return s.processLocked(ctx, newPath, false)
	}
	if err != nil {
		return fmt.Errorf("lookup by path: %w", err)
	}

	doc, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return s.processLocked(ctx, newPath, false)
	}
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	doc.Path = newPath
	doc.Filename = filepath.Base(newPath)
	doc.Metadata.Filename = doc.Filename

	if _, err := s.store.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("save moved document: %w", err)
	}
	logger.Info("Document %s updated with new path: %s", id, newPath)
	return nil
}

// pathLock returns the stripe mutex for a path.
func (s *IngestService) pathLock(path string) *sync.Mutex {
	return &s.locks[pathStripe(path)]
}

// lockPair acquires the stripes of both paths in ascending stripe order,
// degrading to a single acquisition when they collide.
func (s *IngestService) lockPair(a, b string) func() {
	ia, ib := pathStripe(a), pathStripe(b)
	if ia == ib {
		s.locks[ia].Lock()
		return s.locks[ia].Unlock
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	s.locks[ia].Lock()
	s.locks[ib].Lock()
	return func() {
		s.locks[ib].Unlock()
		s.locks[ia].Unlock()
	}
}

func pathStripe(path string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return h.Sum32() % pathLockStripes
}

// absPath canonicalises a path, falling back to the input on failure.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
