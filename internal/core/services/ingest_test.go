package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docwatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/parsers"
	"github.com/custodia-labs/docwatch/internal/parsers/plaintext"
)

// mockEnricher implements driven.Enricher and counts calls.
type mockEnricher struct {
	calls atomic.Int32
	fail  bool
}

func (m *mockEnricher) Enrich(_ context.Context, _ string) (*driven.Enrichment, error) {
	m.calls.Add(1)
	if m.fail {
		return nil, fmt.Errorf("%w: model unavailable", domain.ErrEnrichment)
	}
	return &driven.Enrichment{
		Keywords: []string{"alpha", "beta"},
		Topics:   []string{"testing"},
		Summary:  "A short summary.",
	}, nil
}

func (m *mockEnricher) Summarise(_ context.Context, _ string, lengthWords int) (string, error) {
	if m.fail {
		return "", fmt.Errorf("%w: model unavailable", domain.ErrEnrichment)
	}
	return fmt.Sprintf("Summary in %d words.", lengthWords), nil
}

func (m *mockEnricher) ModelName() string {
	return "mock"
}

func newTestIngest(t *testing.T) (*IngestService, *memory.DocStore, *mockEnricher) {
	t.Helper()

	store := memory.NewDocStore()
	registry := parsers.NewRegistry()
	registry.Register(plaintext.New())
	enricher := &mockEnricher{}

	service, err := NewIngestService(store, registry, enricher)
	require.NoError(t, err)
	return service, store, enricher
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestService_ProcessFile_Success(t *testing.T) {
	service, store, _ := newTestIngest(t)
	path := writeTestFile(t, t.TempDir(), "note.txt", "hello world")
	ctx := context.Background()

	err := service.ProcessFile(ctx, path, false)
	require.NoError(t, err)

	id, err := store.GetIDByPath(ctx, mustAbs(t, path))
	require.NoError(t, err)

	doc, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text)
	assert.Equal(t, []string{"alpha", "beta"}, doc.Keywords)
	assert.Equal(t, []string{"testing"}, doc.Topics)
	assert.Equal(t, "A short summary.", doc.Summary)
	assert.False(t, doc.UploadedAt.IsZero())
}

func TestIngestService_ProcessFile_SkipsExisting(t *testing.T) {
	service, store, enricher := newTestIngest(t)
	path := writeTestFile(t, t.TempDir(), "note.txt", "hello world")
	ctx := context.Background()

	require.NoError(t, service.ProcessFile(ctx, path, false))
	require.NoError(t, service.ProcessFile(ctx, path, false))

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, int32(1), enricher.calls.Load())
}

func TestIngestService_ProcessFile_ForceReplaces(t *testing.T) {
	service, store, _ := newTestIngest(t)
	dir := t.TempDir()
	path := writeTestFile(t, dir, "note.txt", "first version")
	ctx := context.Background()

	require.NoError(t, service.ProcessFile(ctx, path, false))
	firstID, err := store.GetIDByPath(ctx, mustAbs(t, path))
	require.NoError(t, err)

	writeTestFile(t, dir, "note.txt", "second version")
	require.NoError(t, service.ProcessFile(ctx, path, true))

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEqual(t, firstID, docs[0].ID)

	exists, err := store.Exists(ctx, firstID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngestService_ProcessFile_UnsupportedExtension(t *testing.T) {
	service, store, enricher := newTestIngest(t)
	path := writeTestFile(t, t.TempDir(), "image.png", "not really an image")
	ctx := context.Background()

	err := service.ProcessFile(ctx, path, false)
	require.NoError(t, err)

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, int32(0), enricher.calls.Load())
}

func TestIngestService_ProcessFile_EnrichmentFailureLeavesNoRecord(t *testing.T) {
	service, store, enricher := newTestIngest(t)
	enricher.fail = true
	path := writeTestFile(t, t.TempDir(), "note.txt", "hello world")
	ctx := context.Background()

	err := service.ProcessFile(ctx, path, false)
	assert.ErrorIs(t, err, domain.ErrEnrichment)

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestService_ProcessFile_EnrichmentCacheHit(t *testing.T) {
	service, _, enricher := newTestIngest(t)
	dir := t.TempDir()
	pathA := writeTestFile(t, dir, "a.txt", "identical content")
	pathB := writeTestFile(t, dir, "b.txt", "identical content")
	ctx := context.Background()

	require.NoError(t, service.ProcessFile(ctx, pathA, false))
	require.NoError(t, service.ProcessFile(ctx, pathB, false))

	// Same content hash, second file is served from the cache.
	assert.Equal(t, int32(1), enricher.calls.Load())
}

func TestIngestService_ProcessDirectory_IngestsAllSupported(t *testing.T) {
	service, store, _ := newTestIngest(t)
	dir := t.TempDir()
	writeTestFile(t, dir, "one.txt", "first document")
	writeTestFile(t, dir, "two.md", "second document")
	writeTestFile(t, dir, "skip.bin", "unsupported")
	ctx := context.Background()

	require.NoError(t, service.ProcessDirectory(ctx, dir))

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIngestService_ProcessDirectory_SkipsUnreadableSubdir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are ignored when running as root")
	}
	service, store, _ := newTestIngest(t)
	dir := t.TempDir()
	readable := writeTestFile(t, dir, "readable.txt", "still ingested")
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })
	ctx := context.Background()

	require.NoError(t, service.ProcessDirectory(ctx, dir))

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, mustAbs(t, readable), docs[0].Path)
}

func TestIngestService_ProcessDirectory_MissingRoot(t *testing.T) {
	service, _, _ := newTestIngest(t)

	err := service.ProcessDirectory(context.Background(), filepath.Join(t.TempDir(), "gone"))

	assert.Error(t, err)
}

func TestIngestService_ProcessDirectory_SweepsOrphans(t *testing.T) {
	service, store, _ := newTestIngest(t)
	dir := t.TempDir()
	kept := writeTestFile(t, dir, "kept.txt", "still here")
	removed := writeTestFile(t, dir, "removed.txt", "about to go")
	ctx := context.Background()

	require.NoError(t, service.ProcessDirectory(ctx, dir))
	require.NoError(t, os.Remove(removed))

	require.NoError(t, service.ProcessDirectory(ctx, dir))

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, mustAbs(t, kept), docs[0].Path)
}

func TestIngestService_ProcessDirectory_SweepIgnoresOtherFolders(t *testing.T) {
	service, store, _ := newTestIngest(t)
	watched := t.TempDir()
	elsewhere := t.TempDir()
	outside := writeTestFile(t, elsewhere, "outside.txt", "different tree")
	ctx := context.Background()

	require.NoError(t, service.ProcessFile(ctx, outside, false))
	require.NoError(t, service.ProcessDirectory(ctx, watched))

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestService_RemoveFile(t *testing.T) {
	service, store, _ := newTestIngest(t)
	path := writeTestFile(t, t.TempDir(), "note.txt", "hello world")
	ctx := context.Background()

	require.NoError(t, service.ProcessFile(ctx, path, false))
	require.NoError(t, service.RemoveFile(ctx, path))

	docs, err := store.ListMeta(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestService_RemoveFile_UnknownPathIsNoop(t *testing.T) {
	service, _, _ := newTestIngest(t)

	err := service.RemoveFile(context.Background(), "/nowhere/gone.txt")
	assert.NoError(t, err)
}

func TestIngestService_MoveFile_PreservesIdentity(t *testing.T) {
	service, store, enricher := newTestIngest(t)
	dir := t.TempDir()
	oldPath := writeTestFile(t, dir, "old.txt", "movable content")
	ctx := context.Background()

	require.NoError(t, service.ProcessFile(ctx, oldPath, false))
	id, err := store.GetIDByPath(ctx, mustAbs(t, oldPath))
	require.NoError(t, err)

	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.Rename(oldPath, newPath))
	require.NoError(t, service.MoveFile(ctx, oldPath, newPath))

	doc, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, mustAbs(t, newPath), doc.Path)
	assert.Equal(t, "new.txt", doc.Filename)
	assert.Equal(t, "movable content", doc.Text)

	// No re-parse or re-enrich happened.
	assert.Equal(t, int32(1), enricher.calls.Load())

	_, err = store.GetIDByPath(ctx, mustAbs(t, oldPath))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestService_MoveFile_UnknownSourceIngestsDestination(t *testing.T) {
	service, store, _ := newTestIngest(t)
	dir := t.TempDir()
	newPath := writeTestFile(t, dir, "new.txt", "appeared by move")
	ctx := context.Background()

	err := service.MoveFile(ctx, filepath.Join(dir, "never-seen.txt"), newPath)
	require.NoError(t, err)

	id, err := store.GetIDByPath(ctx, mustAbs(t, newPath))
	require.NoError(t, err)

	doc, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "appeared by move", doc.Text)
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}
