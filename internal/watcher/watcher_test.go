package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
)

// recordingIngestor captures pipeline calls for assertions.
type recordingIngestor struct {
	mu      sync.Mutex
	scans   []string
	files   []string
	forced  []string
	removed []string
	moved   [][2]string
}

func (r *recordingIngestor) ProcessFile(_ context.Context, path string, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if force {
		r.forced = append(r.forced, path)
	} else {
		r.files = append(r.files, path)
	}
	return nil
}

func (r *recordingIngestor) ProcessDirectory(_ context.Context, dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, dir)
	return nil
}

func (r *recordingIngestor) RemoveFile(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
	return nil
}

func (r *recordingIngestor) MoveFile(_ context.Context, oldPath, newPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moved = append(r.moved, [2]string{oldPath, newPath})
	return nil
}

func (r *recordingIngestor) snapshot() (scans, files, forced, removed []string, moved [][2]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scans...),
		append([]string(nil), r.files...),
		append([]string(nil), r.forced...),
		append([]string(nil), r.removed...),
		append([][2]string(nil), r.moved...)
}

func startedEngine(t *testing.T) (*Engine, *recordingIngestor, string) {
	t.Helper()

	dir := t.TempDir()
	ingestor := &recordingIngestor{}
	engine := NewEngine(dir, ingestor, WithWorkers(2), WithQueueSize(16))

	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() {
		if engine.State() == driving.WatchWatching {
			_ = engine.Stop()
		}
	})
	return engine, ingestor, dir
}

func TestEngine_InitialStateIsStopped(t *testing.T) {
	engine := NewEngine(t.TempDir(), &recordingIngestor{})

	assert.Equal(t, driving.WatchStopped, engine.State())
}

func TestEngine_Start_ScansThenWatches(t *testing.T) {
	engine, ingestor, dir := startedEngine(t)

	assert.Equal(t, driving.WatchWatching, engine.State())

	scans, _, _, _, _ := ingestor.snapshot()
	require.Len(t, scans, 1)
	assert.Equal(t, dir, scans[0])
}

func TestEngine_Start_CreatesMissingFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	engine := NewEngine(dir, &recordingIngestor{})

	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop() //nolint:errcheck

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEngine_Start_WhileRunning(t *testing.T) {
	engine, _, _ := startedEngine(t)

	err := engine.Start(context.Background())

	assert.Error(t, err)
}

func TestEngine_Stop_WhileStopped(t *testing.T) {
	engine := NewEngine(t.TempDir(), &recordingIngestor{})

	err := engine.Stop()

	assert.Error(t, err)
}

func TestEngine_Stop_ReturnsToStopped(t *testing.T) {
	engine, _, _ := startedEngine(t)

	require.NoError(t, engine.Stop())

	assert.Equal(t, driving.WatchStopped, engine.State())
}

func TestEngine_RestartAfterStop(t *testing.T) {
	engine, ingestor, _ := startedEngine(t)

	require.NoError(t, engine.Stop())
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop() //nolint:errcheck

	assert.Equal(t, driving.WatchWatching, engine.State())

	scans, _, _, _, _ := ingestor.snapshot()
	assert.Len(t, scans, 2)
}

func TestEngine_CreatedFileIsIngested(t *testing.T) {
	_, ingestor, dir := startedEngine(t)

	path := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("fresh content"), 0o644))

	require.Eventually(t, func() bool {
		_, files, _, _, _ := ingestor.snapshot()
		for _, f := range files {
			if f == path {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEngine_RemovedFileIsDeleted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	ingestor := &recordingIngestor{}
	engine := NewEngine(dir, ingestor)
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop() //nolint:errcheck

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		_, _, _, removed, _ := ingestor.snapshot()
		for _, r := range removed {
			if r == path {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEngine_RenameBecomesMove(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("content"), 0o644))

	ingestor := &recordingIngestor{}
	engine := NewEngine(dir, ingestor)
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop() //nolint:errcheck

	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.Rename(oldPath, newPath))

	require.Eventually(t, func() bool {
		_, _, _, _, moved := ingestor.snapshot()
		for _, m := range moved {
			if m[0] == oldPath && m[1] == newPath {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEngine_UnpairedRenameBecomesDelete(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	path := filepath.Join(dir, "leaving.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	ingestor := &recordingIngestor{}
	engine := NewEngine(dir, ingestor)
	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop() //nolint:errcheck

	// Moving out of the watched tree produces a RENAME with no CREATE.
	require.NoError(t, os.Rename(path, filepath.Join(outside, "arrived.txt")))

	require.Eventually(t, func() bool {
		_, _, _, removed, _ := ingestor.snapshot()
		for _, r := range removed {
			if r == path {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEngine_NewSubdirectoryIsWatched(t *testing.T) {
	_, ingestor, dir := startedEngine(t)

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Directory creation triggers a rescan.
	require.Eventually(t, func() bool {
		scans, _, _, _, _ := ingestor.snapshot()
		return len(scans) >= 2
	}, 3*time.Second, 10*time.Millisecond)

	// Files inside the new directory are then seen live.
	path := filepath.Join(sub, "deep.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	require.Eventually(t, func() bool {
		_, files, _, _, _ := ingestor.snapshot()
		for _, f := range files {
			if f == path {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEngine_StopWithPendingRename(t *testing.T) {
	// Stopping while a rename is waiting for its pairing window must not
	// let the expiry callback touch the closed queue.
	for i := 0; i < 6; i++ {
		dir := t.TempDir()
		outside := t.TempDir()
		path := filepath.Join(dir, "leaving.txt")
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

		ingestor := &recordingIngestor{}
		engine := NewEngine(dir, ingestor)
		require.NoError(t, engine.Start(context.Background()))

		require.NoError(t, os.Rename(path, filepath.Join(outside, "arrived.txt")))

		// Straddle the pairing window so the expiry fires around Stop.
		time.Sleep(renamePairWindow - 25*time.Millisecond + time.Duration(i)*10*time.Millisecond)
		require.NoError(t, engine.Stop())
		assert.Equal(t, driving.WatchStopped, engine.State())
	}
}

func TestEngine_StopDrainsQueue(t *testing.T) {
	dir := t.TempDir()
	ingestor := &recordingIngestor{}
	engine := NewEngine(dir, ingestor, WithWorkers(1), WithQueueSize(4))
	require.NoError(t, engine.Start(context.Background()))

	for i := 0; i < 8; i++ {
		name := filepath.Join(dir, filepath.Base(t.Name())+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("content"), 0o644))
	}

	// Give fsnotify a moment to deliver before stopping.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, engine.Stop())

	_, files, forced, _, _ := ingestor.snapshot()
	assert.NotEmpty(t, append(files, forced...))
}
