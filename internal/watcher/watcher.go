// Package watcher turns filesystem events on the watched folder into
// ingestion pipeline calls.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/logger"
)

var _ driving.WatchEngine = (*Engine)(nil)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256

	// renamePairWindow is how long a RENAME event waits for a matching
	// CREATE before it is treated as a plain deletion.
	renamePairWindow = 500 * time.Millisecond
)

type taskKind int

const (
	taskCreate taskKind = iota
	taskUpdate
	taskRemove
	taskMove
	taskScan
)

type task struct {
	kind    taskKind
	path    string
	oldPath string
}

// pendingRename is a RENAME event waiting for its CREATE half.
type pendingRename struct {
	path  string
	timer *time.Timer
}

// Engine watches a folder tree and feeds events through a bounded queue
// into a pool of ingestion workers.
type Engine struct {
	root      string
	ingestor  driving.Ingestor
	workers   int
	queueSize int

	state atomic.Int32

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	queue   chan task
	pending *pendingRename
	closing bool

	workerWG   sync.WaitGroup
	observerWG sync.WaitGroup
	enqueueWG  sync.WaitGroup
	cancel     context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the event worker pool size.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithQueueSize sets the bounded event queue capacity.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// NewEngine creates a watch engine rooted at dir.
func NewEngine(dir string, ingestor driving.Ingestor, opts ...Option) *Engine {
	e := &Engine{
		root:      dir,
		ingestor:  ingestor,
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports the engine's lifecycle state.
func (e *Engine) State() driving.WatchState {
	return driving.WatchState(e.state.Load())
}

// Start brings the engine up: it creates the watched folder if missing,
// registers watches over the whole tree, runs a full initial scan, and
// only then begins dispatching live events. Start returns once the
// engine is watching; the caller owns ctx, cancelling it stops nothing
// that Stop would not.
func (e *Engine) Start(ctx context.Context) error {
	if !e.state.CompareAndSwap(
		int32(driving.WatchStopped), int32(driving.WatchStarting),
	) {
		return fmt.Errorf("%w: engine is %s", domain.ErrWatcherRunning, e.State())
	}

	root, err := filepath.Abs(e.root)
	if err != nil {
		e.state.Store(int32(driving.WatchStopped))
		return fmt.Errorf("resolve watch folder: %w", err)
	}
	e.root = root

	if err := os.MkdirAll(root, 0o755); err != nil {
		e.state.Store(int32(driving.WatchStopped))
		return fmt.Errorf("create watch folder: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		e.state.Store(int32(driving.WatchStopped))
		return fmt.Errorf("create filesystem watcher: %w", err)
	}

	// fsnotify is not recursive, every directory needs its own watch.
	if err := addWatchTree(fsw, root); err != nil {
		_ = fsw.Close()
		e.state.Store(int32(driving.WatchStopped))
		return fmt.Errorf("register watches: %w", err)
	}

	// Full scan before live events: everything already in the folder is
	// ingested, and records for files removed while the engine was down
	// are swept.
	e.state.Store(int32(driving.WatchScanning))
	logger.Info("Scanning watch folder: %s", root)
	if err := e.ingestor.ProcessDirectory(ctx, root); err != nil {
		_ = fsw.Close()
		e.state.Store(int32(driving.WatchStopped))
		return fmt.Errorf("initial scan: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.fsw = fsw
	e.queue = make(chan task, e.queueSize)
	e.cancel = cancel
	e.closing = false
	e.mu.Unlock()

	for i := 0; i < e.workers; i++ {
		e.workerWG.Add(1)
		go e.worker(runCtx)
	}

	e.observerWG.Add(1)
	go e.observe()

	e.state.Store(int32(driving.WatchWatching))
	logger.Info("Watching folder: %s", root)
	return nil
}

// Stop shuts the engine down and blocks until in-flight work finishes.
// After Stop returns no further pipeline calls are made.
func (e *Engine) Stop() error {
	if !e.state.CompareAndSwap(
		int32(driving.WatchWatching), int32(driving.WatchStopping),
	) {
		return fmt.Errorf("%w: engine is %s", domain.ErrWatcherStopped, e.State())
	}

	logger.Info("Stopping watch engine")

	e.mu.Lock()
	fsw := e.fsw
	e.mu.Unlock()

	// Closing the watcher ends the observer loop.
	_ = fsw.Close()
	e.observerWG.Wait()

	// Disarm the rename pairing window, then refuse further enqueues so a
	// timer callback that already fired cannot hit a closed queue.
	e.flushPendingRename()
	e.mu.Lock()
	e.closing = true
	e.mu.Unlock()

	// Late enqueues from a previously full queue must land before close.
	e.enqueueWG.Wait()

	e.mu.Lock()
	close(e.queue)
	e.mu.Unlock()
	e.workerWG.Wait()

	e.mu.Lock()
	e.cancel()
	e.fsw = nil
	e.queue = nil
	e.cancel = nil
	e.mu.Unlock()

	e.state.Store(int32(driving.WatchStopped))
	logger.Info("Watch engine stopped")
	return nil
}

// observe translates raw fsnotify events into queue tasks.
func (e *Engine) observe() {
	defer e.observerWG.Done()

	e.mu.Lock()
	fsw := e.fsw
	e.mu.Unlock()

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				e.flushPendingRename()
				return
			}
			e.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				e.flushPendingRename()
				return
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

func (e *Engine) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		e.handleCreate(ev.Name)
	case ev.Op.Has(fsnotify.Write):
		e.enqueue(task{kind: taskUpdate, path: ev.Name})
	case ev.Op.Has(fsnotify.Remove):
		e.enqueue(task{kind: taskRemove, path: ev.Name})
	case ev.Op.Has(fsnotify.Rename):
		e.armPendingRename(ev.Name)
	}
}

// handleCreate pairs the CREATE half of a move when a RENAME is
// pending, and otherwise treats the path as new content. A created
// directory gets watches over its subtree and triggers a root rescan,
// which also re-homes records for files moved in as part of the tree.
func (e *Engine) handleCreate(path string) {
	oldPath, paired := e.takePendingRename()

	info, err := os.Stat(path)
	if err != nil {
		logger.Debug("Stat failed for created path %s: %v", path, err)
		if paired {
			e.enqueue(task{kind: taskRemove, path: oldPath})
		}
		return
	}

	if info.IsDir() {
		e.mu.Lock()
		fsw := e.fsw
		e.mu.Unlock()
		if fsw != nil {
			if err := addWatchTree(fsw, path); err != nil {
				logger.Error("Failed to watch new directory %s: %v", path, err)
			}
		}
		if paired {
			e.enqueue(task{kind: taskRemove, path: oldPath})
		}
		e.enqueue(task{kind: taskScan, path: e.root})
		return
	}

	if paired {
		e.enqueue(task{kind: taskMove, oldPath: oldPath, path: path})
		return
	}
	e.enqueue(task{kind: taskCreate, path: path})
}

// armPendingRename records a RENAME and starts the pairing window. An
// earlier pending rename that never paired is flushed as a deletion.
func (e *Engine) armPendingRename(path string) {
	e.flushPendingRename()

	e.mu.Lock()
	defer e.mu.Unlock()

	p := &pendingRename{path: path}
	p.timer = time.AfterFunc(renamePairWindow, func() {
		e.mu.Lock()
		expired := e.pending == p
		if expired {
			e.pending = nil
		}
		e.mu.Unlock()
		if expired {
			e.enqueue(task{kind: taskRemove, path: path})
		}
	})
	e.pending = p
}

// takePendingRename claims the pending RENAME, if any, for pairing.
func (e *Engine) takePendingRename() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return "", false
	}
	p := e.pending
	e.pending = nil
	p.timer.Stop()
	return p.path, true
}

// flushPendingRename converts an unpaired RENAME into a deletion.
func (e *Engine) flushPendingRename() {
	if path, ok := e.takePendingRename(); ok {
		e.enqueue(task{kind: taskRemove, path: path})
	}
}

// enqueue places a task on the bounded queue. When the queue is full
// the task is handed to a detached goroutine so the observer keeps
// draining fsnotify and the event is not lost. Once Stop begins closing
// the queue, late tasks are dropped.
func (e *Engine) enqueue(t task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue == nil || e.closing {
		logger.Debug("Dropping task during shutdown: %s", t.path)
		return
	}

	select {
	case e.queue <- t:
	default:
		logger.Warn("Event queue full (%d), deferring %s", e.queueSize, t.path)
		queue := e.queue
		e.enqueueWG.Add(1)
		go func() {
			defer e.enqueueWG.Done()
			queue <- t
		}()
	}
}

// worker drains the queue and drives the ingestion pipeline. Per-task
// failures are logged, never fatal.
func (e *Engine) worker(ctx context.Context) {
	defer e.workerWG.Done()

	e.mu.Lock()
	queue := e.queue
	e.mu.Unlock()

	for t := range queue {
		var err error
		switch t.kind {
		case taskCreate:
			err = e.ingestor.ProcessFile(ctx, t.path, false)
		case taskUpdate:
			err = e.ingestor.ProcessFile(ctx, t.path, true)
		case taskRemove:
			err = e.ingestor.RemoveFile(ctx, t.path)
		case taskMove:
			err = e.ingestor.MoveFile(ctx, t.oldPath, t.path)
		case taskScan:
			err = e.ingestor.ProcessDirectory(ctx, t.path)
		}
		if err != nil {
			logger.Error("Failed to handle %s: %v", t.path, err)
		}
	}
}

// addWatchTree registers a watch on dir and every directory below it.
func addWatchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
