package driving

import "context"

// WatchState is the lifecycle state of the watch engine.
type WatchState int32

// Watch engine states. Transitions are strictly
// Stopped -> Starting -> Scanning -> Watching -> Stopping -> Stopped.
const (
	WatchStopped WatchState = iota
	WatchStarting
	WatchScanning
	WatchWatching
	WatchStopping
)

// String returns the lower-case state name.
func (s WatchState) String() string {
	switch s {
	case WatchStopped:
		return "stopped"
	case WatchStarting:
		return "starting"
	case WatchScanning:
		return "scanning"
	case WatchWatching:
		return "watching"
	case WatchStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// WatchEngine observes one root folder recursively and keeps the document
// store consistent with it by dispatching filesystem events to an Ingestor.
type WatchEngine interface {
	// Start creates the watch root if absent, runs a full scan through
	// the ingestion pipeline, then begins dispatching live events.
	// Startup failures (unreadable root, watch registration) propagate.
	Start(ctx context.Context) error

	// Stop unregisters the watch and blocks until the observer goroutine
	// and all in-flight event tasks have drained. No notification is
	// processed after Stop returns.
	Stop() error

	// State reports the current lifecycle state.
	State() WatchState
}
