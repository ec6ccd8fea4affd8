package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input,
	// e.g. a query with neither topic nor keyword.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates no parser is registered for a file
	// extension. Callers treat it as a silent skip, not a failure.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParse indicates a resolved parser could not decode the file.
	// File-scoped: one bad file never stops a directory scan.
	ErrParse = errors.New("parse failed")

	// ErrEnrichment indicates the enrichment call failed or returned
	// malformed data. The file's ingestion is aborted; no partial record
	// is persisted.
	ErrEnrichment = errors.New("enrichment failed")

	// ErrWatcherRunning indicates Start was called on a running engine.
	ErrWatcherRunning = errors.New("watcher already running")

	// ErrWatcherStopped indicates an operation on a stopped engine.
	ErrWatcherStopped = errors.New("watcher not running")
)
