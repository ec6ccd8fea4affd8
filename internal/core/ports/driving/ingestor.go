package driving

import "context"

// Ingestor runs the parse-enrich-persist pipeline for files under the
// watch root. All operations are file-scoped and idempotent: failures on
// one file never affect its siblings.
type Ingestor interface {
	// ProcessFile ingests one file. An existing record for the path is
	// skipped unless force is set, in which case it is replaced.
	// Unsupported extensions are skipped silently.
	ProcessFile(ctx context.Context, path string, force bool) error

	// ProcessDirectory recursively ingests every file under dir, then
	// deletes store records under dir whose backing file is gone.
	ProcessDirectory(ctx context.Context, dir string) error

	// RemoveFile deletes the record for a path. No-op when absent.
	RemoveFile(ctx context.Context, path string) error

	// MoveFile re-points the record at oldPath to newPath without
	// re-parsing. Falls back to a fresh ingest of newPath when no record
	// exists for oldPath.
	MoveFile(ctx context.Context, oldPath, newPath string) error
}
