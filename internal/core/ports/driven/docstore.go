package driven

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// DocumentStore persists document records. Backed by SQLite.
//
// Path is the natural key for filesystem-driven lookups, but uniqueness is
// enforced by the pipeline's delete-before-replace flow, not by the store.
type DocumentStore interface {
	// Upsert inserts or wholesale-replaces a document by ID, assigning a
	// fresh ID when the record carries none. Returns the record's ID.
	Upsert(ctx context.Context, doc *domain.Document) (string, error)

	// Delete removes a document by ID. Deleting an absent ID is a no-op.
	Delete(ctx context.Context, id string) error

	// DeleteByPath removes every record whose path matches exactly and
	// returns how many were removed.
	DeleteByPath(ctx context.Context, path string) (int, error)

	// Get retrieves the full record, including text.
	// Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListMeta returns metadata-only records (text blanked), newest
	// uploaded first.
	ListMeta(ctx context.Context) ([]domain.Document, error)

	// Query returns metadata-only records whose topics match topic OR
	// whose keywords match keyword. At least one filter must be given;
	// otherwise domain.ErrInvalidInput.
	Query(ctx context.Context, topic, keyword string) ([]domain.Document, error)

	// Exists reports whether a document with the given ID exists.
	Exists(ctx context.Context, id string) (bool, error)

	// GetIDByPath returns the ID of a record at the given path.
	// Returns domain.ErrNotFound when no record matches.
	GetIDByPath(ctx context.Context, path string) (string, error)

	// SetSummary upserts one entry of the per-length summary map without
	// touching any other field. Returns domain.ErrNotFound for a missing
	// ID.
	SetSummary(ctx context.Context, id string, length int, summary string) error
}
