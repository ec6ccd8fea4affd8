package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docwatch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// docColumns is the full column list in scan order.
const docColumns = "id, filename, path, text, metadata, keywords, topics, summary, summaries, uploaded_at"

// metaColumns is docColumns with the text column blanked for
// metadata-only projections.
const metaColumns = "id, filename, path, '' AS text, metadata, keywords, topics, summary, summaries, uploaded_at"

// Store is a SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docwatch/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docwatch", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "documents.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert inserts or wholesale-replaces a document by ID.
func (s *Store) Upsert(ctx context.Context, doc *domain.Document) (string, error) {
	if doc == nil {
		return "", domain.ErrInvalidInput
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	keywordsJSON, err := json.Marshal(orEmpty(doc.Keywords))
	if err != nil {
		return "", fmt.Errorf("marshalling keywords: %w", err)
	}
	topicsJSON, err := json.Marshal(orEmpty(doc.Topics))
	if err != nil {
		return "", fmt.Errorf("marshalling topics: %w", err)
	}
	summariesJSON, err := json.Marshal(orEmptyMap(doc.Summaries))
	if err != nil {
		return "", fmt.Errorf("marshalling summaries: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, path, text, metadata, keywords, topics, summary, summaries, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			path = excluded.path,
			text = excluded.text,
			metadata = excluded.metadata,
			keywords = excluded.keywords,
			topics = excluded.topics,
			summary = excluded.summary,
			summaries = excluded.summaries,
			uploaded_at = excluded.uploaded_at
	`, doc.ID, doc.Filename, doc.Path, doc.Text, string(metadataJSON),
		string(keywordsJSON), string(topicsJSON), doc.Summary, string(summariesJSON),
		doc.UploadedAt)

	if err != nil {
		return "", fmt.Errorf("saving document: %w", err)
	}
	return doc.ID, nil
}

// Delete removes a document by ID. No-op when absent.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// DeleteByPath removes every record matching the exact path.
func (s *Store) DeleteByPath(ctx context.Context, path string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
	if err != nil {
		return 0, fmt.Errorf("deleting by path: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return int(count), nil
}

// Get retrieves the full record, including text.
func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+docColumns+" FROM documents WHERE id = ?", id)
	return scanDocumentRow(row)
}

// ListMeta returns metadata-only records, newest uploaded first.
func (s *Store) ListMeta(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+metaColumns+" FROM documents ORDER BY uploaded_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// Query returns metadata-only records matching topic OR keyword.
func (s *Store) Query(ctx context.Context, topic, keyword string) ([]domain.Document, error) {
	if topic == "" && keyword == "" {
		return nil, fmt.Errorf("%w: at least one of topic or keyword must be provided",
			domain.ErrInvalidInput)
	}

	var clauses []string
	var args []any
	if topic != "" {
		clauses = append(clauses,
			"EXISTS (SELECT 1 FROM json_each(documents.topics) WHERE json_each.value = ?)")
		args = append(args, topic)
	}
	if keyword != "" {
		clauses = append(clauses,
			"EXISTS (SELECT 1 FROM json_each(documents.keywords) WHERE json_each.value = ?)")
		args = append(args, keyword)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+metaColumns+" FROM documents WHERE "+strings.Join(clauses, " OR ")+
			" ORDER BY uploaded_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// Exists reports whether a document with the given ID exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return count > 0, nil
}

// GetIDByPath returns the ID of a record at the given path.
func (s *Store) GetIDByPath(ctx context.Context, path string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE path = ? LIMIT 1", path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up by path: %w", err)
	}
	return id, nil
}

// SetSummary upserts one entry of the per-length summary map. The write
// is a single json_set statement, concurrent calls for different
// lengths both land.
func (s *Store) SetSummary(ctx context.Context, id string, length int, summary string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET summaries = json_set(
			CASE WHEN summaries IS NULL OR summaries = '' THEN '{}' ELSE summaries END,
			'$."' || ? || '"', ?)
		WHERE id = ?`,
		strconv.Itoa(length), summary, id)
	if err != nil {
		return fmt.Errorf("updating summaries: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating summaries: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// collectDocuments scans all rows into documents.
func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// scanDocumentRow scans a single document row.
func scanDocumentRow(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON, keywordsJSON, topicsJSON, summariesJSON string

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Path, &doc.Text,
		&metadataJSON, &keywordsJSON, &topicsJSON, &doc.Summary,
		&summariesJSON, &doc.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := unmarshalJSONColumns(&doc, metadataJSON, keywordsJSON, topicsJSON, summariesJSON); err != nil {
		return nil, err
	}
	return &doc, nil
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON, keywordsJSON, topicsJSON, summariesJSON string

	if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Path, &doc.Text,
		&metadataJSON, &keywordsJSON, &topicsJSON, &doc.Summary,
		&summariesJSON, &doc.UploadedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := unmarshalJSONColumns(&doc, metadataJSON, keywordsJSON, topicsJSON, summariesJSON); err != nil {
		return nil, err
	}
	return &doc, nil
}

// unmarshalJSONColumns fills the JSON-encoded fields of a scanned document.
func unmarshalJSONColumns(doc *domain.Document, metadataJSON, keywordsJSON, topicsJSON, summariesJSON string) error {
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &doc.Keywords); err != nil {
			return fmt.Errorf("unmarshalling keywords: %w", err)
		}
	}
	if topicsJSON != "" {
		if err := json.Unmarshal([]byte(topicsJSON), &doc.Topics); err != nil {
			return fmt.Errorf("unmarshalling topics: %w", err)
		}
	}
	if summariesJSON != "" {
		if err := json.Unmarshal([]byte(summariesJSON), &doc.Summaries); err != nil {
			return fmt.Errorf("unmarshalling summaries: %w", err)
		}
	}
	if len(doc.Summaries) == 0 {
		doc.Summaries = nil
	}
	return nil
}

// orEmpty keeps JSON columns as [] rather than null.
func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// orEmptyMap keeps JSON columns as {} rather than null.
func orEmptyMap(m map[int]string) map[int]string {
	if m == nil {
		return map[int]string{}
	}
	return m
}
