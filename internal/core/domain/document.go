package domain

import "time"

// Metadata holds structured file and format metadata for a document.
// Fields a parser cannot determine are left at their zero value (strings)
// or nil (pointers) - parsers never fabricate values.
type Metadata struct {
	// Filename is the base name of the source file.
	Filename string `json:"filename"`

	// SizeBytes is the file size on disk at parse time.
	SizeBytes int64 `json:"size_bytes"`

	// MIME is the media type derived from the file extension.
	MIME string `json:"mime"`

	// Title and Author come from embedded document properties when present.
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`

	// Created and Modified are embedded document timestamps, not
	// filesystem times.
	Created  *time.Time `json:"created,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`

	// Format-specific counts.
	Pages      *int `json:"pages,omitempty"`
	Lines      *int `json:"lines,omitempty"`
	Paragraphs *int `json:"paragraphs,omitempty"`
	Tables     *int `json:"tables,omitempty"`

	// Creator is the producing application, when the format records one.
	Creator string `json:"creator,omitempty"`
}

// Document is the canonical record for one ingested file.
// Parsers produce it with ID, Path, Text and Metadata filled; the ingestion
// pipeline adds Keywords, Topics and Summary before persisting.
type Document struct {
	// ID is a hex-encoded hash of the extracted text. Identical content
	// ingested from different paths therefore collides onto one record;
	// the last writer wins on path metadata.
	ID string `json:"id"`

	// Filename is the base name of the source file.
	Filename string `json:"filename"`

	// Path is the absolute path the file was ingested from. It is the
	// natural key for all filesystem-driven lookups.
	Path string `json:"path"`

	// Text is the full extracted content. Metadata-only projections
	// returned by ListMeta and Query have it blanked.
	Text string `json:"text"`

	Metadata Metadata `json:"metadata"`

	// Keywords and Topics are filled by enrichment (at most 15 and 10).
	Keywords []string `json:"keywords,omitempty"`
	Topics   []string `json:"topics,omitempty"`

	// Summary is the enrichment summary produced at ingestion time.
	Summary string `json:"summary,omitempty"`

	// Summaries holds on-demand summaries keyed by requested word length.
	Summaries map[int]string `json:"summaries,omitempty"`

	// UploadedAt is when the record was first written to the store.
	UploadedAt time.Time `json:"uploaded_at"`
}

// WithoutText returns a metadata-only copy of the document.
// A record with blanked text must never be written back to the store.
func (d Document) WithoutText() Document {
	d.Text = ""
	return d
}

// IntPtr is a convenience for filling optional metadata counts.
func IntPtr(v int) *int { return &v }
