package driven

import (
	"context"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

// Parser extracts text and metadata from files of specific formats.
// Implementations compute the document ID as a deterministic hash of the
// extracted text and fill metadata best-effort.
type Parser interface {
	// Extensions returns the lower-cased, dot-prefixed file extensions
	// this parser handles.
	Extensions() []string

	// Parse reads the file and returns the extracted document.
	// Returns an error wrapping domain.ErrParse when the content cannot
	// be decoded.
	Parse(ctx context.Context, path string) (*domain.Document, error)
}

// ParserRegistry resolves parsers by file extension.
// Matching is case-insensitive and exact; there is no content sniffing.
type ParserRegistry interface {
	// Register associates a parser with all of its extensions.
	Register(p Parser)

	// Resolve returns the parser for an extension, or an error wrapping
	// domain.ErrUnsupportedFormat.
	Resolve(ext string) (Parser, error)

	// Supported returns the sorted list of registered extensions.
	Supported() []string
}
