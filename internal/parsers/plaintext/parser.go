// Package plaintext parses text-based files: plain text, CSV, Markdown
// and JSON.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// mimeByExt maps supported extensions to media types.
var mimeByExt = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".json": "application/json",
}

// Parser handles text-based formats.
type Parser struct{}

// New creates a plain text parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the file extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{".txt", ".csv", ".md", ".json"}
}

// Parse reads the file, decoding with a fallback chain of encodings, and
// returns a document whose ID is the hash of the decoded text.
func (p *Parser) Parse(_ context.Context, path string) (*domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrParse, path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrParse, path, err)
	}

	text := decode(raw)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeByExt[ext]
	if !ok {
		mime = "text/plain"
	}

	lines := strings.Count(text, "\n") + 1

	return &domain.Document{
		ID:       parsers.HashText(text),
		Filename: filepath.Base(path),
		Path:     abs,
		Text:     text,
		Metadata: domain.Metadata{
			Filename:  filepath.Base(path),
			SizeBytes: info.Size(),
			MIME:      mime,
			Lines:     domain.IntPtr(lines),
		},
	}, nil
}

// decode tries UTF-8, then UTF-16 (both byte orders, BOM-aware), and
// finally falls back to Latin-1, which accepts any byte sequence.
func decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	}
	if s, ok := decodeUTF16(raw); ok {
		return s
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// decodeUTF16 decodes UTF-16 content when a BOM identifies the byte order.
func decodeUTF16(raw []byte) (string, bool) {
	if len(raw) < 2 || len(raw)%2 != 0 {
		return "", false
	}

	var bigEndian bool
	switch {
	case raw[0] == 0xFE && raw[1] == 0xFF:
		bigEndian = true
	case raw[0] == 0xFF && raw[1] == 0xFE:
		bigEndian = false
	default:
		return "", false
	}

	raw = raw[2:]
	units := make([]uint16, len(raw)/2)
	for i := range units {
		if bigEndian {
			units[i] = uint16(raw[i*2])<<8 | uint16(raw[i*2+1])
		} else {
			units[i] = uint16(raw[i*2+1])<<8 | uint16(raw[i*2])
		}
	}
	return string(utf16.Decode(units)), true
}
