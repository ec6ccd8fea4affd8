// Package pdf parses PDF files. Text extraction uses ledongthuc/pdf; page
// counting and structural validation use pdfcpu.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles PDF files.
type Parser struct{}

// New creates a PDF parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the file extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{".pdf"}
}

// Parse extracts the text of every page and counts pages.
func (p *Parser) Parse(_ context.Context, path string) (*domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrParse, path, err)
	}

	text, err := extractText(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, path, err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: page count %s: %v", domain.ErrParse, path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &domain.Document{
		ID:       parsers.HashText(text),
		Filename: filepath.Base(path),
		Path:     abs,
		Text:     text,
		Metadata: domain.Metadata{
			Filename:  filepath.Base(path),
			SizeBytes: info.Size(),
			MIME:      "application/pdf",
			Pages:     domain.IntPtr(pages),
		},
	}, nil
}

// extractText pulls plain text from every page.
// The reader library panics on some malformed files, so the whole
// extraction runs under a recover guard and reports those as errors.
func extractText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", err
	}
	return buf.String(), nil
}
