// Package docx parses Microsoft Word documents. A .docx file is a zip
// archive; text lives in word/document.xml and document properties in
// docProps/core.xml, both read with the standard library.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

const wordMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Parser handles Word documents.
type Parser struct{}

// New creates a DOCX parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the file extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{".docx"}
}

// Parse extracts paragraph and table text plus core document properties.
func (p *Parser) Parse(_ context.Context, path string) (*domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrParse, path, err)
	}

	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrParse, path, err)
	}
	defer archive.Close()

	body, err := readArchiveFile(archive, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, path, err)
	}

	text, paragraphs, tables, err := extractBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, path, err)
	}

	meta := domain.Metadata{
		Filename:   filepath.Base(path),
		SizeBytes:  info.Size(),
		MIME:       wordMIME,
		Paragraphs: domain.IntPtr(paragraphs),
		Tables:     domain.IntPtr(tables),
	}

	// Core properties are optional; their absence is not a parse failure.
	if props, err := readArchiveFile(archive, "docProps/core.xml"); err == nil {
		fillCoreProps(&meta, props)
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
		Metadata: meta,
	}, nil
}

// readArchiveFile returns the contents of one file inside the archive.
func readArchiveFile(archive *zip.ReadCloser, name string) ([]byte, error) {
	for _, f := range archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing %s", name)
}

// extractBody walks document.xml collecting paragraph text (joined with
// blank lines) followed by table rows (cells joined with " | "). Returns
// the assembled text plus body-level paragraph and table counts.
func extractBody(data []byte) (string, int, int, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var (
		paragraphs []string
		tableRows  []string

		current   strings.Builder
		cells     []string
		tblDepth  int
		paraCount int
		tblCount  int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, 0, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					tblCount++
				}
			case "tr":
				cells = cells[:0]
			case "tc":
				current.Reset()
			case "p":
				if tblDepth == 0 {
					paraCount++
					current.Reset()
				}
			case "t":
				var content string
				if err := dec.DecodeElement(&content, &t); err != nil {
					return "", 0, 0, err
				}
				current.WriteString(content)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth--
			case "tr":
				row := joinNonEmpty(cells, " | ")
				if row != "" {
					tableRows = append(tableRows, row)
				}
			case "tc":
				cells = append(cells, strings.TrimSpace(current.String()))
				current.Reset()
			case "p":
				if tblDepth == 0 {
					if s := strings.TrimSpace(current.String()); s != "" {
						paragraphs = append(paragraphs, s)
					}
					current.Reset()
				}
			}
		}
	}

	text := strings.Join(paragraphs, "\n\n")
	for _, row := range tableRows {
		text += "\n" + row
	}
	return text, paraCount, tblCount, nil
}

// joinNonEmpty joins the non-empty elements with sep.
func joinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// coreProperties mirrors the Dublin Core fields of docProps/core.xml.
type coreProperties struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

// fillCoreProps copies embedded document properties into the metadata,
// leaving fields absent when the archive does not record them.
func fillCoreProps(meta *domain.Metadata, data []byte) {
	var props coreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return
	}

	meta.Title = props.Title
	meta.Author = props.Creator

	if t, err := time.Parse(time.RFC3339, props.Created); err == nil {
		meta.Created = &t
	}
	if t, err := time.Parse(time.RFC3339, props.Modified); err == nil {
		meta.Modified = &t
	}
}
