package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docwatch/internal/core/domain"
)

func TestParser_Extensions(t *testing.T) {
	assert.Equal(t, []string{".pdf"}, New().Extensions())
}

func TestParser_Parse_MissingFile(t *testing.T) {
	_, err := New().Parse(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))

	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestParser_Parse_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text pretending"), 0o644))

	_, err := New().Parse(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestParser_Parse_TruncatedPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	// A valid header with no body or xref table.
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0o644))

	_, err := New().Parse(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrParse)
}
