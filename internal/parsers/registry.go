package parsers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps lower-cased, dot-prefixed file extensions to parsers.
// Matching is exact; there is no content sniffing.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]driven.Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Parser)}
}

// Register associates a parser with all of its extensions.
// A later registration for the same extension replaces the earlier one.
func (r *Registry) Register(p driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.Extensions() {
		r.byExt[normaliseExt(ext)] = p
	}
}

// Resolve returns the parser for an extension.
// Returns an error wrapping domain.ErrUnsupportedFormat when none is
// registered; callers in the watch path treat that as a silent skip.
func (r *Registry) Resolve(ext string) (driven.Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byExt[normaliseExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			domain.ErrUnsupportedFormat, ext, strings.Join(r.supportedLocked(), ", "))
	}
	return p, nil
}

// Supported returns the sorted list of registered extensions.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supportedLocked()
}

// supportedLocked returns sorted extensions; caller must hold the lock.
func (r *Registry) supportedLocked() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// normaliseExt lower-cases an extension and ensures the leading dot.
func normaliseExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
