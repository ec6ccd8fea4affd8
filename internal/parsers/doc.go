// Package parsers provides implementations of the Parser interface for the
// supported document formats, plus the extension-keyed registry that
// resolves them.
//
// Parsers are registered explicitly at process start; there is no dynamic
// discovery.
package parsers
