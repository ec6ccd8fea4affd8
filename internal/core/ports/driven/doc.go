// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): document persistence, format parsing and
// text enrichment.
package driven
