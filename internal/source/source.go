// Package source supplies ordered document collections to the index builder.
// A Source enumerates (title, path, content) triples; enumeration failure is
// reported as errors.ErrSourceUnavailable and aborts the whole build.
package source

import "context"

// RawDocument is one un-normalized document as supplied by a source.
type RawDocument struct {
	Title   string
	Path    string
	Content string
}

// Source enumerates the document collection in a stable order.
type Source interface {
	Documents(ctx context.Context) ([]RawDocument, error)
}
