// Package builder constructs an index snapshot from a document source in a
// single non-incremental pass.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docsearch-io/docsearch/internal/analyzer"
	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/internal/source"
)

// Builder turns a document collection into an immutable index.Snapshot.
type Builder struct {
	workers int
	logger  *slog.Logger
}

func New(workers int) *Builder {
	if workers < 1 {
		workers = 1
	}
	return &Builder{
		workers: workers,
		logger:  slog.Default().With("component", "index-builder"),
	}
}

// analyzed holds the per-document output of the analyzer. contentLength is
// the surviving token count used as the term-frequency denominator.
type analyzed struct {
	positions     map[string][]int
	contentLength int
}

// Build enumerates src and produces the inverted index, document table, and
// trie as one snapshot. Document IDs are assigned sequentially from 1 in
// enumeration order. There is no partial success: any enumeration failure
// aborts the build and no snapshot is published.
func (b *Builder) Build(ctx context.Context, src source.Source) (*index.Snapshot, error) {
	start := time.Now()
	docs, err := src.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating documents: %w", err)
	}

	// Analysis is pure per document, so it fans out. Assembly below stays
	// sequential to keep ID assignment and posting order deterministic.
	results := make([]analyzed, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			positions := analyzer.AnalyzeWithPositions(docs[i].Content)
			length := 0
			for _, pos := range positions {
				length += len(pos)
			}
			results[i] = analyzed{positions: positions, contentLength: length}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyzing documents: %w", err)
	}

	snap := index.NewSnapshot()
	for i, doc := range docs {
		docID := i + 1
		snap.Docs[docID] = index.Document{
			ID:            docID,
			Title:         doc.Title,
			Path:          doc.Path,
			ContentLength: results[i].contentLength,
		}
		for term, positions := range results[i].positions {
			if _, seen := snap.Inverted[term]; !seen {
				snap.Vocab.Insert(term)
			}
			snap.Inverted[term] = append(snap.Inverted[term], index.Posting{
				DocID:     docID,
				Positions: positions,
			})
		}
	}

	b.logger.Info("index built",
		"documents", snap.DocCount(),
		"terms", snap.TermCount(),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return snap, nil
}
