package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
)

// FSSource reads plain-text documents from a directory. Files ending in
// .txt are enumerated in sorted name order; the file name becomes the
// document title.
type FSSource struct {
	dir    string
	logger *slog.Logger
}

func NewFSSource(dir string) *FSSource {
	return &FSSource{
		dir:    dir,
		logger: slog.Default().With("component", "fs-source"),
	}
}

func (s *FSSource) Documents(ctx context.Context) ([]RawDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading directory %s: %v", dserrors.ErrSourceUnavailable, s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]RawDocument, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", dserrors.ErrSourceUnavailable, path, err)
		}
		docs = append(docs, RawDocument{
			Title:   name,
			Path:    path,
			Content: string(content),
		})
	}
	s.logger.Debug("documents enumerated", "dir", s.dir, "count", len(docs))
	return docs, nil
}
