package source

import (
	"context"
	"fmt"
	"log/slog"

	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
	"github.com/docsearch-io/docsearch/pkg/postgres"
)

// PostgresSource enumerates documents from a database table with title,
// path, and content columns, ordered by primary key so document IDs are
// assigned the same way on every rebuild.
type PostgresSource struct {
	client *postgres.Client
	table  string
	logger *slog.Logger
}

func NewPostgresSource(client *postgres.Client, table string) *PostgresSource {
	return &PostgresSource{
		client: client,
		table:  table,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

func (s *PostgresSource) Documents(ctx context.Context) ([]RawDocument, error) {
	query := fmt.Sprintf("SELECT title, path, content FROM %s ORDER BY id", s.table)
	rows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", dserrors.ErrSourceUnavailable, s.table, err)
	}
	defer rows.Close()

	var docs []RawDocument
	for rows.Next() {
		var doc RawDocument
		if err := rows.Scan(&doc.Title, &doc.Path, &doc.Content); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", dserrors.ErrSourceUnavailable, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating rows: %v", dserrors.ErrSourceUnavailable, err)
	}
	s.logger.Debug("documents enumerated", "table", s.table, "count", len(docs))
	return docs, nil
}
