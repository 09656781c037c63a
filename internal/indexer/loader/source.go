package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/postgres"
)

// Row is one term read from the reindex source.
type Row struct {
	ID       string
	Term     string
	Data     json.RawMessage
	Priority float64
}

func (r Row) request() *ingestion.IndexRequest {
	return &ingestion.IndexRequest{ID: r.ID, Term: r.Term, Data: r.Data, Priority: r.Priority}
}

// Source streams rows to fn until exhausted, fn fails or ctx ends.
type Source interface {
	Rows(ctx context.Context, fn func(Row) error) error
}

// PostgresSource reads rows from a table with columns
// (id, term, data jsonb, priority).
type PostgresSource struct {
	client *postgres.Client
	query  string
}

// NewPostgresSource builds a source over table, which may be
// schema-qualified.
func NewPostgresSource(client *postgres.Client, table string) (*PostgresSource, error) {
	ident, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	return &PostgresSource{
		client: client,
		query:  "SELECT id, term, data, priority FROM " + ident + " ORDER BY id",
	}, nil
}

func (s *PostgresSource) Rows(ctx context.Context, fn func(Row) error) error {
	return s.client.ReadOnlyTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.query)
		if err != nil {
			return fmt.Errorf("querying reindex source: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id, term string
				data     []byte
				priority sql.NullFloat64
			)
			if err := rows.Scan(&id, &term, &data, &priority); err != nil {
				return fmt.Errorf("scanning reindex row: %w", err)
			}
			if err := fn(Row{ID: id, Term: term, Data: data, Priority: priority.Float64}); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

func quoteTable(table string) (string, error) {
	parts := strings.Split(strings.TrimSpace(table), ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	for i, p := range parts {
		if p == "" {
			return "", fmt.Errorf("invalid table name %q", table)
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}
