package listing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads listings from the crawler's PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) FetchRecords(ctx context.Context) ([]map[string]any, error) {
	return s.query(ctx, fetchQuery())
}

func (s *PostgresStore) SearchRecords(ctx context.Context, keywords []string, limit int) ([]map[string]any, error) {
	query, args := postgresDialect.searchQuery(keywords, limit)
	return s.query(ctx, query, args...)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", Table, err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("reading %s rows: %w", Table, err)
	}

	return records, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
