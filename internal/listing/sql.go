package listing

import (
	"context"
	"database/sql"
	"fmt"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// SQLStore reads listings through database/sql from a SQLite copy of the jobs table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database %q: %w", path, err)
	}

	return NewSQLStore(db), nil
}

// NewSQLStore wraps an open database that speaks SQLite syntax.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: sqliteDialect}
}

func (s *SQLStore) FetchRecords(ctx context.Context) ([]map[string]any, error) {
	return s.query(ctx, fetchQuery())
}

func (s *SQLStore) SearchRecords(ctx context.Context, keywords []string, limit int) ([]map[string]any, error) {
	query, args := s.dialect.searchQuery(keywords, limit)
	return s.query(ctx, query, args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", Table, err)
	}

	var records []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", Table, err)
		}

		record := make(map[string]any, len(columns))
		for i, column := range columns {
			// drivers may reuse byte buffers between rows
			if b, ok := values[i].([]byte); ok {
				record[column] = string(b)
				continue
			}
			record[column] = values[i]
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", Table, err)
	}

	return records, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
