package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteClient opens a file-backed (or in-memory) SQLite database. This is
// the default index backend: no server to run, and the file sits next to
// the transcript store.
type SQLiteClient struct {
	db   *sql.DB
	path string
}

// NewSQLiteClient constructs a SQLite client for the given database path.
// Use ":memory:" for an ephemeral database in tests.
func NewSQLiteClient(path string) *SQLiteClient {
	return &SQLiteClient{path: path}
}

// Connect opens the database file and verifies connectivity.
func (c *SQLiteClient) Connect(ctx context.Context) error {
	if c.path == "" {
		return fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", c.path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite: single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	c.db = db
	return nil
}

// Close closes the underlying handle.
func (c *SQLiteClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the underlying handle for query/exec operations.
func (c *SQLiteClient) DB() *sql.DB {
	return c.db
}

// Driver reports the SQL dialect.
func (c *SQLiteClient) Driver() string {
	return "sqlite"
}
