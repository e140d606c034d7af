package index

import "database/sql"

// DBProvider is an interface for database clients that expose a sql.DB
// handle. It allows the SQLite and Postgres clients to be used
// interchangeably by the Index.
type DBProvider interface {
	DB() *sql.DB

	// Driver reports which SQL dialect the handle speaks ("sqlite" or
	// "pgx"), used to rebind query placeholders.
	Driver() string
}
