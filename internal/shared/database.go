package shared

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Busy timeout lets the maintenance flusher and request handlers share the
// file without immediate SQLITE_BUSY failures.
const sqliteParams = "?_busy_timeout=5000&_foreign_keys=on"

// NewDatabase opens the sqlite store at path, creating the file on first
// use. Pass ":memory:" for an ephemeral store in tests. The connection is
// pinged so a bad path fails here rather than at the first query.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase applies the configured connection pool limits.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}
