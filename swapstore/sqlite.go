package swapstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if necessary) a SQLite-backed Repository at
// path using the pure-Go modernc.org/sqlite driver, so the binary needs no
// cgo toolchain.
//
// golang-migrate's sqlite3 database driver is built against
// mattn/go-sqlite3's cgo bindings and doesn't accept a modernc
// *sql.DB/*sql.Conn; since the schema here is a single table, the initial
// migration is applied directly instead (see migrations/0001_init.up.sql).
func OpenSQLite(path string) (Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("swapstore: open sqlite: %w", err)
	}
	// modernc.org/sqlite serialises writes internally; a single
	// connection avoids SQLITE_BUSY under concurrent goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteInitSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("swapstore: apply sqlite schema: %w", err)
	}

	return &sqlRepo{db: db, numberedPlaceholders: false}, nil
}

const sqliteInitSchema = `
CREATE TABLE IF NOT EXISTS swaps (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS swaps_status_idx ON swaps (status);
CREATE INDEX IF NOT EXISTS swaps_kind_idx ON swaps (kind);
CREATE INDEX IF NOT EXISTS swaps_created_at_idx ON swaps (created_at);
`
