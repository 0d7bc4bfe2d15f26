// Package index provides the SQLite-backed document cache: change
// classification, node and link storage, and optional FTS5 full-text search.
// The cache is derived state; deleting the database and resyncing rebuilds
// it in full from the markdown files.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	path        TEXT UNIQUE NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	hash        INTEGER NOT NULL DEFAULT 0,
	tags        TEXT NOT NULL DEFAULT '[]',
	frontmatter TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL DEFAULT 0,
	modified_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS aliases (
	alias       TEXT NOT NULL,
	document_id TEXT NOT NULL,
	UNIQUE(alias, document_id)
);

CREATE INDEX IF NOT EXISTS idx_aliases_document ON aliases(document_id);

CREATE TABLE IF NOT EXISTS nodes (
	id          INTEGER PRIMARY KEY,
	document_id TEXT NOT NULL,
	parent_id   INTEGER,
	kind        TEXT NOT NULL,
	range_start INTEGER NOT NULL,
	range_end   INTEGER NOT NULL,
	payload     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_nodes_document ON nodes(document_id);
CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(document_id, kind);

CREATE TABLE IF NOT EXISTS links (
	id          INTEGER PRIMARY KEY,
	from_id     TEXT NOT NULL,
	to_id       TEXT,
	raw_target  TEXT NOT NULL,
	range_start INTEGER NOT NULL,
	range_end   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_links_from ON links(from_id);
CREATE INDEX IF NOT EXISTS idx_links_to ON links(to_id);
`

// DB wraps a sql.DB with cache-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite cache and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
