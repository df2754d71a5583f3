package shard

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// reservedTables are the shard-internal tables a sql-sandbox caller may
// never address directly, per the "reserved table names are non-addressable"
// invariant.
var reservedTables = map[string]bool{
	"kv":              true,
	"paste":           true,
	"lock":            true,
	"queue_jobs":      true,
	"memory":          true,
	"content_scans":   true,
	"sqlite_sequence": true,
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	metadata TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER
);

CREATE TABLE IF NOT EXISTS paste (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	title TEXT,
	language TEXT,
	created_at INTEGER NOT NULL,
	expires_at INTEGER
);

CREATE TABLE IF NOT EXISTS lock (
	name TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS queue_jobs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	queue_name TEXT NOT NULL,
	job_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	attempt INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	visible_at INTEGER NOT NULL DEFAULT 0,
	UNIQUE (queue_name, job_id)
);

CREATE TABLE IF NOT EXISTS memory (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	metadata TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS content_scans (
	content_id TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	safe INTEGER NOT NULL,
	confidence REAL NOT NULL,
	reason TEXT,
	scanned_at INTEGER NOT NULL
);
`

// migrate creates the shard schema if absent. Called once, under the
// manager's exclusive per-payer guard, so no request ever sees a
// partially-initialized shard.
func migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}
