// Package store physically constructs a loam store from decorated entity
// streams. The bulk builder bypasses the transactional write path: the target
// SQLite file is opened with journaling and synchronous writes disabled, so a
// failed run leaves the store in an indeterminate state by design.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/loamdb/loam/errors"
)

// StoreFileName is the store's primary record file inside the target directory
const StoreFileName = "loam.store"

// Config is the resource budget and pass-through database settings handed to
// the builder at Preparing. Immutable for the run.
type Config struct {
	// Processors sizes the writer pool; 0 means one per logical CPU
	Processors int
	// MaxMemory bounds the bytes held in flight between the drain loop and
	// the writers
	MaxMemory uint64
	// HighIO enables denser write batching for devices that take parallel IO
	HighIO bool
	// BatchSize overrides the derived rows-per-batch when > 0
	BatchSize int

	// Pass-through database configuration, recorded in store metadata and
	// not reinterpreted here
	RecordFormat    string
	TimezoneDefault string
	NormalizeTypes  bool
}

// withDefaults resolves derived values
func (c Config) withDefaults() Config {
	if c.Processors <= 0 {
		c.Processors = runtime.NumCPU()
	}
	if c.MaxMemory == 0 {
		c.MaxMemory = 1 << 30
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1_000
		if c.HighIO {
			c.BatchSize = 10_000
		}
	}
	return c
}

// openStore opens the target store file for bulk writing and lays down the
// record tables. Durability is deliberately off; the orchestrator owns the
// warning about half-built stores.
func openStore(targetDir string) (*sql.DB, error) {
	path := filepath.Join(targetDir, StoreFileName)
	dsn := fmt.Sprintf("file:%s?_journal_mode=OFF&_synchronous=OFF", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open store at %s", path)
	}
	// With journaling off, concurrent connections could interleave partial
	// writes; batches from the writer pool funnel through one connection
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id       INTEGER PRIMARY KEY,
			input_id TEXT,
			labels   TEXT NOT NULL DEFAULT '[]',
			props    TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			start_id INTEGER NOT NULL,
			end_id   INTEGER NOT NULL,
			type     TEXT NOT NULL,
			props    TEXT NOT NULL DEFAULT '{}'
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to create store schema")
		}
	}
	return db, nil
}

// writeMeta records pass-through database settings and final counts
func writeMeta(db *sql.DB, cfg Config, nodes, rels int64) error {
	rows := [][2]string{
		{"record_format", cfg.RecordFormat},
		{"timezone_default", cfg.TimezoneDefault},
		{"built_at", time.Now().UTC().Format(time.RFC3339)},
		{"node_count", fmt.Sprintf("%d", nodes)},
		{"relationship_count", fmt.Sprintf("%d", rels)},
	}
	for _, kv := range rows {
		if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return errors.Wrap(err, "failed to write store metadata")
		}
	}
	return nil
}
