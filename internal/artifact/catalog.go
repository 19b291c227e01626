// Package artifact tracks the pipeline's produced outputs.
//
// The catalog is a small SQLite database recording, per artifact file,
// the producing step, the run that made it, its configuration identity
// hash, and its row count. Steps use it to skip re-creating outputs
// whose identity has not changed; everything else about scheduling and
// caching policy lives outside this module.
package artifact

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added UNIQUE index on artifacts.path
const currentSchemaVersion = 1

// Catalog provides durable storage for artifact provenance records.
// Uses SQLite with WAL mode for concurrent read access.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens the catalog database at the given path.
// Applies required pragmas and migrations automatically; safe to call
// repeatedly.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; keep a single connection
	// to avoid SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Record is one artifact provenance entry.
type Record struct {
	RunID    string // run that produced the artifact
	Step     string // producing step name
	Path     string // artifact file path, unique
	Identity string // canonical hash of the producing configuration
	Rows     int64  // row/line count of the artifact, -1 when unknown
}

// Put upserts the provenance record for an artifact path.
func (c *Catalog) Put(ctx context.Context, rec Record) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO artifacts (run_id, step, path, identity, row_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			run_id = excluded.run_id,
			step = excluded.step,
			identity = excluded.identity,
			row_count = excluded.row_count,
			created_at = CURRENT_TIMESTAMP`,
		rec.RunID, rec.Step, rec.Path, rec.Identity, rec.Rows)
	if err != nil {
		return fmt.Errorf("recording artifact %s: %w", rec.Path, err)
	}
	return nil
}

// Lookup returns the provenance record for an artifact path.
func (c *Catalog) Lookup(ctx context.Context, path string) (Record, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT run_id, step, path, identity, row_count
		FROM artifacts WHERE path = ?`, path)

	var rec Record
	err := row.Scan(&rec.RunID, &rec.Step, &rec.Path, &rec.Identity, &rec.Rows)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("looking up artifact %s: %w", path, err)
	}
	return rec, true, nil
}

// UpToDate reports whether an artifact can be reused: the file exists
// on disk and its recorded identity matches. An identity mismatch is
// not an error - the step simply re-runs.
func (c *Catalog) UpToDate(ctx context.Context, path, identity string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	rec, found, err := c.Lookup(ctx, path)
	if err != nil {
		return false, err
	}
	return found && rec.Identity == identity, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec("UPDATE schema_version SET version = ?", currentSchemaVersion); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}
	return nil
}
