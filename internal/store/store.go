// Package store provides the document database behind every mutation:
// flat collections of JSON documents with get/insert/patch/delete and
// indexed field lookups, persisted in SQLite.
//
// Atomicity model: each store call is atomic (single statement or a
// transaction), and the connection configuration makes the process the
// database's single writer. Mutations that span several store calls are
// not wrapped in one transaction; callers order validation before their
// first write so expected failures leave no partial state, but a storage
// failure partway through a multi-call mutation can.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - pre-versioned databases
// 1 - initial document schema with expression indexes
const currentSchemaVersion = 1

// IDGenerator produces document ids. Implemented by UUIDv7Generator
// (production) and fixed-sequence generators (tests).
type IDGenerator interface {
	Generate() string
}

// Clock provides the timestamp stamped onto documents at insert.
// Implemented by SystemClock (production) and deterministic clocks (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Store is a SQLite-backed document database.
type Store struct {
	db    *sql.DB
	idgen IDGenerator
	clock Clock
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithIDGenerator overrides the document id generator.
// Tests use this with a fixed-sequence generator for deterministic ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.idgen = g }
}

// WithClock overrides the insert-timestamp clock.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically; idempotent.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - a single connection, so this process is the single writer
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
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

	s := &Store{
		db:    db,
		idgen: UUIDv7Generator{},
		clock: SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Now reads the store's clock. Callers stamping their own timestamp
// fields use this so overridden test clocks govern every timestamp.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
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

// applySchema creates the documents table and indexes if missing and
// records the schema version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}
