package record

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - records + sequences tables
const currentSchemaVersion = 1

// ErrNotFound reports a lookup on an absent key.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable reports an underlying storage I/O failure. It is fatal to
// the in-flight operation, not to the session; no layer retries on it.
var ErrUnavailable = errors.New("store unavailable")

// Store is one session's key-ordered record store backed by SQLite.
// Uses WAL mode for concurrent read access and a single write connection
// so batches touching overlapping keys are serialized, never interleaved.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY and makes every transaction a serialization point.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
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
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// No incremental migrations yet; schema.sql is the whole of v1.

	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// unavailable wraps a raw database error as ErrUnavailable so higher layers
// can distinguish infrastructure failure from structural errors.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// Get returns the value stored under (collection, key).
// Returns ErrNotFound if the key is absent.
func (s *Store) Get(ctx context.Context, collection string, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM records
		WHERE collection = ? AND key = ?
	`, collection, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%q: %w", collection, key, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return value, nil
}

// ScanRange returns all records in [start, end) of a collection in ascending
// key order. A nil end means "to the end of the collection". Returns an empty
// slice (not nil) when nothing matches.
func (s *Store) ScanRange(ctx context.Context, collection string, start, end []byte) ([]Record, error) {
	var records []Record
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		records, err = tx.ScanRange(collection, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// BatchWrite applies an ordered sequence of put/delete operations in one
// atomic transaction. Zero ops is a no-op success.
func (s *Store) BatchWrite(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	return s.Update(ctx, func(tx *Tx) error {
		for _, op := range ops {
			if err := tx.Apply(op); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update runs fn inside a read-write transaction. The transaction commits if
// fn returns nil and rolls back otherwise - either every mutation fn issued
// is visible, or none is.
func (s *Store) Update(ctx context.Context, fn func(*Tx) error) error {
	return s.inTx(ctx, fn)
}

// View runs fn inside a transaction used only for reads, giving fn a
// consistent snapshot across multiple Get/ScanRange calls.
func (s *Store) View(ctx context.Context, fn func(*Tx) error) error {
	return s.inTx(ctx, fn)
}

func (s *Store) inTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&Tx{ctx: ctx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}
