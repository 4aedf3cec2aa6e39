package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Record is one (key, value) pair returned by a range scan.
type Record struct {
	Key   []byte
	Value []byte
}

// OpKind discriminates batch operations.
type OpKind int

const (
	// OpPut inserts or overwrites a record.
	OpPut OpKind = iota
	// OpDelete removes a record. Deleting an absent key is a no-op.
	OpDelete
)

// Op is one mutation in an atomic batch.
type Op struct {
	Kind       OpKind
	Collection string
	Key        []byte
	Value      []byte // nil for deletes
}

// Put builds a put operation.
func Put(collection string, key, value []byte) Op {
	return Op{Kind: OpPut, Collection: collection, Key: key, Value: value}
}

// Delete builds a delete operation.
func Delete(collection string, key []byte) Op {
	return Op{Kind: OpDelete, Collection: collection, Key: key}
}

// Tx is a live transaction handed to Update/View closures.
// It is only valid for the duration of the closure.
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Get returns the value under (collection, key) within the transaction's
// snapshot. Returns ErrNotFound if absent.
func (t *Tx) Get(collection string, key []byte) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx, `
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
// key order. A nil end means "to the end of the collection".
func (t *Tx) ScanRange(collection string, start, end []byte) ([]Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if end == nil {
		rows, err = t.tx.QueryContext(t.ctx, `
			SELECT key, value FROM records
			WHERE collection = ? AND key >= ?
			ORDER BY key ASC
		`, collection, start)
	} else {
		rows, err = t.tx.QueryContext(t.ctx, `
			SELECT key, value FROM records
			WHERE collection = ? AND key >= ? AND key < ?
			ORDER BY key ASC
		`, collection, start, end)
	}
	if err != nil {
		return nil, unavailable("scan", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.Value); err != nil {
			return nil, unavailable("scan row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate scan", err)
	}

	return records, nil
}

// Put inserts or overwrites a record.
func (t *Tx) Put(collection string, key, value []byte) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO records (collection, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value
	`, collection, key, value)
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

// Delete removes a record. Deleting an absent key succeeds silently.
func (t *Tx) Delete(collection string, key []byte) error {
	_, err := t.tx.ExecContext(t.ctx, `
		DELETE FROM records
		WHERE collection = ? AND key = ?
	`, collection, key)
	if err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// Apply executes one batch operation.
func (t *Tx) Apply(op Op) error {
	switch op.Kind {
	case OpPut:
		return t.Put(op.Collection, op.Key, op.Value)
	case OpDelete:
		return t.Delete(op.Collection, op.Key)
	default:
		return fmt.Errorf("apply: unknown op kind %d", op.Kind)
	}
}

// NextSequence increments and returns the named counter. The first value
// issued is 1. The increment commits with the enclosing transaction, so a
// rolled-back caller never burns an observable gap, and a committed caller
// can never see the same value twice.
func (t *Tx) NextSequence(name string) (int64, error) {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
	`, name)
	if err != nil {
		return 0, unavailable("next sequence", err)
	}

	var value int64
	err = t.tx.QueryRowContext(t.ctx, `
		SELECT value FROM sequences WHERE name = ?
	`, name).Scan(&value)
	if err != nil {
		return 0, unavailable("next sequence", err)
	}
	return value, nil
}
