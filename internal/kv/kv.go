// Package kv implements the typed key-value view of a session.
//
// Values are persisted with an explicit type tag so retrieval returns the
// original type - a boolean never comes back as a string. The key namespace
// is independent from the filesystem view's.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentfs/agentfs/internal/record"
)

// Collection is the record-store collection holding KV entries.
const Collection = "kv"

// ErrNotFound reports a get on a missing key. A missing key is an explicit
// result, never a default value.
var ErrNotFound = errors.New("key not found")

// ErrInvalidKey reports an empty key.
var ErrInvalidKey = errors.New("invalid key")

// KV is the key-value view over a session's record store.
// Each call is one atomic record-store batch; calls on the same key are
// linearizable with respect to each other.
type KV struct {
	store *record.Store
}

// New creates a key-value view.
func New(store *record.Store) *KV {
	return &KV{store: store}
}

// Set stores value under key, overwriting any previous value. No history is
// retained.
func (k *KV) Set(ctx context.Context, key string, value Value) error {
	if key == "" {
		return ErrInvalidKey
	}
	data, err := marshalValue(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return k.store.BatchWrite(ctx, []record.Op{record.Put(Collection, []byte(key), data)})
}

// Get returns the value stored under key with its original type.
// Returns ErrNotFound if the key is absent.
func (k *KV) Get(ctx context.Context, key string) (Value, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	data, err := k.store.Get(ctx, Collection, []byte(key))
	if errors.Is(err, record.ErrNotFound) {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	v, err := unmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return v, nil
}

// Delete removes key. Deleting an absent key succeeds silently.
func (k *KV) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return k.store.BatchWrite(ctx, []record.Op{record.Delete(Collection, []byte(key))})
}

// Has reports whether key exists.
func (k *KV) Has(ctx context.Context, key string) (bool, error) {
	_, err := k.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Keys returns all keys with the given prefix in lexicographic order.
// An empty prefix returns every key.
func (k *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	start := []byte(prefix)
	end := prefixEnd(prefix)

	recs, err := k.store.ScanRange(ctx, Collection, start, end)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(recs))
	for _, rec := range recs {
		keys = append(keys, string(rec.Key))
	}
	return keys, nil
}

// prefixEnd returns the exclusive upper bound of the key range sharing a
// prefix, or nil when the prefix is empty or unbounded (all 0xff).
func prefixEnd(prefix string) []byte {
	if prefix == "" {
		return nil
	}
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// IsNotFound returns true if the error is a missing-key error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
