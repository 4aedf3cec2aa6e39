// Package record provides the transactional key-ordered storage substrate
// shared by every view in a session.
//
// Records live in logical collections ("fs", "kv", "tools") and are ordered
// by raw byte comparison of their keys. That ordering is load-bearing:
// directory listings and time-ordered ledger scans are plain range scans over
// it.
//
// # Guarantees
//
//   - A batch of mutations commits atomically or not at all.
//   - Writes are serialized by a single SQLite connection; there is no
//     partial visibility between concurrent batches.
//   - Reads inside a View or Update closure observe one consistent snapshot.
//   - Sequences allocated via Tx.NextSequence are strictly increasing and
//     never reused, even across close/reopen.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// I/O failures surface as ErrUnavailable (wrapped); lookups on absent keys
// surface as ErrNotFound. Callers distinguish the two with errors.Is.
package record
