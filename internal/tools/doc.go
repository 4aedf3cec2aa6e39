// Package tools implements the append-only tool-invocation ledger of a
// session.
//
// Three key families share the "tools" collection:
//
//	'c' + id(8)              call record, keyed by monotonic id
//	's' + name               per-name aggregate statistics
//	't' + start(8) + id(8)   time index for recency scans
//
// Ids come from a store-backed sequence allocated inside the Start
// transaction, so they are strictly increasing and never reused even across
// close/reopen and under concurrent Start calls.
//
// A call is created pending and transitions exactly once to success or
// error. The terminal transition and the update of the per-name statistics
// record commit in the same transaction - the ledger and its summary cannot
// diverge, and reads never re-scan the whole ledger to build stats.
package tools
