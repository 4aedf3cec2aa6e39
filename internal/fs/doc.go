// Package fs implements the hierarchical filesystem view of a session.
//
// Paths map to record keys through a parent-key + NUL + name encoding (see
// path.go), so a directory's subtree is one contiguous key range and its
// listing is a range scan - there is no separately stored child list to keep
// in sync with reality.
//
// Every mutating operation is a single atomic record-store transaction. A
// rename moves the node and every descendant in one commit; a concurrent
// reader sees either the whole old tree or the whole new tree, never a mix.
package fs
