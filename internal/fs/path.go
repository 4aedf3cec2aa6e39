package fs

import (
	gopath "path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanPath canonicalizes a filesystem path: NFC-normalized, absolute,
// slash-separated, no trailing slash except root, "." and ".." resolved.
// Paths that are relative, empty, or contain NUL are rejected - NUL is the
// key-encoding separator and may never appear in a name.
func CleanPath(p string) (string, error) {
	if p == "" || !strings.HasPrefix(p, "/") {
		return "", newError(ErrCodeInvalidPath, p)
	}
	if strings.ContainsRune(p, 0) {
		return "", newError(ErrCodeInvalidPath, p)
	}
	// Canonically-equal Unicode paths must map to one key.
	p = norm.NFC.String(p)
	// Clean collapses repeated slashes and resolves "."/"..". "/.." clamps
	// to "/", so a path can never escape the root.
	return gopath.Clean(p), nil
}

// parentPath returns the parent of a canonical path. The parent of "/" is "/".
func parentPath(p string) string {
	return gopath.Dir(p)
}

// pathKey maps a canonical path to its record key.
//
// The root is "/". Every other node's key is its parent's key, a NUL byte,
// then the node's name: "/a/b" becomes "/" 00 "a" 00 "b". Because names
// never contain NUL, all immediate children of a directory form one
// contiguous key range sorted by name, and a subtree is exactly the set of
// keys extending its root's key.
func pathKey(p string) []byte {
	if p == "/" {
		return []byte("/")
	}
	key := []byte("/")
	for _, seg := range strings.Split(p[1:], "/") {
		key = append(key, 0)
		key = append(key, seg...)
	}
	return key
}

// childRange returns the half-open key range [start, end) covering every key
// under the directory with the given key, immediate children first.
func childRange(dirKey []byte) (start, end []byte) {
	start = append(append([]byte{}, dirKey...), 0x00)
	end = append(append([]byte{}, dirKey...), 0x01)
	return start, end
}

// childName extracts the child's name from its key, given the parent's key.
func childName(dirKey, childKey []byte) string {
	return string(childKey[len(dirKey)+1:])
}
