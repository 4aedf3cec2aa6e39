package fs

import (
	"context"
	"errors"
	"strings"

	"github.com/agentfs/agentfs/internal/clock"
	"github.com/agentfs/agentfs/internal/record"
)

// Collection is the record-store collection holding filesystem nodes.
const Collection = "fs"

// FS is the filesystem view over a session's record store.
// All methods are safe for concurrent use; serialization happens entirely
// inside the record store.
type FS struct {
	store *record.Store
	clock clock.Clock
}

// New creates a filesystem view. Call Init once per store before use.
func New(store *record.Store, clk clock.Clock) *FS {
	return &FS{store: store, clock: clk}
}

// Init creates the root directory if it does not exist. Idempotent.
func (f *FS) Init(ctx context.Context) error {
	return f.store.Update(ctx, func(tx *record.Tx) error {
		_, err := tx.Get(Collection, pathKey("/"))
		if err == nil {
			return nil
		}
		if !errors.Is(err, record.ErrNotFound) {
			return err
		}
		now := f.clock.NowMillis()
		data, err := marshalNode(node{Kind: KindDirectory, Mtime: now, Ctime: now})
		if err != nil {
			return err
		}
		return tx.Put(Collection, pathKey("/"), data)
	})
}

// getNode loads the node at a canonical path, mapping an absent record to a
// NOT_FOUND filesystem error.
func getNode(tx *record.Tx, p string) (node, error) {
	data, err := tx.Get(Collection, pathKey(p))
	if errors.Is(err, record.ErrNotFound) {
		return node{}, newError(ErrCodeNotFound, p)
	}
	if err != nil {
		return node{}, err
	}
	return unmarshalNode(data)
}

// requireParentDir verifies that the parent of a canonical path exists and is
// a directory.
func requireParentDir(tx *record.Tx, p string) error {
	parent := parentPath(p)
	n, err := getNode(tx, parent)
	if IsNotFound(err) {
		return newError(ErrCodeParentNotFound, p)
	}
	if err != nil {
		return err
	}
	if !n.isDir() {
		return newError(ErrCodeNotADirectory, parent)
	}
	return nil
}

// subtreeRange returns the key range covering every descendant of the node
// with the given key (the node itself excluded).
func subtreeRange(key []byte) (start, end []byte) {
	return childRange(key)
}

// WriteFile creates or overwrites the file at path with content. The parent
// directory must already exist. Overwriting updates size and mtime and
// preserves ctime.
func (f *FS) WriteFile(ctx context.Context, path string, content []byte) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	if p == "/" {
		return newError(ErrCodeIsADirectory, p)
	}

	return f.store.Update(ctx, func(tx *record.Tx) error {
		if err := requireParentDir(tx, p); err != nil {
			return err
		}

		now := f.clock.NowMillis()
		n := node{Kind: KindFile, Size: int64(len(content)), Content: content, Mtime: now, Ctime: now}

		existing, err := getNode(tx, p)
		switch {
		case err == nil:
			if existing.isDir() {
				return newError(ErrCodeIsADirectory, p)
			}
			n.Ctime = existing.Ctime
		case !IsNotFound(err):
			return err
		}

		data, err := marshalNode(n)
		if err != nil {
			return err
		}
		return tx.Put(Collection, pathKey(p), data)
	})
}

// ReadFile returns the content of the file at path.
func (f *FS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	var content []byte
	err = f.store.View(ctx, func(tx *record.Tx) error {
		n, err := getNode(tx, p)
		if err != nil {
			return err
		}
		if n.isDir() {
			return newError(ErrCodeIsADirectory, p)
		}
		content = n.Content
		return nil
	})
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = []byte{}
	}
	return content, nil
}

// Readdir returns the names of the immediate children of the directory at
// path, in lexicographic order.
func (f *FS) Readdir(ctx context.Context, path string) ([]string, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	var names []string
	err = f.store.View(ctx, func(tx *record.Tx) error {
		n, err := getNode(tx, p)
		if err != nil {
			return err
		}
		if !n.isDir() {
			return newError(ErrCodeNotADirectory, p)
		}

		dirKey := pathKey(p)
		start, end := subtreeRange(dirKey)
		recs, err := tx.ScanRange(Collection, start, end)
		if err != nil {
			return err
		}

		names = []string{}
		for _, rec := range recs {
			// The subtree scan interleaves deeper descendants; an
			// immediate child's name has no further separator.
			name := childName(dirKey, rec.Key)
			if !strings.ContainsRune(name, 0) {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Stat returns metadata for the entry at path.
func (f *FS) Stat(ctx context.Context, path string) (Stats, error) {
	p, err := CleanPath(path)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	err = f.store.View(ctx, func(tx *record.Tx) error {
		n, err := getNode(tx, p)
		if err != nil {
			return err
		}
		stats = Stats{Path: p, Kind: n.Kind, Size: n.Size, Mtime: n.Mtime, Ctime: n.Ctime}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Mkdir creates the directory at path. The parent must already exist.
func (f *FS) Mkdir(ctx context.Context, path string) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	if p == "/" {
		return newError(ErrCodeAlreadyExists, p)
	}

	return f.store.Update(ctx, func(tx *record.Tx) error {
		if err := requireParentDir(tx, p); err != nil {
			return err
		}

		_, err := getNode(tx, p)
		if err == nil {
			return newError(ErrCodeAlreadyExists, p)
		}
		if !IsNotFound(err) {
			return err
		}

		now := f.clock.NowMillis()
		data, err := marshalNode(node{Kind: KindDirectory, Mtime: now, Ctime: now})
		if err != nil {
			return err
		}
		return tx.Put(Collection, pathKey(p), data)
	})
}

// MkdirAll creates the directory at path along with any missing ancestors.
// It succeeds if the directory already exists, and fails NOT_A_DIRECTORY if
// any prefix of the path names a file.
func (f *FS) MkdirAll(ctx context.Context, path string) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	if p == "/" {
		return nil
	}

	return f.store.Update(ctx, func(tx *record.Tx) error {
		segs := strings.Split(p[1:], "/")
		cur := ""
		for _, seg := range segs {
			cur = cur + "/" + seg
			n, err := getNode(tx, cur)
			if err == nil {
				if !n.isDir() {
					return newError(ErrCodeNotADirectory, cur)
				}
				continue
			}
			if !IsNotFound(err) {
				return err
			}
			now := f.clock.NowMillis()
			data, err := marshalNode(node{Kind: KindDirectory, Mtime: now, Ctime: now})
			if err != nil {
				return err
			}
			if err := tx.Put(Collection, pathKey(cur), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes the entry at path. Removing a non-empty directory requires
// recursive; the whole subtree is then removed in one atomic batch.
func (f *FS) Remove(ctx context.Context, path string, recursive bool) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	if p == "/" {
		return newError(ErrCodeInvalidPath, p)
	}

	return f.store.Update(ctx, func(tx *record.Tx) error {
		n, err := getNode(tx, p)
		if err != nil {
			return err
		}

		key := pathKey(p)
		if n.isDir() {
			start, end := subtreeRange(key)
			recs, err := tx.ScanRange(Collection, start, end)
			if err != nil {
				return err
			}
			if len(recs) > 0 && !recursive {
				return newError(ErrCodeDirectoryNotEmpty, p)
			}
			for _, rec := range recs {
				if err := tx.Delete(Collection, rec.Key); err != nil {
					return err
				}
			}
		}
		return tx.Delete(Collection, key)
	})
}

// Rename atomically moves the entry at oldPath (and, for directories, every
// descendant) to newPath. An existing target is overwritten unless it is a
// non-empty directory, which fails TARGET_EXISTS. Renaming a directory into
// its own subtree fails INVALID_PATH.
func (f *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	po, err := CleanPath(oldPath)
	if err != nil {
		return err
	}
	pn, err := CleanPath(newPath)
	if err != nil {
		return err
	}
	if po == "/" || pn == "/" {
		return newError(ErrCodeInvalidPath, "/")
	}
	if po == pn {
		return nil
	}
	if strings.HasPrefix(pn, po+"/") {
		return newError(ErrCodeInvalidPath, pn)
	}

	return f.store.Update(ctx, func(tx *record.Tx) error {
		src, err := getNode(tx, po)
		if err != nil {
			return err
		}
		if err := requireParentDir(tx, pn); err != nil {
			return err
		}

		srcKey := pathKey(po)
		dstKey := pathKey(pn)

		// Clear the target. Overwriting is allowed unless the target is a
		// non-empty directory.
		dst, err := getNode(tx, pn)
		switch {
		case err == nil:
			dstStart, dstEnd := subtreeRange(dstKey)
			if dst.isDir() {
				children, err := tx.ScanRange(Collection, dstStart, dstEnd)
				if err != nil {
					return err
				}
				if len(children) > 0 {
					return newError(ErrCodeTargetExists, pn)
				}
			}
			if err := tx.Delete(Collection, dstKey); err != nil {
				return err
			}
		case !IsNotFound(err):
			return err
		}

		// Move every descendant by rewriting its key prefix, then the node
		// itself. One transaction - a crash never leaves a half-renamed tree.
		start, end := subtreeRange(srcKey)
		descendants, err := tx.ScanRange(Collection, start, end)
		if err != nil {
			return err
		}
		for _, rec := range descendants {
			newKey := append(append([]byte{}, dstKey...), rec.Key[len(srcKey):]...)
			if err := tx.Delete(Collection, rec.Key); err != nil {
				return err
			}
			if err := tx.Put(Collection, newKey, rec.Value); err != nil {
				return err
			}
		}

		src.Mtime = f.clock.NowMillis()
		data, err := marshalNode(src)
		if err != nil {
			return err
		}
		if err := tx.Delete(Collection, srcKey); err != nil {
			return err
		}
		return tx.Put(Collection, dstKey, data)
	})
}
