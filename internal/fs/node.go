package fs

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates files from directories.
type Kind string

const (
	// KindFile is a regular file.
	KindFile Kind = "file"
	// KindDirectory is a directory.
	KindDirectory Kind = "directory"
)

// node is the persisted form of a filesystem entry. Content is only present
// for files and rides inline in the record value.
type node struct {
	Kind    Kind   `json:"kind"`
	Size    int64  `json:"size,omitempty"`
	Mtime   int64  `json:"mtime"`
	Ctime   int64  `json:"ctime"`
	Content []byte `json:"content,omitempty"`
}

func (n node) isDir() bool {
	return n.Kind == KindDirectory
}

func marshalNode(n node) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal node: %w", err)
	}
	return data, nil
}

func unmarshalNode(data []byte) (node, error) {
	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return node{}, fmt.Errorf("unmarshal node: %w", err)
	}
	return n, nil
}

// Stats is the caller-visible metadata of a filesystem entry.
type Stats struct {
	Path  string `json:"path"`
	Kind  Kind   `json:"kind"`
	Size  int64  `json:"size"`
	Mtime int64  `json:"mtime"` // Unix milliseconds
	Ctime int64  `json:"ctime"` // Unix milliseconds
}

// IsFile reports whether the entry is a regular file.
func (s Stats) IsFile() bool {
	return s.Kind == KindFile
}

// IsDir reports whether the entry is a directory.
func (s Stats) IsDir() bool {
	return s.Kind == KindDirectory
}
