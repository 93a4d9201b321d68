// Package storage is the file-system abstraction behind the metadata provider.
package storage

import "time"

// FileMeta describes one stored file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for metadata file operations.
type Provider interface {
	// List returns metadata for every file under dir (relative to root)
	// whose extension is one of exts.
	List(dir string, exts ...string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Root returns the absolute root directory.
	Root() string
}
