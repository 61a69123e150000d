// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/saga/internal/models"

// Provider is the interface for vault file operations. Paths are relative to
// the vault root and use forward slashes.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path. A missing file yields an
	// error matching fs.ErrNotExist.
	Read(path string) ([]byte, error)
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Write atomically writes content to path, creating parent folders.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath without replacing an existing file.
	Move(oldPath, newPath string) error
}
