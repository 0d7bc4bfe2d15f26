// Package storage defines the collection file-system abstraction.
package storage

import "github.com/zet-dev/zet/internal/models"

// Provider is the read-only view of the collection the sync engine consumes.
// Markdown files are edited by external tools; this layer never writes.
type Provider interface {
	// List returns path and modification time for every markdown file under
	// dir (relative to the collection root). It must not read file contents:
	// the change classifier relies on enumeration being metadata-only.
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Stat returns current metadata for a single file.
	Stat(path string) (models.FileInfo, error)
}
