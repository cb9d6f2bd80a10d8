// Package storage keeps document packages in the workspace directory.
package storage

import "github.com/starford/dysedit/internal/models"

// Provider is the interface for workspace file operations.
type Provider interface {
	// List returns metadata for every document package in the workspace.
	List() ([]models.PackageMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the workspace root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the workspace root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the workspace root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the workspace root).
	Move(oldPath, newPath string) error
}

var _ Provider = (*FS)(nil)
