// Package storage defines the rooted file-system abstraction shared by the
// source-document tree and the artifact output tree.
package storage

import "github.com/starford/dagaz/internal/models"

// Provider is the interface for file operations under one root directory.
// Serve mode holds two Providers: one rooted at the source-document tree,
// one at the artifact output tree.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// RemoveDir removes the directory at path (relative to root) and
	// everything under it. Used to roll back a failed artifact set.
	RemoveDir(path string) error
	// Root returns the absolute root directory.
	Root() string
}
