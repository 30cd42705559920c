// Package testutil provides shared test helpers for setting up workspaces
// and registries.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
)

// TestRegistry creates a temporary SQLite registry that is automatically
// cleaned up.
func TestRegistry(t *testing.T) *registry.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "dagaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := registry.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary directory with a storage.Provider
// rooted at it.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
