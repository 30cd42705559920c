package migrate

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/testutil"
)

// watcherTestEnv sets up a source tree, an engine, and a registry.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *Engine, *registry.DB) {
	t.Helper()
	srcDir, src := testutil.TestWorkspace(t)
	eng, _, reg := testEngine(t, Options{})
	return srcDir, src, eng, reg
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewDocumentMigrated(t *testing.T) {
	srcDir, src, eng, reg := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, eng, src, reg, srcDir, quietLogger(), func(kind, id string) {
		mu.Lock()
		events = append(events, kind+":"+id)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(srcDir, "watched.md"), []byte(scenarioDoc), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		row, _ := reg.GetAgent("backend-builder")
		return row != nil
	}, "new document not migrated by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "migrated:backend-builder" {
				return true
			}
		}
		return false
	}, "migrated event not delivered")
}

func TestWatcher_RemovedDocumentDeletesAgent(t *testing.T) {
	srcDir, src, eng, reg := watcherTestEnv(t)

	// Seed one document before the watcher starts.
	path := filepath.Join(srcDir, "doomed.md")
	_ = os.WriteFile(path, []byte(scenarioDoc), 0o644)
	data, _ := os.ReadFile(path)
	if _, err := eng.Migrate(context.Background(), "doomed.md", data); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, eng, src, reg, srcDir, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)
	_ = os.Remove(path)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		row, _ := reg.GetAgent("backend-builder")
		return row == nil
	}, "agent not removed after source deletion")
}

func TestSyncReconciles(t *testing.T) {
	srcDir, src, eng, reg := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(srcDir, "fresh.md"), []byte(scenarioDoc), 0o644)
	// A stale registry entry whose source never existed on disk.
	_ = reg.UpsertAgent(registry.AgentRow{ID: "ghost", SourcePath: "ghost.md", SourceChecksum: "x"}, "")

	if err := Sync(context.Background(), eng, src, reg, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if row, _ := reg.GetAgent("backend-builder"); row == nil {
		t.Error("fresh document not migrated by sync")
	}
	if row, _ := reg.GetAgent("ghost"); row != nil {
		t.Error("stale agent not removed by sync")
	}
}
