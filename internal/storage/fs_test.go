package storage

import (
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("# Workflow\nDo the thing.\n")
	if err := s.Write("workflow.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("workflow.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("agent-x/intro.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("agent-x/intro.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestRemoveDir(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("agent-x/intro.md", []byte("a"))
	_ = s.Write("agent-x/workflow.md", []byte("b"))
	if err := s.RemoveDir("agent-x"); err != nil {
		t.Fatalf("RemoveDir: %v", err)
	}
	if _, err := s.Read("agent-x/intro.md"); err == nil {
		t.Error("expected error reading file from removed dir")
	}
}

func TestRemoveDirRejectsRoot(t *testing.T) {
	s := tempRoot(t)
	if err := s.RemoveDir(""); err == nil {
		t.Error("expected error removing root")
	}
	if err := s.RemoveDir("."); err == nil {
		t.Error("expected error removing root via dot")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("manifest.json", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("checksum missing for %s", it.Path)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.RemoveDir(filepath.Dir(p)); err == nil && filepath.Dir(p) != "." {
			t.Errorf("expected error for remove of %q", p)
		}
	}
}

func TestAtomicOverwrite(t *testing.T) {
	s := tempRoot(t)
	original := []byte("original content")
	_ = s.Write("atomic.md", original)

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("atomic.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(updated) {
		t.Errorf("content = %q, want %q", got, updated)
	}
}
