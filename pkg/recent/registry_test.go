package recent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")

	reg, err := NewRegistry(dataDir, 0)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	if reg.limit != DefaultLimit {
		t.Errorf("Expected limit %d, got %d", DefaultLimit, reg.limit)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "recent.db")); os.IsNotExist(err) {
		t.Error("Expected database file to be created")
	}
}

func TestTouchAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	reg, err := NewRegistry(tmpDir, 5)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	path := filepath.Join(tmpDir, "notes.ctb")
	if err := reg.Touch(&Document{Path: path, Format: "sqlite", LastNode: 7}); err != nil {
		t.Fatalf("Failed to touch document: %v", err)
	}
	if err := reg.Touch(&Document{Path: path, Format: "sqlite"}); err != nil {
		t.Fatalf("Failed to touch document: %v", err)
	}

	d, err := reg.Get(path)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if d.OpenCount != 2 {
		t.Errorf("Expected open count 2, got %d", d.OpenCount)
	}
	if d.LastNode != 7 {
		t.Errorf("Expected last node to survive a touch without node, got %d", d.LastNode)
	}
	if d.LastUsed.Before(d.FirstSeen) {
		t.Errorf("Expected last used %v after first seen %v", d.LastUsed, d.FirstSeen)
	}

	if err := reg.Touch(&Document{Path: path, Format: "sqlite", LastNode: 9}); err != nil {
		t.Fatalf("Failed to touch document: %v", err)
	}
	if d, _ = reg.Get(path); d.LastNode != 9 {
		t.Errorf("Expected last node 9, got %d", d.LastNode)
	}
}

func TestTouchRejectsRelativePath(t *testing.T) {
	reg, err := NewRegistry(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	if err := reg.Touch(&Document{Path: "notes.ctb", Format: "sqlite"}); err == nil {
		t.Error("Expected error for relative path")
	}
	if err := reg.Touch(&Document{Format: "sqlite"}); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestListOrderAndLimit(t *testing.T) {
	tmpDir := t.TempDir()
	reg, err := NewRegistry(tmpDir, 2)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	names := []string{"a.ctd", "b.ctd", "c.ctd"}
	for _, name := range names {
		if err := reg.Touch(&Document{Path: filepath.Join(tmpDir, name), Format: "xml"}); err != nil {
			t.Fatalf("Failed to touch %s: %v", name, err)
		}
	}

	docs, err := reg.List()
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if filepath.Base(docs[0].Path) != "c.ctd" || filepath.Base(docs[1].Path) != "b.ctd" {
		t.Errorf("Expected c.ctd then b.ctd, got %s then %s", docs[0].Path, docs[1].Path)
	}

	if _, err := reg.Get(filepath.Join(tmpDir, "a.ctd")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected pruned entry to be gone, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	tmpDir := t.TempDir()
	reg, err := NewRegistry(tmpDir, 0)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	path := filepath.Join(tmpDir, "x.ctz")
	if err := reg.Touch(&Document{Path: path, Format: "xml", Encrypted: true}); err != nil {
		t.Fatalf("Failed to touch document: %v", err)
	}
	d, err := reg.Get(path)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if !d.Encrypted {
		t.Error("Expected encrypted flag to be stored")
	}

	if err := reg.Remove(path); err != nil {
		t.Fatalf("Failed to remove document: %v", err)
	}
	if _, err := reg.Get(path); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
