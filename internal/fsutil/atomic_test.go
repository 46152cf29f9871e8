package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteWithBackupsRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := AtomicWriteWithBackups(path, []byte(`{"v":1}`), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file to exist after write: %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Fatalf("unexpected contents: %q", got)
	}
	if _, err := os.Stat(path + ".tmp"); err == nil {
		t.Fatal("temp file should not survive a successful write")
	}
}

func TestAtomicWriteWithBackupsRotatesOldVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	for i := 1; i <= 4; i++ {
		if err := AtomicWriteWithBackups(path, []byte{byte('0' + i)}, 2); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	// After 4 writes with backupCount=2: current file holds write 4's
	// content, .bak.1 holds write 3's, .bak.2 holds write 2's; write 1's
	// content must have rotated out entirely.
	cur, _ := os.ReadFile(path)
	bak1, err := os.ReadFile(path + ".bak.1")
	if err != nil {
		t.Fatalf("expected .bak.1 to exist: %v", err)
	}
	bak2, err := os.ReadFile(path + ".bak.2")
	if err != nil {
		t.Fatalf("expected .bak.2 to exist: %v", err)
	}
	if string(cur) != "4" {
		t.Fatalf("expected current file to hold the latest write, got %q", cur)
	}
	if string(bak1) != "3" {
		t.Fatalf("expected .bak.1 to hold the previous write, got %q", bak1)
	}
	if string(bak2) != "2" {
		t.Fatalf("expected .bak.2 to hold the write before that, got %q", bak2)
	}
	if _, err := os.Stat(path + ".bak.3"); err == nil {
		t.Fatal("expected no .bak.3 to exist with backupCount=2")
	}
}

func TestFileSizeMissingFileReturnsZero(t *testing.T) {
	if got := FileSize(filepath.Join(t.TempDir(), "missing")); got != 0 {
		t.Fatalf("expected 0 for a missing file, got %d", got)
	}
}

func TestFileSizeReportsActualSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FileSize(path); got != 5 {
		t.Fatalf("expected size 5, got %d", got)
	}
}
