package apikey

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreSetAndGet(t *testing.T) {
	s := NewStore("  initial \n")
	if got := s.APIKey(); got != "initial" {
		t.Fatalf("expected trimmed initial key, got %q", got)
	}
	s.Set(" rotated ")
	if got := s.APIKey(); got != "rotated" {
		t.Fatalf("expected rotated key, got %q", got)
	}
}

func TestReadFileFirstLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  secret-key  \nsecond line\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	key, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if key != "secret-key" {
		t.Fatalf("expected secret-key, got %q", key)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatchFileReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("old-key\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	s := NewStore("old-key")
	if err := s.WatchFile(path); err != nil {
		t.Fatalf("WatchFile: %v", err)
	}

	if err := os.WriteFile(path, []byte("new-key\n"), 0o600); err != nil {
		t.Fatalf("rewrite key file: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for s.APIKey() != "new-key" {
		if time.Now().After(deadline) {
			t.Fatalf("key never reloaded, still %q", s.APIKey())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchFileKeepsKeyOnReadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("stable-key\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	s := NewStore("stable-key")
	if err := s.WatchFile(path); err != nil {
		t.Fatalf("WatchFile: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove key file: %v", err)
	}

	// give the debounce a chance to fire against the missing file
	time.Sleep(500 * time.Millisecond)
	if got := s.APIKey(); got != "stable-key" {
		t.Fatalf("expected previous key preserved, got %q", got)
	}
}
