package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPush_SkipsConsecutiveDuplicate(t *testing.T) {
	s := NewSet()
	s.PushAt("main", []byte("look"), 1)
	s.PushAt("main", []byte("look"), 2)
	s.PushAt("main", []byte("north"), 3)

	r := s.ringFor("main")
	if len(r.entries) != 2 {
		t.Fatalf("expected 2 entries (dup skipped), got %d: %v", len(r.entries), r.entries)
	}
}

func TestPrevNext_Navigation(t *testing.T) {
	s := NewSet()
	s.PushAt("main", []byte("one"), 1)
	s.PushAt("main", []byte("two"), 2)
	s.PushAt("main", []byte("three"), 3)

	line, ok := s.Prev("main", []byte("typing..."))
	if !ok || string(line) != "three" {
		t.Fatalf("Prev #1 = %q, %v", line, ok)
	}
	line, ok = s.Prev("main", nil)
	if !ok || string(line) != "two" {
		t.Fatalf("Prev #2 = %q, %v", line, ok)
	}
	line, ok = s.Next("main")
	if !ok || string(line) != "three" {
		t.Fatalf("Next #1 = %q, %v", line, ok)
	}
	_, ok = s.Next("main")
	if ok {
		t.Fatalf("expected Next past the newest entry to report not-browsing")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history")

	s := NewSet()
	s.PushAt("main", []byte("look"), 100)
	s.PushAt("tells", []byte("hi bob"), 50)

	if err := Save(path, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != fileMode {
		t.Fatalf("history file mode = %v, want %v", info.Mode().Perm(), os.FileMode(fileMode))
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	line, ok := loaded.Prev("main", nil)
	if !ok || string(line) != "look" {
		t.Fatalf("loaded main Prev = %q, %v", line, ok)
	}
	line, ok = loaded.Prev("tells", nil)
	if !ok || string(line) != "hi bob" {
		t.Fatalf("loaded tells Prev = %q, %v", line, ok)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(s.rings) != 0 {
		t.Fatalf("expected empty set")
	}
}
