package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestUnchangedAfterRepeatedCheck(t *testing.T) {
	dir := t.TempDir()
	parser := writeFile(t, dir, "parser.c", "int parser;")

	cache, err := NewCache(0)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	unchanged, err := cache.Unchanged("go", []string{parser})
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if unchanged {
		t.Fatal("first check must report a change")
	}

	unchanged, err = cache.Unchanged("go", []string{parser})
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !unchanged {
		t.Fatal("second check over identical inputs must report unchanged")
	}
}

func TestChangeDetectedAfterEdit(t *testing.T) {
	dir := t.TempDir()
	parser := writeFile(t, dir, "parser.c", "int parser;")

	cache, _ := NewCache(0)
	if _, err := cache.Unchanged("go", []string{parser}); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	writeFile(t, dir, "parser.c", "int parser; /* edited */")

	unchanged, err := cache.Unchanged("go", []string{parser})
	if err != nil {
		t.Fatalf("check after edit: %v", err)
	}
	if unchanged {
		t.Fatal("edit must be detected")
	}
}

func TestForgetForcesRebuild(t *testing.T) {
	dir := t.TempDir()
	parser := writeFile(t, dir, "parser.c", "int parser;")

	cache, _ := NewCache(0)
	cache.Unchanged("go", []string{parser})
	cache.Forget("go")

	unchanged, err := cache.Unchanged("go", []string{parser})
	if err != nil {
		t.Fatalf("check after forget: %v", err)
	}
	if unchanged {
		t.Fatal("Forget must invalidate the cached digest")
	}
}

func TestDigestMissingInputFails(t *testing.T) {
	_, err := Digest([]string{filepath.Join(t.TempDir(), "absent.c")})
	if err == nil {
		t.Fatal("missing input must be an error")
	}
}
