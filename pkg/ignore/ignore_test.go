package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchBasics(t *testing.T) {
	m := ParsePatterns([]string{
		"# build sandboxes",
		"sandbox-*/",
		"*.bak",
		"!keep.bak",
	})

	if !m.Match("sandbox-zig", true) {
		t.Fatal("dir pattern should match directory")
	}
	if m.Match("sandbox-zig", false) {
		t.Fatal("dir-only pattern must not match plain files")
	}
	if !m.Match("tree-sitter-go/old.bak", false) {
		t.Fatal("basename glob should match nested file")
	}
	if m.Match("keep.bak", false) {
		t.Fatal("negated pattern should rescue the path")
	}
	if m.Match("tree-sitter-go", true) {
		t.Fatal("unrelated path must not match")
	}
}

func TestMatchNilMatcher(t *testing.T) {
	var m *Matcher
	if m.Match("anything", false) {
		t.Fatal("nil matcher must match nothing")
	}
}

func TestLoadRootMissingFile(t *testing.T) {
	m, err := LoadRoot(t.TempDir())
	if err != nil {
		t.Fatalf("LoadRoot on empty workspace: %v", err)
	}
	if m.Match("tree-sitter-go", true) {
		t.Fatal("empty matcher must match nothing")
	}
}

func TestLoadRootReadsForgeignore(t *testing.T) {
	root := t.TempDir()
	content := "experimental-*/\n"
	if err := os.WriteFile(filepath.Join(root, DefaultFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write ignore file: %v", err)
	}

	m, err := LoadRoot(root)
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	if !m.Match("experimental-zig", true) {
		t.Fatal("pattern from file should match")
	}
}
