package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gts-forge/internal/platform"
	"gts-forge/internal/runner"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return dir
}

func TestDiscoverMissingParserFailsBeforeCompiling(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"grammar.js": "module.exports = grammar({});",
	})

	_, err := Discover(dir)
	var missing *MissingSourceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingSourceError, got %v", err)
	}
	if missing.File != filepath.Join("src", "parser.c") {
		t.Fatalf("missing file = %q", missing.File)
	}
	if len(missing.Stack) == 0 {
		t.Fatal("precondition error should capture a stack")
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "tree-sitter-nope"))
	var missing *MissingSourceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingSourceError, got %v", err)
	}
}

func TestDiscoverScannerConflict(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"src/parser.c":   "int parser;",
		"src/scanner.c":  "int scanner;",
		"src/scanner.cc": "int scanner;",
	})

	_, err := Discover(dir)
	var conflict *ScannerConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ScannerConflictError, got %v", err)
	}
}

func TestBuildParserOnly(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"src/parser.c": "int parser;",
	})
	rec := &runner.Recorder{}
	tc := New("cc", "c++", rec)

	artifact, err := tc.Build(context.Background(), dir, "libtree-sitter-go")
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	want := filepath.Join(dir, platform.ArtifactName("libtree-sitter-go"))
	if artifact != want {
		t.Fatalf("artifact = %q, want %q", artifact, want)
	}

	lines := rec.CommandLines()
	if len(lines) != 2 {
		t.Fatalf("expected exactly compile+link, got %v", lines)
	}
	if !strings.Contains(lines[0], "cc -fPIC -c") || !strings.Contains(lines[0], "parser.c") {
		t.Fatalf("unexpected compile command %q", lines[0])
	}
	if !strings.Contains(lines[1], "cc -shared -fPIC parser.o -o") {
		t.Fatalf("unexpected link command %q", lines[1])
	}
}

func TestBuildWithCScanner(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"src/parser.c":  "int parser;",
		"src/scanner.c": "int scanner;",
	})
	rec := &runner.Recorder{}
	tc := New("cc", "c++", rec)

	if _, err := tc.Build(context.Background(), dir, "libtree-sitter-x"); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	lines := rec.CommandLines()
	if len(lines) != 3 {
		t.Fatalf("expected compile+compile+link, got %v", lines)
	}
	if !strings.HasPrefix(lines[1], "cc ") || !strings.Contains(lines[1], "scanner.c") {
		t.Fatalf("scanner must compile with the C driver, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "cc ") || !strings.Contains(lines[2], "scanner.o") {
		t.Fatalf("link must use the C driver and include scanner.o, got %q", lines[2])
	}
}

func TestBuildWithCXXScannerLinksWithCXX(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"src/parser.c":   "int parser;",
		"src/scanner.cc": "int scanner;",
	})
	rec := &runner.Recorder{}
	tc := New("cc", "c++", rec)

	if _, err := tc.Build(context.Background(), dir, "libtree-sitter-x"); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	lines := rec.CommandLines()
	if len(lines) != 3 {
		t.Fatalf("expected compile+compile+link, got %v", lines)
	}
	if !strings.HasPrefix(lines[0], "cc ") {
		t.Fatalf("parser must compile with the C driver, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "c++ ") || !strings.Contains(lines[1], "scanner.cc") {
		t.Fatalf("C++ scanner must compile with the C++ driver, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "c++ -shared") {
		t.Fatalf("link must use the C++ driver, got %q", lines[2])
	}
}

func TestBuildStagesGrammarAndClearsStaleArtifacts(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"grammar.js":          "module.exports = grammar({name: 'x'});",
		"src/parser.c":        "int parser;",
		"parser.o":            "stale",
		"libtree-sitter-x.so": "stale",
	})
	rec := &runner.Recorder{}
	tc := New("cc", "c++", rec)

	if _, err := tc.Build(context.Background(), dir, "libtree-sitter-x"); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	staged, err := os.ReadFile(filepath.Join(dir, "src", GrammarFile))
	if err != nil {
		t.Fatalf("grammar.js was not staged into src/: %v", err)
	}
	if !strings.Contains(string(staged), "name: 'x'") {
		t.Fatalf("staged grammar content mismatch: %q", staged)
	}

	if _, err := os.Stat(filepath.Join(dir, "parser.o")); !os.IsNotExist(err) {
		t.Fatal("stale parser.o should be removed before compiling")
	}
	if _, err := os.Stat(filepath.Join(dir, "libtree-sitter-x.so")); !os.IsNotExist(err) {
		t.Fatal("stale shared library should be removed before compiling")
	}
}

func TestBuildAbortsOnCompileFailure(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"src/parser.c": "int parser;",
	})
	rec := &runner.Recorder{FailOn: []string{"parser.c"}}
	tc := New("cc", "c++", rec)

	_, err := tc.Build(context.Background(), dir, "libtree-sitter-x")
	if err == nil {
		t.Fatal("expected compile failure to propagate")
	}
	var cmdErr *runner.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *runner.CommandError, got %T", err)
	}
	if len(rec.Calls()) != 1 {
		t.Fatalf("no further commands may run after a failed compile, got %v", rec.CommandLines())
	}
}
