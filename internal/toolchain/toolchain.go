// Package toolchain drives the platform C/C++ compilers to turn a grammar
// source tree into a shared library. All paths are explicit; the process
// working directory is never changed.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"gts-forge/internal/platform"
	"gts-forge/internal/runner"
)

// GrammarFile is the grammar definition staged into src/ before compiling.
const GrammarFile = "grammar.js"

// MissingSourceError reports a source tree precondition that failed before
// any compiler was invoked.
type MissingSourceError struct {
	Dir   string
	File  string
	Stack []byte
}

func (e *MissingSourceError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("grammar directory %s does not exist", e.Dir)
	}
	return fmt.Sprintf("%s: required source %s is missing", e.Dir, e.File)
}

// ScannerConflictError reports a tree carrying both a C and a C++ scanner.
// The inherited behavior silently preferred the C one; here the ambiguity is
// a hard configuration error.
type ScannerConflictError struct {
	Dir   string
	Stack []byte
}

func (e *ScannerConflictError) Error() string {
	return fmt.Sprintf("%s: both src/scanner.c and src/scanner.cc present; keep exactly one", e.Dir)
}

// Sources is the resolved input layout of one grammar tree.
type Sources struct {
	// Parser is the absolute path of src/parser.c.
	Parser string

	// Scanner is the absolute path of the scanner source, empty when the
	// grammar has none.
	Scanner string

	// ScannerCXX marks the scanner as C++.
	ScannerCXX bool

	// Grammar is the absolute path of grammar.js at the tree root, empty
	// when the definition lives elsewhere (aggregate subtrees).
	Grammar string
}

// Discover validates a grammar tree's layout without touching the compiler.
func Discover(dir string) (Sources, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Sources{}, &MissingSourceError{Dir: dir, Stack: debug.Stack()}
	}

	srcs := Sources{}

	parser := filepath.Join(dir, "src", "parser.c")
	if !fileExists(parser) {
		return Sources{}, &MissingSourceError{Dir: dir, File: filepath.Join("src", "parser.c"), Stack: debug.Stack()}
	}
	srcs.Parser = parser

	scannerC := filepath.Join(dir, "src", "scanner.c")
	scannerCC := filepath.Join(dir, "src", "scanner.cc")
	hasC := fileExists(scannerC)
	hasCC := fileExists(scannerCC)
	switch {
	case hasC && hasCC:
		return Sources{}, &ScannerConflictError{Dir: dir, Stack: debug.Stack()}
	case hasC:
		srcs.Scanner = scannerC
	case hasCC:
		srcs.Scanner = scannerCC
		srcs.ScannerCXX = true
	}

	if grammar := filepath.Join(dir, GrammarFile); fileExists(grammar) {
		srcs.Grammar = grammar
	}

	return srcs, nil
}

// InputFiles lists the files whose contents determine the build output, for
// fingerprinting.
func (s Sources) InputFiles() []string {
	files := []string{s.Parser}
	if s.Scanner != "" {
		files = append(files, s.Scanner)
	}
	if s.Grammar != "" {
		files = append(files, s.Grammar)
	}
	return files
}

// Toolchain compiles grammar trees with a fixed pair of compiler drivers.
type Toolchain struct {
	CC  string
	CXX string
	Run runner.Runner
}

// New returns a Toolchain using the given drivers and runner.
func New(cc, cxx string, run runner.Runner) *Toolchain {
	return &Toolchain{CC: cc, CXX: cxx, Run: run}
}

// Build compiles the tree at dir into a shared library named for
// artifactBase and returns the artifact's path inside dir.
//
// Steps, in order: stage grammar.js into src/, drop stale objects and
// libraries, compile parser.c with the C compiler, compile the scanner (if
// any) with its matching compiler, link with the scanner's compiler family.
// The first failing step aborts.
func (t *Toolchain) Build(ctx context.Context, dir, artifactBase string) (string, error) {
	srcs, err := Discover(dir)
	if err != nil {
		return "", err
	}

	if srcs.Grammar != "" {
		staged := filepath.Join(dir, "src", GrammarFile)
		if err := copyFile(srcs.Grammar, staged); err != nil {
			return "", fmt.Errorf("stage %s: %w", GrammarFile, err)
		}
	}

	if err := removeStale(dir); err != nil {
		return "", err
	}

	objects := []string{"parser.o"}
	ccArgs := []string{"-fPIC", "-c", "-I", "src", filepath.Join("src", "parser.c"), "-o", "parser.o"}
	if err := t.Run.Run(ctx, dir, t.CC, ccArgs...); err != nil {
		return "", err
	}

	linker := t.CC
	if srcs.Scanner != "" {
		compiler := t.CC
		if srcs.ScannerCXX {
			compiler = t.CXX
			linker = t.CXX
		}
		scannerRel := filepath.Join("src", filepath.Base(srcs.Scanner))
		args := []string{"-fPIC", "-c", "-I", "src", scannerRel, "-o", "scanner.o"}
		if err := t.Run.Run(ctx, dir, compiler, args...); err != nil {
			return "", err
		}
		objects = append(objects, "scanner.o")
	}

	artifact := platform.ArtifactName(artifactBase)
	linkArgs := append([]string{"-shared", "-fPIC"}, objects...)
	linkArgs = append(linkArgs, "-o", artifact)
	if err := t.Run.Run(ctx, dir, linker, linkArgs...); err != nil {
		return "", err
	}

	return filepath.Join(dir, artifact), nil
}

// removeStale clears object files and previously built shared libraries from
// the tree so a relink never picks up leftovers.
func removeStale(dir string) error {
	patterns := []string{"*.o", "lib*.so", "lib*.dylib", "lib*.dll"}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("scan stale artifacts in %s: %w", dir, err)
		}
		for _, match := range matches {
			if err := os.Remove(match); err != nil {
				return fmt.Errorf("remove stale %s: %w", match, err)
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
