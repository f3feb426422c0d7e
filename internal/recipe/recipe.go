// Package recipe maps language tokens to build recipes. The full table is
// resolved once at startup; nothing else in the program special-cases token
// strings.
package recipe

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"gts-forge/internal/platform"
)

// DirPrefix is the naming convention shared by every grammar source tree.
const DirPrefix = "tree-sitter-"

// CoreDir is the core parsing library's own directory inside the workspace.
// It is never treated as a grammar tree.
const CoreDir = "tree-sitter"

// Kind tags the recipe variant.
type Kind int

const (
	// KindSingle compiles the conventionally named directory for the token.
	KindSingle Kind = iota
	// KindRenamed compiles a directory whose name differs from the token.
	KindRenamed
	// KindMulti compiles several sibling directories under one token.
	KindMulti
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindRenamed:
		return "renamed"
	case KindMulti:
		return "multi"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Target is one directory-to-artifact build unit.
type Target struct {
	// Dir is the source tree, relative to the workspace root. It may be
	// nested for aggregate grammars, e.g. "tree-sitter-typescript/tsx".
	Dir string

	// ArtifactBase names the shared library without its extension,
	// e.g. "libtree-sitter-tsx".
	ArtifactBase string

	// Symbol is the C entry symbol the built library must export.
	Symbol string
}

// Recipe is the resolved build plan for one language token.
type Recipe struct {
	Token   string
	Kind    Kind
	Targets []Target
}

// UnknownDirError reports a workspace directory that does not follow the
// grammar tree naming convention.
type UnknownDirError struct {
	Dir string
}

func (e *UnknownDirError) Error() string {
	return fmt.Sprintf("directory %q does not follow the %s<lang> convention", e.Dir, DirPrefix)
}

// Table holds every known recipe plus the default-convention fallback.
type Table struct {
	recipes map[string]Recipe
	byDir   map[string]string
}

// NewTable builds the dispatch table with the built-in special cases.
func NewTable() *Table {
	t := &Table{
		recipes: make(map[string]Recipe),
		byDir:   make(map[string]string),
	}

	t.put(multi("typescript",
		Target{Dir: "tree-sitter-typescript/typescript", ArtifactBase: "libtree-sitter-typescript", Symbol: "tree_sitter_typescript"},
		Target{Dir: "tree-sitter-typescript/tsx", ArtifactBase: "libtree-sitter-tsx", Symbol: "tree_sitter_tsx"},
	))
	t.put(multi("markdown",
		Target{Dir: "tree-sitter-markdown/tree-sitter-markdown", ArtifactBase: "libtree-sitter-markdown", Symbol: "tree_sitter_markdown"},
		Target{Dir: "tree-sitter-markdown/tree-sitter-markdown-inline", ArtifactBase: "libtree-sitter-markdown-inline", Symbol: "tree_sitter_markdown_inline"},
	))
	t.put(renamed("gomod", "tree-sitter-go-mod"))
	t.put(renamed("gosum", "tree-sitter-go-sum"))

	return t
}

// Override registers (or replaces) a renamed-directory recipe for a token,
// used for manifest entries whose checkout directory breaks the convention.
func (t *Table) Override(token, dir string) error {
	token = strings.TrimSpace(token)
	dir = strings.TrimSpace(dir)
	if token == "" || dir == "" {
		return fmt.Errorf("override needs both token and directory")
	}
	if dir == CoreDir {
		return fmt.Errorf("token %q cannot target the core library directory", token)
	}
	t.put(renamed(token, dir))
	return nil
}

// Resolve returns the recipe for a token. Tokens without an explicit entry
// fall back to the naming convention.
func (t *Table) Resolve(token string) (Recipe, error) {
	token = strings.TrimSpace(strings.ToLower(token))
	if token == "" {
		return Recipe{}, fmt.Errorf("empty language token")
	}
	if token == CoreDir || token == "core" {
		return Recipe{}, fmt.Errorf("token %q names the core library, not a grammar", token)
	}
	if rec, ok := t.recipes[token]; ok {
		return rec, nil
	}
	return single(token), nil
}

// TokenForDir inverts the directory convention: given a top-level workspace
// directory name, it returns the token whose recipe builds it.
func (t *Table) TokenForDir(dir string) (string, error) {
	dir = path.Clean(dir)
	if token, ok := t.byDir[dir]; ok {
		return token, nil
	}
	if !strings.HasPrefix(dir, DirPrefix) || dir == CoreDir {
		return "", &UnknownDirError{Dir: dir}
	}
	token := strings.TrimPrefix(dir, DirPrefix)
	if token == "" {
		return "", &UnknownDirError{Dir: dir}
	}
	return token, nil
}

// Known returns every explicitly registered recipe, sorted by token.
func (t *Table) Known() []Recipe {
	out := make([]Recipe, 0, len(t.recipes))
	for _, rec := range t.recipes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func (t *Table) put(rec Recipe) {
	t.recipes[rec.Token] = rec
	for _, target := range rec.Targets {
		root := target.Dir
		if idx := strings.IndexByte(root, '/'); idx > 0 {
			root = root[:idx]
		}
		t.byDir[root] = rec.Token
	}
}

func single(token string) Recipe {
	return Recipe{
		Token: token,
		Kind:  KindSingle,
		Targets: []Target{{
			Dir:          DirPrefix + token,
			ArtifactBase: "lib" + DirPrefix + token,
			Symbol:       platform.EntrySymbol(token),
		}},
	}
}

func renamed(token, dir string) Recipe {
	return Recipe{
		Token: token,
		Kind:  KindRenamed,
		Targets: []Target{{
			Dir:          dir,
			ArtifactBase: "lib" + dir,
			Symbol:       platform.EntrySymbol(token),
		}},
	}
}

func multi(token string, targets ...Target) Recipe {
	return Recipe{Token: token, Kind: KindMulti, Targets: targets}
}
