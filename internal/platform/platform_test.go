package platform

import (
	"strings"
	"testing"
)

func TestSharedLibExtPerOS(t *testing.T) {
	if got := sharedLibExtFor("linux"); got != "so" {
		t.Fatalf("linux ext = %q, want so", got)
	}
	if got := sharedLibExtFor("darwin"); got != "dylib" {
		t.Fatalf("darwin ext = %q, want dylib", got)
	}
	if got := sharedLibExtFor("windows"); got != "dll" {
		t.Fatalf("windows ext = %q, want dll", got)
	}
	if got := sharedLibExtFor("freebsd"); got != "so" {
		t.Fatalf("freebsd ext = %q, want so", got)
	}
}

func TestArtifactNameUsesHostExt(t *testing.T) {
	name := ArtifactName("libtree-sitter-go")
	if !strings.HasPrefix(name, "libtree-sitter-go.") {
		t.Fatalf("unexpected artifact name %q", name)
	}
	if strings.Count(name, ".") != 1 {
		t.Fatalf("artifact name %q should carry exactly one extension", name)
	}
}

func TestEntrySymbol(t *testing.T) {
	cases := map[string]string{
		"go":         "tree_sitter_go",
		"go-mod":     "tree_sitter_go_mod",
		"php":        "tree_sitter_php",
		"objc":       "tree_sitter_objc",
		"dot.matter": "tree_sitter_dot_matter",
	}
	for token, want := range cases {
		if got := EntrySymbol(token); got != want {
			t.Fatalf("EntrySymbol(%q) = %q, want %q", token, got, want)
		}
	}
}
