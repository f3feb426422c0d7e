// Package platform resolves host-specific naming conventions for grammar
// artifacts: the shared-library extension and the grammar entry symbol.
package platform

import (
	"runtime"
	"strings"
)

// SharedLibExt returns the shared-library file extension for the host OS,
// without a leading dot.
func SharedLibExt() string {
	return sharedLibExtFor(runtime.GOOS)
}

func sharedLibExtFor(goos string) string {
	switch goos {
	case "darwin":
		return "dylib"
	case "windows":
		return "dll"
	default:
		return "so"
	}
}

// ArtifactName appends the host shared-library extension to an artifact base
// name, e.g. "libtree-sitter-go" -> "libtree-sitter-go.so".
func ArtifactName(base string) string {
	return base + "." + SharedLibExt()
}

// EntrySymbol derives the C entry symbol a grammar library exports for a
// language token, e.g. "php" -> "tree_sitter_php".
func EntrySymbol(token string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '/':
			return '_'
		}
		return r
	}, token)
	return "tree_sitter_" + mapped
}
