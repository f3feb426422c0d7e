// Package verify smoke-checks built grammar libraries by loading them the way
// a tree-sitter runtime would: dlopen the artifact and resolve its entry
// symbol.
package verify

import (
	"errors"
	"fmt"
)

// ErrUnsupported means the platform cannot dlopen artifacts for inspection.
var ErrUnsupported = errors.New("artifact verification is not supported on this platform")

// SymbolError reports an artifact that loaded but does not export the
// expected grammar entry symbol.
type SymbolError struct {
	Artifact string
	Symbol   string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s does not export %s", e.Artifact, e.Symbol)
}
