//go:build darwin || linux || freebsd

package verify

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Supported reports whether artifact verification works on this platform.
func Supported() bool { return true }

// Artifact opens the shared library at path and resolves symbol in it.
func Artifact(path, symbol string) error {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	defer purego.Dlclose(handle)

	addr, err := purego.Dlsym(handle, symbol)
	if err != nil || addr == 0 {
		return &SymbolError{Artifact: path, Symbol: symbol}
	}
	return nil
}
