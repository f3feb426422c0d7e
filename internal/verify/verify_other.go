//go:build !(darwin || linux || freebsd)

package verify

// Supported reports whether artifact verification works on this platform.
func Supported() bool { return false }

// Artifact always fails with ErrUnsupported on this platform.
func Artifact(path, symbol string) error {
	return ErrUnsupported
}
