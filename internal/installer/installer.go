// Package installer copies built artifacts into the install tree.
package installer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LiveSuffix is appended to the destination name when a live editor may hold
// the current file open.
const LiveSuffix = ".new"

// Install copies artifact into libDir, creating it as needed. Overwriting an
// existing artifact is idempotent. When editorLive is set and the destination
// already exists, the copy goes to an alternate "<name>.new" path so the
// mapped library under an editor's feet is never replaced in place.
//
// The returned path is where the artifact actually landed.
func Install(artifact, libDir string, editorLive bool) (string, error) {
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return "", fmt.Errorf("create install directory %s: %w", libDir, err)
	}

	dest := filepath.Join(libDir, filepath.Base(artifact))
	if editorLive {
		if _, err := os.Stat(dest); err == nil {
			dest += LiveSuffix
		}
	}

	if err := copyAtomic(artifact, dest); err != nil {
		return "", fmt.Errorf("install %s: %w", filepath.Base(artifact), err)
	}
	return dest, nil
}

// copyAtomic writes through a temp file in the destination directory and
// renames over the target, so readers never observe a half-written library.
func copyAtomic(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
