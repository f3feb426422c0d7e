// Package fingerprint decides whether a grammar tree's build inputs changed
// since the last successful build in this process, so watch-and-rebuild loops
// skip untouched trees.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

// Cache remembers the digest of each build target's inputs. Entries for
// rarely rebuilt targets age out; a miss just means one extra rebuild.
type Cache struct {
	entries *lru.Cache[string, string]
}

// NewCache returns a Cache sized for the given number of targets; size <= 0
// uses the default.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create fingerprint cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Unchanged reports whether the inputs for key hash to the same digest seen
// last time, and records the new digest either way.
func (c *Cache) Unchanged(key string, inputs []string) (bool, error) {
	digest, err := Digest(inputs)
	if err != nil {
		return false, err
	}
	previous, seen := c.entries.Get(key)
	c.entries.Add(key, digest)
	return seen && previous == digest, nil
}

// Forget drops the cached digest for key, forcing the next check to report a
// change.
func (c *Cache) Forget(key string) {
	c.entries.Remove(key)
}

// Digest hashes the contents of the given files. Order does not matter; a
// missing file is an error because callers validate layout first.
func Digest(inputs []string) (string, error) {
	paths := append([]string(nil), inputs...)
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", path, err)
		}
		io.WriteString(h, path)
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("fingerprint %s: %w", path, err)
		}
		f.Close()
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
