// Package watch observes grammar source trees and reports debounced change
// batches so the orchestrator can rebuild only what was touched.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches rapid editor saves into one rebuild.
const DefaultDebounce = 250 * time.Millisecond

// Options tunes the watcher.
type Options struct {
	// Debounce is how long to wait after the last event before reporting.
	Debounce time.Duration

	// Poll switches to mtime polling for filesystems without native
	// notification support.
	Poll bool

	// Interval is the polling period when Poll is set.
	Interval time.Duration
}

// Change is one debounced batch of modified paths under a watched token.
type Change struct {
	Token string
	Paths []string
}

// Run watches the given token -> directory roots until ctx is canceled,
// invoking onChange with each debounced batch. Build products (object files
// and shared libraries) are ignored so rebuilds do not retrigger themselves.
func Run(ctx context.Context, roots map[string]string, opts Options, onChange func(Change)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Poll {
		if opts.Interval <= 0 {
			opts.Interval = 2 * time.Second
		}
		return runPolling(ctx, roots, opts.Interval, onChange)
	}
	return runFSNotify(ctx, roots, opts.Debounce, onChange)
}

func runFSNotify(ctx context.Context, roots map[string]string, debounce time.Duration, onChange func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range roots {
		if err := addRecursive(watcher, root); err != nil {
			return err
		}
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	pending := false
	pendingPaths := map[string]bool{}

	resetDebounce := func(path string) {
		pendingPaths[path] = true
		if pending {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		timer.Reset(debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			path := filepath.Clean(event.Name)
			if ignorePath(path) {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					_ = addRecursive(watcher, path)
				}
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) == 0 {
				continue
			}
			resetDebounce(path)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			batches := groupByToken(roots, pendingPaths)
			pendingPaths = map[string]bool{}
			for _, change := range batches {
				onChange(change)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func runPolling(ctx context.Context, roots map[string]string, interval time.Duration, onChange func(Change)) error {
	last := make(map[string]time.Time, len(roots))
	for token, root := range roots {
		last[token] = newestMtime(root)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for token, root := range roots {
				newest := newestMtime(root)
				if newest.After(last[token]) {
					last[token] = newest
					onChange(Change{Token: token, Paths: []string{root}})
				}
			}
		}
	}
}

func newestMtime(root string) time.Time {
	var newest time.Time
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ignorePath(path) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// groupByToken maps each changed path to the watched root containing it,
// preferring the longest (most specific) root.
func groupByToken(roots map[string]string, pendingPaths map[string]bool) []Change {
	byToken := map[string][]string{}
	for path := range pendingPaths {
		token := tokenForPath(roots, path)
		if token == "" {
			continue
		}
		byToken[token] = append(byToken[token], path)
	}

	tokens := make([]string, 0, len(byToken))
	for token := range byToken {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	changes := make([]Change, 0, len(tokens))
	for _, token := range tokens {
		paths := byToken[token]
		sort.Strings(paths)
		changes = append(changes, Change{Token: token, Paths: paths})
	}
	return changes
}

func tokenForPath(roots map[string]string, path string) string {
	best := ""
	bestLen := -1
	for token, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(root) > bestLen {
			best = token
			bestLen = len(root)
		}
	}
	return best
}

// ignorePath filters build products and VCS noise out of the event stream.
func ignorePath(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, ".o"):
		return true
	case strings.HasSuffix(base, ".so"), strings.HasSuffix(base, ".dylib"), strings.HasSuffix(base, ".dll"):
		return true
	case base == ".git":
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}
