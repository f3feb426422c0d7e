// Package builder orchestrates grammar and core-library builds: it resolves
// tokens through the recipe table, drives the toolchain and git, and installs
// artifacts. It holds no global state and never changes the process working
// directory.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"

	"gts-forge/internal/config"
	"gts-forge/internal/fingerprint"
	"gts-forge/internal/gitvc"
	"gts-forge/internal/installer"
	"gts-forge/internal/manifest"
	"gts-forge/internal/platform"
	"gts-forge/internal/recipe"
	"gts-forge/internal/runner"
	"gts-forge/internal/toolchain"
	"gts-forge/internal/verify"
	"gts-forge/pkg/ignore"
)

// Stats summarizes one build operation.
type Stats struct {
	Built     int
	Skipped   int
	Artifacts []string
}

func (s *Stats) Merge(other Stats) {
	s.Built += other.Built
	s.Skipped += other.Skipped
	s.Artifacts = append(s.Artifacts, other.Artifacts...)
}

// Builder executes build, add, and update operations against one workspace.
type Builder struct {
	cfg   config.Config
	table *recipe.Table
	man   *manifest.Manifest
	tc    *toolchain.Toolchain
	git   *gitvc.Client
	fp    *fingerprint.Cache
	out   io.Writer

	// Rebuild bypasses the fingerprint gate.
	Rebuild bool

	// Verify dlopens each installed artifact and resolves its entry symbol.
	Verify bool
}

// New wires a Builder from resolved configuration. Manifest entries with
// unconventional directories are folded into the recipe table here, once.
func New(cfg config.Config, man *manifest.Manifest, run runner.Runner, out io.Writer) (*Builder, error) {
	if out == nil {
		out = io.Discard
	}

	table := recipe.NewTable()
	for _, entry := range man.Grammars {
		if entry.Dir == "" {
			continue
		}
		if err := table.Override(entry.Name, entry.Dir); err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", entry.Name, err)
		}
	}

	fp, err := fingerprint.NewCache(0)
	if err != nil {
		return nil, err
	}

	return &Builder{
		cfg:   cfg,
		table: table,
		man:   man,
		tc:    toolchain.New(cfg.CC, cfg.CXX, run),
		git:   gitvc.NewClient(run),
		fp:    fp,
		out:   out,
	}, nil
}

// Table exposes the resolved recipe table (for listing).
func (b *Builder) Table() *recipe.Table {
	return b.table
}

// BuildCore runs the core library's nested make build and installs it under
// the prefix, then removes the static archive so grammar consumers link
// dynamically.
func (b *Builder) BuildCore(ctx context.Context) error {
	dir := filepath.Join(b.cfg.Root, recipe.CoreDir)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return &toolchain.MissingSourceError{Dir: dir, Stack: debug.Stack()}
	}

	fmt.Fprintf(b.out, "building core library in %s\n", dir)
	if err := b.tc.Run.Run(ctx, dir, "make", "clean"); err != nil {
		return err
	}
	if err := b.tc.Run.Run(ctx, dir, "make", fmt.Sprintf("-j%d", b.cfg.CoreJobs)); err != nil {
		return err
	}
	if err := b.tc.Run.Run(ctx, dir, "make", "install", "PREFIX="+b.cfg.Prefix); err != nil {
		return err
	}

	archive := filepath.Join(b.cfg.LibDir(), "libtree-sitter.a")
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove static archive %s: %w", archive, err)
	}

	fmt.Fprintf(b.out, "core library installed under %s\n", b.cfg.Prefix)
	return nil
}

// BuildLanguage builds every target of the token's recipe and installs the
// resulting artifacts.
func (b *Builder) BuildLanguage(ctx context.Context, token string) (Stats, error) {
	rec, err := b.table.Resolve(token)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{}
	for _, target := range rec.Targets {
		installed, skipped, err := b.buildTarget(ctx, target)
		if err != nil {
			return stats, fmt.Errorf("build %s: %w", rec.Token, err)
		}
		if skipped {
			stats.Skipped++
			continue
		}
		stats.Built++
		stats.Artifacts = append(stats.Artifacts, installed)
	}
	return stats, nil
}

func (b *Builder) buildTarget(ctx context.Context, target recipe.Target) (string, bool, error) {
	dir := filepath.Join(b.cfg.Root, filepath.FromSlash(target.Dir))

	srcs, err := toolchain.Discover(dir)
	if err != nil {
		return "", false, err
	}

	installedPath := filepath.Join(b.cfg.LibDir(), platform.ArtifactName(target.ArtifactBase))
	if !b.Rebuild {
		unchanged, err := b.fp.Unchanged(target.Dir, srcs.InputFiles())
		if err != nil {
			return "", false, err
		}
		if unchanged && fileExists(installedPath) {
			slog.Debug("inputs unchanged, skipping", "target", target.Dir)
			fmt.Fprintf(b.out, "%-28s up to date\n", target.ArtifactBase)
			return installedPath, true, nil
		}
	}

	fmt.Fprintf(b.out, "%-28s compiling %s\n", target.ArtifactBase, target.Dir)
	artifact, err := b.tc.Build(ctx, dir, target.ArtifactBase)
	if err != nil {
		b.fp.Forget(target.Dir)
		return "", false, err
	}

	installed, err := installer.Install(artifact, b.cfg.LibDir(), b.cfg.EditorLive)
	if err != nil {
		b.fp.Forget(target.Dir)
		return "", false, err
	}

	if b.Verify {
		if err := b.verifyArtifact(installed, target.Symbol); err != nil {
			return "", false, err
		}
	}

	fmt.Fprintf(b.out, "%-28s installed to %s\n", target.ArtifactBase, installed)
	return installed, false, nil
}

// DiscoverTokens lists the buildable tokens in the workspace: every
// conventionally named grammar directory, minus the core library, dotted
// entries, non-directories, and ignore-file matches. Aggregate trees resolve
// to a single selector token.
func (b *Builder) DiscoverTokens() ([]string, error) {
	entries, err := os.ReadDir(b.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("list workspace %s: %w", b.cfg.Root, err)
	}
	matcher, err := ignore.LoadRoot(b.cfg.Root)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var tokens []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == recipe.CoreDir || strings.HasPrefix(name, ".") {
			continue
		}
		if matcher.Match(name, true) {
			continue
		}

		token, err := b.table.TokenForDir(name)
		if err != nil {
			var unknown *recipe.UnknownDirError
			if errors.As(err, &unknown) {
				slog.Debug("skipping unconventional directory", "dir", name)
				continue
			}
			return nil, err
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}

	sort.Strings(tokens)
	return tokens, nil
}

// BuildAll builds every discovered token sequentially, aborting on the first
// failure.
func (b *Builder) BuildAll(ctx context.Context) (Stats, error) {
	tokens, err := b.DiscoverTokens()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{}
	for _, token := range tokens {
		tokenStats, err := b.BuildLanguage(ctx, token)
		stats.Merge(tokenStats)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// AddLanguage registers a new grammar remote, checks out its latest release,
// records it in the manifest, and builds it. The URL is validated before any
// directory is created or git is invoked.
func (b *Builder) AddLanguage(ctx context.Context, url string, force bool) (string, Stats, error) {
	if err := gitvc.ValidateURL(url); err != nil {
		return "", Stats{}, err
	}
	dir, err := gitvc.DirFromURL(url)
	if err != nil {
		return "", Stats{}, err
	}

	token := dir
	dirOverride := ""
	if derived, err := b.table.TokenForDir(dir); err == nil {
		token = derived
	} else {
		// Unconventional checkout name: track it under the directory
		// name itself and pin the layout in the manifest.
		dirOverride = dir
		if err := b.table.Override(token, dir); err != nil {
			return "", Stats{}, err
		}
	}

	entry := manifest.Entry{Name: token, URL: url, Dir: dirOverride}
	if err := b.man.Add(entry, force); err != nil {
		return "", Stats{}, err
	}

	fmt.Fprintf(b.out, "adding %s from %s\n", token, url)
	if err := b.git.AddSubmodule(ctx, b.cfg.Root, url, dir, force); err != nil {
		return "", Stats{}, err
	}
	ref, err := b.git.CheckoutLatestRelease(ctx, filepath.Join(b.cfg.Root, dir))
	if err != nil {
		return "", Stats{}, err
	}
	if ref != "" {
		fmt.Fprintf(b.out, "%s checked out at %s\n", token, ref)
	}

	if err := b.man.Save(); err != nil {
		return "", Stats{}, err
	}

	stats, err := b.BuildLanguage(ctx, token)
	return token, stats, err
}

// UpdateAll moves every tracked grammar tree to its latest released tag (or
// tracking branch when untagged), discarding local modifications first.
// Entries pinned to an explicit ref stay pinned unless force is set.
func (b *Builder) UpdateAll(ctx context.Context, force bool) error {
	for _, entry := range b.trackedEntries() {
		dir := filepath.Join(b.cfg.Root, entry.Directory())
		if !dirExists(dir) {
			return &toolchain.MissingSourceError{Dir: dir, Stack: debug.Stack()}
		}

		fmt.Fprintf(b.out, "updating %s\n", entry.Directory())
		if err := b.git.Discard(ctx, dir); err != nil {
			return err
		}

		if entry.Ref != "" && !force {
			if err := b.git.FetchTags(ctx, dir); err != nil {
				return err
			}
			if err := b.git.Checkout(ctx, dir, entry.Ref); err != nil {
				return err
			}
			fmt.Fprintf(b.out, "%s pinned at %s\n", entry.Name, entry.Ref)
			continue
		}

		ref, err := b.git.CheckoutLatestRelease(ctx, dir)
		if err != nil {
			return err
		}
		if ref == "" {
			fmt.Fprintf(b.out, "%s fast-forwarded (no release tags)\n", entry.Name)
		} else {
			fmt.Fprintf(b.out, "%s now at %s\n", entry.Name, ref)
		}
	}
	return nil
}

// trackedEntries merges manifest entries with grammar directories that carry
// git metadata but predate the manifest.
func (b *Builder) trackedEntries() []manifest.Entry {
	entries := append([]manifest.Entry(nil), b.man.Grammars...)
	known := map[string]bool{}
	for _, entry := range entries {
		known[entry.Directory()] = true
	}

	listed, err := os.ReadDir(b.cfg.Root)
	if err != nil {
		return entries
	}
	for _, item := range listed {
		if !item.IsDir() {
			continue
		}
		name := item.Name()
		if name == recipe.CoreDir || known[name] {
			continue
		}
		if !strings.HasPrefix(name, recipe.DirPrefix) {
			continue
		}
		// Submodules keep a .git file, standalone clones a .git dir.
		if _, err := os.Stat(filepath.Join(b.cfg.Root, name, ".git")); err != nil {
			continue
		}
		token := strings.TrimPrefix(name, recipe.DirPrefix)
		entries = append(entries, manifest.Entry{Name: token, Dir: name})
		known[name] = true
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// VerifyLanguage checks that every installed artifact for the token loads
// and exports its entry symbol.
func (b *Builder) VerifyLanguage(token string) error {
	rec, err := b.table.Resolve(token)
	if err != nil {
		return err
	}
	for _, target := range rec.Targets {
		installed := filepath.Join(b.cfg.LibDir(), platform.ArtifactName(target.ArtifactBase))
		if !fileExists(installed) {
			return fmt.Errorf("%s is not installed (expected %s)", target.ArtifactBase, installed)
		}
		if err := b.verifyArtifact(installed, target.Symbol); err != nil {
			return err
		}
		fmt.Fprintf(b.out, "%-28s ok (%s)\n", target.ArtifactBase, target.Symbol)
	}
	return nil
}

func (b *Builder) verifyArtifact(path, symbol string) error {
	if !verify.Supported() {
		slog.Warn("skipping artifact verification", "reason", verify.ErrUnsupported)
		return nil
	}
	return verify.Artifact(path, symbol)
}

// WatchRoots maps each token to the workspace directory that should be
// observed for it.
func (b *Builder) WatchRoots(tokens []string) (map[string]string, error) {
	roots := make(map[string]string, len(tokens))
	for _, token := range tokens {
		rec, err := b.table.Resolve(token)
		if err != nil {
			return nil, err
		}
		top := rec.Targets[0].Dir
		if idx := strings.IndexByte(top, '/'); idx > 0 {
			top = top[:idx]
		}
		roots[rec.Token] = filepath.Join(b.cfg.Root, top)
	}
	return roots, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
