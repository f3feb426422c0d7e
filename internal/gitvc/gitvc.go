// Package gitvc wraps the git operations used to track grammar source trees:
// submodule registration, tag discovery, checkout, and cleanup.
package gitvc

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gts-forge/internal/runner"
)

// ValidateURL accepts only the remotes the original tooling accepted:
// ssh-style git@ remotes and https:// remotes. Anything else fails before a
// directory is created or git is invoked.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty repository url")
	}
	if strings.HasPrefix(raw, "git@") || strings.HasPrefix(raw, "https://") {
		return nil
	}
	return fmt.Errorf("unsupported repository url %q: only git@ and https:// remotes are accepted", raw)
}

// DirFromURL derives the checkout directory from the remote's last path
// segment, with any .git suffix stripped.
func DirFromURL(raw string) (string, error) {
	if err := ValidateURL(raw); err != nil {
		return "", err
	}

	trimmed := strings.TrimSuffix(strings.TrimRight(raw, "/"), ".git")
	// ssh remotes separate the path with a colon.
	if idx := strings.LastIndexByte(trimmed, ':'); strings.HasPrefix(trimmed, "git@") && idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	segment := path.Base(trimmed)
	if segment == "" || segment == "." || segment == "/" {
		return "", fmt.Errorf("cannot derive a directory name from %q", raw)
	}
	return segment, nil
}

// Client runs git against tracked trees.
type Client struct {
	Run runner.Runner
}

// NewClient returns a Client using run for command execution.
func NewClient(run runner.Runner) *Client {
	return &Client{Run: run}
}

// AddSubmodule registers url as a submodule of the workspace at root, checked
// out into dir.
func (c *Client) AddSubmodule(ctx context.Context, root, url, dir string, force bool) error {
	args := []string{"submodule", "add"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, url, dir)
	return c.Run.Run(ctx, root, "git", args...)
}

// FetchTags updates the tree's remote refs and tags.
func (c *Client) FetchTags(ctx context.Context, dir string) error {
	return c.Run.Run(ctx, dir, "git", "fetch", "--tags", "--quiet", "origin")
}

// LatestTag returns the highest version-sorted tag, or "" when the repository
// has no tags.
func (c *Client) LatestTag(ctx context.Context, dir string) (string, error) {
	out, err := c.Run.Output(ctx, dir, "git", "tag", "--sort=-v:refname")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if tag := strings.TrimSpace(line); tag != "" {
			return tag, nil
		}
	}
	return "", nil
}

// Checkout moves the tree to ref.
func (c *Client) Checkout(ctx context.Context, dir, ref string) error {
	return c.Run.Run(ctx, dir, "git", "checkout", "--quiet", ref)
}

// FastForward advances the current branch to its upstream.
func (c *Client) FastForward(ctx context.Context, dir string) error {
	return c.Run.Run(ctx, dir, "git", "merge", "--ff-only", "@{u}")
}

// Discard drops local modifications in the tree.
func (c *Client) Discard(ctx context.Context, dir string) error {
	return c.Run.Run(ctx, dir, "git", "checkout", "--quiet", "--", ".")
}

// CheckoutLatestRelease fetches and moves the tree to its most recent
// released tag, falling back to fast-forwarding the tracking branch when the
// repository has never tagged a release. It returns the ref it landed on
// ("" for the branch fallback).
func (c *Client) CheckoutLatestRelease(ctx context.Context, dir string) (string, error) {
	if err := c.FetchTags(ctx, dir); err != nil {
		return "", err
	}
	tag, err := c.LatestTag(ctx, dir)
	if err != nil {
		return "", err
	}
	if tag != "" {
		if err := c.Checkout(ctx, dir, tag); err != nil {
			return "", err
		}
		return tag, nil
	}
	if err := c.FastForward(ctx, dir); err != nil {
		return "", err
	}
	return "", nil
}
