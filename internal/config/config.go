// Package config resolves orchestrator configuration once at startup. After
// Resolve returns, nothing else in the program reads the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables honored during Resolve.
const (
	EnvPrefix     = "GTS_FORGE_PREFIX"
	EnvEditorLive = "GTS_FORGE_EDITOR_LIVE"
	EnvTrace      = "GTS_FORGE_TRACE"
	EnvCC         = "CC"
	EnvCXX        = "CXX"
)

// DefaultCoreJobs is the parallelism handed to the nested core-library make.
const DefaultCoreJobs = 8

// Config carries every knob the orchestrator needs, resolved up front and
// passed explicitly.
type Config struct {
	// Root is the absolute path of the grammar workspace.
	Root string

	// Prefix is the install tree; artifacts land in Prefix/lib and the core
	// library's headers in Prefix/include.
	Prefix string

	// CC and CXX are the C and C++ compiler drivers.
	CC  string
	CXX string

	// EditorLive makes installs write aside instead of clobbering a library
	// file a live editor may have open.
	EditorLive bool

	// Trace appends a stack trace to precondition failures.
	Trace bool

	// CoreJobs is the -j value for the nested core-library build.
	CoreJobs int
}

// Resolve builds a Config for the given workspace root. An optional .env file
// in the root is folded into the environment first (existing variables win,
// matching godotenv semantics).
func Resolve(root string) (Config, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("resolve workspace root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Config{}, fmt.Errorf("workspace root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return Config{}, fmt.Errorf("workspace root %s is not a directory", abs)
	}

	if envFile := filepath.Join(abs, ".env"); fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	prefix := os.Getenv(EnvPrefix)
	if prefix == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve install prefix: %w", err)
		}
		prefix = filepath.Join(home, ".gts-forge")
	}

	return Config{
		Root:       abs,
		Prefix:     prefix,
		CC:         envOr(EnvCC, "cc"),
		CXX:        envOr(EnvCXX, "c++"),
		EditorLive: boolEnv(EnvEditorLive),
		Trace:      boolEnv(EnvTrace),
		CoreJobs:   DefaultCoreJobs,
	}, nil
}

// LibDir is where installed shared libraries live.
func (c Config) LibDir() string {
	return filepath.Join(c.Prefix, "lib")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func boolEnv(key string) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		// Presence of a non-empty, non-boolean value still means "on",
		// matching how shell wrappers treat such flags.
		return true
	}
	return value
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
