package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gts-forge/internal/builder"
	"gts-forge/internal/config"
	"gts-forge/internal/manifest"
	"gts-forge/internal/runner"
	"gts-forge/internal/toolchain"
)

// commonOpts are the flags shared by every subcommand.
type commonOpts struct {
	root    string
	prefix  string
	verbose bool
}

func addCommonFlags(flags *flag.FlagSet, opts *commonOpts) {
	flags.StringVar(&opts.root, "root", ".", "Grammar workspace root")
	flags.StringVar(&opts.prefix, "prefix", "", "Install prefix (overrides "+config.EnvPrefix+")")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
}

// resolve builds the effective configuration and wires the process logger.
func (o commonOpts) resolve() (config.Config, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Resolve(o.root)
	if err != nil {
		return config.Config{}, err
	}
	if o.prefix != "" {
		cfg.Prefix = o.prefix
	}
	return cfg, nil
}

func newBuilder(cfg config.Config) (*builder.Builder, error) {
	man, err := manifest.Load(filepath.Join(cfg.Root, manifest.DefaultFile))
	if err != nil {
		return nil, err
	}
	return builder.New(cfg, man, runner.NewExec(os.Stderr), os.Stdout)
}

// finishErr maps build failures to process exit semantics: external command
// failures propagate their exit code, and precondition failures carry a stack
// trace when tracing is enabled.
func finishErr(cfg config.Config, err error) error {
	if err == nil {
		return nil
	}

	if cfg.Trace {
		if trace := preconditionStack(err); len(trace) > 0 {
			err = fmt.Errorf("%w\n%s", err, trace)
		}
	}

	var cmdErr *runner.CommandError
	if errors.As(err, &cmdErr) {
		return exitCodeError{code: cmdErr.ExitCode, err: err}
	}
	return err
}

func preconditionStack(err error) []byte {
	var missing *toolchain.MissingSourceError
	if errors.As(err, &missing) {
		return missing.Stack
	}
	var conflict *toolchain.ScannerConflictError
	if errors.As(err, &conflict) {
		return conflict.Stack
	}
	return nil
}

func usageError(err error) error {
	return exitCodeError{code: 2, err: err}
}

// commonValueFlags lists flags that consume the next argument, so positional
// arguments can be interspersed with them on the command line.
func commonValueFlags(extra ...string) map[string]bool {
	valueFlags := map[string]bool{
		"-root":    true,
		"--root":   true,
		"-prefix":  true,
		"--prefix": true,
	}
	for _, name := range extra {
		valueFlags["-"+name] = true
		valueFlags["--"+name] = true
	}
	return valueFlags
}

func normalizeFlagArgs(args []string, valueFlags map[string]bool) []string {
	if len(args) == 0 {
		return nil
	}

	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}

		if !strings.HasPrefix(arg, "-") {
			positionals = append(positionals, arg)
			continue
		}

		flags = append(flags, arg)
		if strings.Contains(arg, "=") {
			continue
		}
		if !valueFlags[arg] {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}

	return append(flags, positionals...)
}

func reportStats(stats builder.Stats) {
	fmt.Printf("built %d artifact(s), %d up to date\n", stats.Built, stats.Skipped)
}
