package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gts-forge/internal/watch"
)

func runWatch(args []string) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var opts commonOpts
	addCommonFlags(flags, &opts)
	verifyAfter := flags.Bool("verify", false, "Verify each artifact after rebuilding")
	poll := flags.Bool("poll", false, "Poll for changes instead of using filesystem notifications")
	interval := flags.Duration("interval", 2*time.Second, "Polling interval when --poll is set")
	debounce := flags.Duration("debounce", watch.DefaultDebounce, "Quiet period before a change batch triggers a rebuild")

	if err := flags.Parse(normalizeFlagArgs(args, commonValueFlags("interval", "debounce"))); err != nil {
		return usageError(err)
	}

	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	b, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	b.Verify = *verifyAfter

	tokens := flags.Args()
	if len(tokens) == 0 {
		tokens, err = b.DiscoverTokens()
		if err != nil {
			return err
		}
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no grammar trees to watch under %s", cfg.Root)
	}

	roots, err := b.WatchRoots(tokens)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, token := range tokens {
		if _, err := b.BuildLanguage(ctx, token); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}

	fmt.Printf("watching %s\n", strings.Join(tokens, ", "))
	onChange := func(change watch.Change) {
		fmt.Printf("%s changed (%d path(s)), rebuilding\n", change.Token, len(change.Paths))
		if _, err := b.BuildLanguage(ctx, change.Token); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}

	watchOpts := watch.Options{
		Debounce: *debounce,
		Poll:     *poll,
		Interval: *interval,
	}
	return watch.Run(ctx, roots, watchOpts, onChange)
}
