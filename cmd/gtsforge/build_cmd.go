package main

import (
	"context"
	"flag"
	"os"

	"gts-forge/internal/builder"
	"gts-forge/internal/recipe"
)

func runBuild(args []string) error {
	flags := flag.NewFlagSet("build", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var opts commonOpts
	addCommonFlags(flags, &opts)
	rebuild := flags.Bool("rebuild", false, "Rebuild even when inputs are unchanged")
	verifyAfter := flags.Bool("verify", false, "Load each installed artifact and resolve its entry symbol")

	if err := flags.Parse(normalizeFlagArgs(args, commonValueFlags())); err != nil {
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
	b.Rebuild = *rebuild
	b.Verify = *verifyAfter

	ctx := context.Background()
	tokens := flags.Args()

	if len(tokens) == 0 {
		if err := b.BuildCore(ctx); err != nil {
			return finishErr(cfg, err)
		}
		stats, err := b.BuildAll(ctx)
		reportStats(stats)
		return finishErr(cfg, err)
	}

	total := builder.Stats{}
	for _, token := range tokens {
		if token == "core" || token == recipe.CoreDir {
			if err := b.BuildCore(ctx); err != nil {
				return finishErr(cfg, err)
			}
			continue
		}
		stats, err := b.BuildLanguage(ctx, token)
		total.Merge(stats)
		if err != nil {
			return finishErr(cfg, err)
		}
	}
	reportStats(total)
	return nil
}
