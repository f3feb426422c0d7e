package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func runAdd(args []string) error {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var opts commonOpts
	addCommonFlags(flags, &opts)
	force := flags.Bool("force", false, "Replace an existing manifest entry and checkout")

	if err := flags.Parse(normalizeFlagArgs(args, commonValueFlags())); err != nil {
		return usageError(err)
	}
	if flags.NArg() != 1 {
		return usageError(fmt.Errorf("add expects exactly one repository URL"))
	}

	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	b, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	token, stats, err := b.AddLanguage(context.Background(), flags.Arg(0), *force)
	if err != nil {
		return finishErr(cfg, err)
	}
	fmt.Printf("%s added\n", token)
	reportStats(stats)
	return nil
}
