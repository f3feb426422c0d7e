package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func runUpdate(args []string) error {
	flags := flag.NewFlagSet("update", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var opts commonOpts
	addCommonFlags(flags, &opts)
	force := flags.Bool("force", false, "Move pinned entries to their latest release too")

	if err := flags.Parse(normalizeFlagArgs(args, commonValueFlags())); err != nil {
		return usageError(err)
	}
	if flags.NArg() != 0 {
		return usageError(fmt.Errorf("update takes no positional arguments"))
	}

	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	b, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	if err := b.UpdateAll(context.Background(), *force); err != nil {
		return finishErr(cfg, err)
	}
	fmt.Println("all tracked grammars updated; run `gtsforge build` to rebuild")
	return nil
}
