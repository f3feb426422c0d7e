package main

import (
	"flag"
	"os"
)

func runVerify(args []string) error {
	flags := flag.NewFlagSet("verify", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var opts commonOpts
	addCommonFlags(flags, &opts)

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

	tokens := flags.Args()
	if len(tokens) == 0 {
		tokens, err = b.DiscoverTokens()
		if err != nil {
			return err
		}
	}

	for _, token := range tokens {
		if err := b.VerifyLanguage(token); err != nil {
			return finishErr(cfg, err)
		}
	}
	return nil
}
