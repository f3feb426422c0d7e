package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"gts-forge/internal/platform"
	"gts-forge/internal/recipe"
)

func runList(args []string) error {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	var opts commonOpts
	addCommonFlags(flags, &opts)

	if err := flags.Parse(normalizeFlagArgs(args, commonValueFlags())); err != nil {
		return usageError(err)
	}
	if flags.NArg() != 0 {
		return usageError(fmt.Errorf("list takes no positional arguments"))
	}

	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	b, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	recipes := b.Table().Known()
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Token < recipes[j].Token })

	fmt.Printf("%-14s %-8s %-34s %s\n", "TOKEN", "KIND", "DIRECTORY", "ARTIFACT")
	for _, rec := range recipes {
		for i, target := range rec.Targets {
			token := rec.Token
			kind := rec.Kind.String()
			if i > 0 {
				token = ""
				kind = ""
			}
			fmt.Printf("%-14s %-8s %-34s %s\n", token, kind, target.Dir, platform.ArtifactName(target.ArtifactBase))
		}
	}
	fmt.Printf("\nother tokens resolve to %s<token> by convention\n", recipe.DirPrefix)
	return nil
}
