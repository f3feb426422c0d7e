package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/odvcencio/fluffyui/keybind"
)

type commandSpec struct {
	ID      string
	Aliases []string
	Summary string
	Usage   string
	Run     func(args []string) error
}

type cli struct {
	registry   *keybind.CommandRegistry
	specs      map[string]commandSpec
	aliasToID  map[string]string
	invokeArgs []string
	invokeErr  error
}

type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string {
	if e.err == nil {
		return "command failed"
	}
	return e.err.Error()
}

func (e exitCodeError) Unwrap() error {
	return e.err
}

func (e exitCodeError) ExitCode() int {
	if e.code <= 0 {
		return 1
	}
	return e.code
}

func newCLI() *cli {
	c := &cli{
		registry:  keybind.NewRegistry(),
		specs:     make(map[string]commandSpec),
		aliasToID: make(map[string]string),
	}

	commands := []commandSpec{
		{
			ID:      "build",
			Aliases: []string{"b"},
			Summary: "Build grammar libraries (and the core library when unscoped)",
			Usage:   "build [tokens...] [--root .] [--prefix dir] [--rebuild] [--verify] [--verbose]",
			Run:     runBuild,
		},
		{
			ID:      "add",
			Aliases: []string{"a"},
			Summary: "Register a grammar repository, check out its latest release, and build it",
			Usage:   "add <url> [--root .] [--prefix dir] [--force] [--verbose]",
			Run:     runAdd,
		},
		{
			ID:      "update",
			Aliases: []string{"up"},
			Summary: "Move every tracked grammar tree to its latest release",
			Usage:   "update [--root .] [--force] [--verbose]",
			Run:     runUpdate,
		},
		{
			ID:      "watch",
			Aliases: []string{"w"},
			Summary: "Rebuild grammar libraries whenever their sources change",
			Usage:   "watch [tokens...] [--root .] [--prefix dir] [--verify] [--poll] [--interval 2s] [--debounce 250ms] [--verbose]",
			Run:     runWatch,
		},
		{
			ID:      "verify",
			Aliases: []string{"check"},
			Summary: "Load installed artifacts and resolve their entry symbols",
			Usage:   "verify [tokens...] [--root .] [--prefix dir] [--verbose]",
			Run:     runVerify,
		},
		{
			ID:      "list",
			Aliases: []string{"ls"},
			Summary: "Print the resolved recipe table",
			Usage:   "list [--root .] [--verbose]",
			Run:     runList,
		},
	}

	for _, spec := range commands {
		specCopy := spec
		c.specs[specCopy.ID] = specCopy
		c.aliasToID[specCopy.ID] = specCopy.ID
		for _, alias := range specCopy.Aliases {
			c.aliasToID[strings.ToLower(alias)] = specCopy.ID
		}

		commandID := specCopy.ID
		c.registry.Register(keybind.Command{
			ID:          commandID,
			Title:       specCopy.ID,
			Description: specCopy.Summary,
			Handler: func(ctx keybind.Context) {
				c.invokeErr = c.specs[commandID].Run(c.invokeArgs)
			},
		})
	}

	return c
}

func (c *cli) Run(args []string) error {
	if len(args) == 0 {
		c.printHelp()
		return nil
	}

	name := strings.ToLower(strings.TrimSpace(args[0]))
	if name == "-h" || name == "--help" {
		c.printHelp()
		return nil
	}
	if name == "help" {
		if len(args) == 1 {
			c.printHelp()
			return nil
		}
		id, ok := c.aliasToID[strings.ToLower(strings.TrimSpace(args[1]))]
		if !ok {
			return exitCodeError{code: 2, err: fmt.Errorf("unknown command %q", args[1])}
		}
		c.printCommandHelp(id)
		return nil
	}

	commandID, ok := c.aliasToID[name]
	if !ok {
		return exitCodeError{code: 2, err: fmt.Errorf("unknown command %q", args[0])}
	}
	if len(args) > 1 {
		firstArg := strings.TrimSpace(args[1])
		if firstArg == "-h" || firstArg == "--help" {
			c.printCommandHelp(commandID)
			return nil
		}
	}

	c.invokeArgs = args[1:]
	c.invokeErr = nil

	if ok := c.registry.Execute(commandID, keybind.Context{}); !ok {
		return fmt.Errorf("command %q is not executable", commandID)
	}
	return c.invokeErr
}

func (c *cli) printHelp() {
	ids := make([]string, 0, len(c.specs))
	for id := range c.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(os.Stderr, "gtsforge v%s\n\n", version)
	fmt.Println("gts-forge: builds tree-sitter grammar shared libraries")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gtsforge <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, id := range ids {
		spec := c.specs[id]
		fmt.Printf("  %-8s %s\n", spec.ID, spec.Summary)
	}
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  gtsforge build")
	fmt.Println("  gtsforge build go rust --verify")
	fmt.Println("  gtsforge build core")
	fmt.Println("  gtsforge add https://github.com/tree-sitter/tree-sitter-zig")
	fmt.Println("  gtsforge update --force")
	fmt.Println("  gtsforge watch typescript --debounce 500ms")
	fmt.Println("  gtsforge verify typescript")
	fmt.Println("  gtsforge list")
	fmt.Println("  gtsforge help build")
}

func (c *cli) printCommandHelp(id string) {
	spec, ok := c.specs[id]
	if !ok {
		return
	}

	fmt.Printf("%s\n", spec.ID)
	fmt.Println()
	fmt.Printf("Summary: %s\n", spec.Summary)
	fmt.Printf("Usage:   gtsforge %s\n", spec.Usage)
	if len(spec.Aliases) > 0 {
		fmt.Printf("Aliases: %s\n", strings.Join(spec.Aliases, ", "))
	}
}
