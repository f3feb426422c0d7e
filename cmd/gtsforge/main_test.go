package main

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"gts-forge/internal/config"
	"gts-forge/internal/runner"
	"gts-forge/internal/toolchain"
)

func TestNewCLI_HasCoreCommandsAndAliases(t *testing.T) {
	app := newCLI()

	for _, id := range []string{"build", "add", "update", "watch", "verify", "list"} {
		if _, ok := app.specs[id]; !ok {
			t.Fatalf("missing command spec for %q", id)
		}
		if mapped, ok := app.aliasToID[id]; !ok || mapped != id {
			t.Fatalf("missing canonical alias for %q", id)
		}
	}

	for alias, id := range map[string]string{
		"b":     "build",
		"a":     "add",
		"up":    "update",
		"w":     "watch",
		"check": "verify",
		"ls":    "list",
	} {
		if mapped, ok := app.aliasToID[alias]; !ok || mapped != id {
			t.Fatalf("alias %q mapped to %q (ok=%v), want %q", alias, mapped, ok, id)
		}
	}
}

func TestCLI_RunUnknownCommand(t *testing.T) {
	app := newCLI()
	err := app.Run([]string{"unknown-command"})
	if err == nil {
		t.Fatal("expected unknown command to return error")
	}
	withCode, ok := err.(interface{ ExitCode() int })
	if !ok || withCode.ExitCode() != 2 {
		t.Fatalf("expected usage exit code 2, got %v", err)
	}
}

func TestCLI_HelpSubcommand(t *testing.T) {
	app := newCLI()

	originalStdout := os.Stdout
	readPipe, writePipe, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe failed: %v", err)
	}
	os.Stdout = writePipe
	defer func() {
		os.Stdout = originalStdout
	}()

	runErr := app.Run([]string{"help", "build"})
	_ = writePipe.Close()
	if runErr != nil {
		t.Fatalf("Run returned error: %v", runErr)
	}

	var output bytes.Buffer
	if _, err := output.ReadFrom(readPipe); err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	text := output.String()
	if !strings.Contains(text, "Usage:   gtsforge build") {
		t.Fatalf("expected command usage in help output, got %q", text)
	}
}

func TestNormalizeFlagArgs_ReordersInterspersedFlags(t *testing.T) {
	args := []string{"typescript", "--root", "/src/grammars", "--verify"}
	got := normalizeFlagArgs(args, commonValueFlags())
	want := []string{"--root", "/src/grammars", "--verify", "typescript"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeFlagArgs mismatch\nwant=%v\ngot=%v", want, got)
	}
}

func TestFinishErr_PropagatesCommandExitCode(t *testing.T) {
	cmdErr := &runner.CommandError{Dir: "/w/tree-sitter-go", Command: "cc -c parser.c", ExitCode: 3}
	err := finishErr(config.Config{}, cmdErr)

	withCode, ok := err.(interface{ ExitCode() int })
	if !ok {
		t.Fatalf("expected exit code carrier, got %T", err)
	}
	if withCode.ExitCode() != 3 {
		t.Fatalf("exit code = %d, want 3", withCode.ExitCode())
	}
	var unwrapped *runner.CommandError
	if !errors.As(err, &unwrapped) {
		t.Fatal("original command error should stay in the chain")
	}
}

func TestFinishErr_AppendsStackWhenTracing(t *testing.T) {
	missing := &toolchain.MissingSourceError{
		Dir:   "/w/tree-sitter-go",
		File:  "src/parser.c",
		Stack: []byte("goroutine 1 [running]:\nexample frame"),
	}

	err := finishErr(config.Config{Trace: true}, missing)
	if !strings.Contains(err.Error(), "example frame") {
		t.Fatalf("expected stack trace in error, got %q", err.Error())
	}

	err = finishErr(config.Config{}, missing)
	if strings.Contains(err.Error(), "example frame") {
		t.Fatalf("stack trace should be omitted without tracing, got %q", err.Error())
	}
}
