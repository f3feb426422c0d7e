// Package runner executes external tools (compilers, make, git) with explicit
// working directories and fail-fast errors that carry the full command line.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner abstracts external command execution so orchestration logic can be
// tested without invoking real tools.
type Runner interface {
	// Run executes the command in dir, streaming output to the runner's
	// configured writer. A non-zero exit returns a *CommandError.
	Run(ctx context.Context, dir string, name string, args ...string) error

	// Output executes the command in dir and returns its standard output.
	Output(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// CommandError reports an external tool exiting non-zero.
type CommandError struct {
	Dir      string
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed (exit %d): %s", e.ExitCode, e.Command)
	if e.Dir != "" {
		msg += " (in " + e.Dir + ")"
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

// Exec runs commands on the host. Output goes to Stderr unless the caller
// asked for it back.
type Exec struct {
	Stderr io.Writer
}

// NewExec returns a Runner writing tool output to w.
func NewExec(w io.Writer) *Exec {
	return &Exec{Stderr: w}
}

func (e *Exec) Run(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var captured bytes.Buffer
	if e.Stderr != nil {
		sink := io.MultiWriter(e.Stderr, &captured)
		cmd.Stdout = sink
		cmd.Stderr = sink
	} else {
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	}

	slog.Debug("exec", "dir", dir, "cmd", renderCommand(name, args))
	if err := cmd.Run(); err != nil {
		return commandError(dir, name, args, captured.String(), err)
	}
	return nil
}

func (e *Exec) Output(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("exec", "dir", dir, "cmd", renderCommand(name, args))
	if err := cmd.Run(); err != nil {
		return "", commandError(dir, name, args, stderr.String(), err)
	}
	return stdout.String(), nil
}

func commandError(dir, name string, args []string, output string, err error) error {
	code := 1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else {
		output = strings.TrimSpace(output + "\n" + err.Error())
	}
	return &CommandError{
		Dir:      dir,
		Command:  renderCommand(name, args),
		ExitCode: code,
		Output:   output,
	}
}

func renderCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	for i, part := range parts {
		if strings.ContainsAny(part, " \t") {
			parts[i] = "'" + part + "'"
		}
	}
	return strings.Join(parts, " ")
}
