package runner

import (
	"context"
	"strings"
	"sync"
)

// Invocation is one recorded external command.
type Invocation struct {
	Dir  string
	Name string
	Args []string
}

// String renders the invocation the way a shell would show it.
func (i Invocation) String() string {
	return strings.Join(append([]string{i.Name}, i.Args...), " ")
}

// Recorder is a Runner for tests: it records every invocation and answers
// from scripted results instead of executing anything.
type Recorder struct {
	mu    sync.Mutex
	calls []Invocation

	// FailOn makes invocations whose rendered command contains the given
	// substring return a *CommandError.
	FailOn []string

	// Outputs maps a command substring to the stdout Output should return.
	Outputs map[string]string

	// Hook, when set, observes every successful invocation. Tests use it
	// to materialize files a real tool would have produced.
	Hook func(Invocation)
}

func (r *Recorder) Run(ctx context.Context, dir string, name string, args ...string) error {
	inv := r.record(dir, name, args)
	if match := r.failureFor(inv); match != "" {
		return &CommandError{Dir: dir, Command: inv.String(), ExitCode: 1, Output: "scripted failure: " + match}
	}
	if r.Hook != nil {
		r.Hook(inv)
	}
	return nil
}

func (r *Recorder) Output(ctx context.Context, dir string, name string, args ...string) (string, error) {
	inv := r.record(dir, name, args)
	if match := r.failureFor(inv); match != "" {
		return "", &CommandError{Dir: dir, Command: inv.String(), ExitCode: 1, Output: "scripted failure: " + match}
	}
	rendered := inv.String()
	for needle, out := range r.Outputs {
		if strings.Contains(rendered, needle) {
			return out, nil
		}
	}
	return "", nil
}

// Calls returns a copy of everything recorded so far.
func (r *Recorder) Calls() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Invocation, len(r.calls))
	copy(out, r.calls)
	return out
}

// CommandLines renders all recorded invocations, one line per call.
func (r *Recorder) CommandLines() []string {
	calls := r.Calls()
	lines := make([]string, 0, len(calls))
	for _, call := range calls {
		lines = append(lines, call.String())
	}
	return lines
}

func (r *Recorder) record(dir, name string, args []string) Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := Invocation{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	r.calls = append(r.calls, inv)
	return inv
}

func (r *Recorder) failureFor(inv Invocation) string {
	rendered := inv.Dir + " " + inv.String()
	for _, needle := range r.FailOn {
		if strings.Contains(rendered, needle) {
			return needle
		}
	}
	return ""
}
