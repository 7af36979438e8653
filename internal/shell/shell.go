// Package shell runs external commands for the harness. Every stage of
// the test protocol talks to the application under test and its tooling
// through subprocesses; this package centralizes capture, environment
// injection and logging for those calls.
package shell

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes commands. The production implementation is Exec;
// tests substitute fakes.
type Runner interface {
	// Run blocks until the command exits and returns its combined
	// output. A non-zero exit is an error carrying the output tail.
	Run(ctx context.Context, c Command) (string, error)
}

// Exec runs commands on the host.
type Exec struct {
	Log *zap.Logger
}

// NewExec returns a host runner logging through log.
func NewExec(log *zap.Logger) *Exec {
	return &Exec{Log: log}
}

func (e *Exec) Run(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	e.Log.Debug("exec", zap.String("cmd", c.String()), zap.String("dir", c.Dir))
	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		e.Log.Debug("exec failed",
			zap.String("cmd", c.String()),
			zap.Error(err),
			zap.String("output", tail(output, 2000)))
		return output, fmt.Errorf("%s: %w\n%s", c.String(), err, tail(output, 2000))
	}
	return output, nil
}

// tail returns the last max bytes of s, cut at a line boundary when
// possible.
func tail(s string, max int) string {
	s = strings.TrimRight(s, "\n")
	if len(s) <= max {
		return s
	}
	s = s[len(s)-max:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}
