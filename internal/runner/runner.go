// Package runner invokes external tools as subprocesses.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const waitDelay = 2 * time.Second

// Command is one subprocess invocation. A zero Timeout waits forever.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result describes a finished process. ExitCode is -1 when the process was
// killed by the timeout or the context.
type Result struct {
	ExitCode int
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

func (r Result) OK() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Runner runs commands. Run returns an error only when the process could not
// be started; a non-zero exit is reported through Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec runs commands with os/exec.
type Exec struct{}

func (Exec) Run(ctx context.Context, c Command) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	// Children that inherit stderr must not keep Wait blocked after a kill.
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
			res.ExitCode = -1
		}
		return res, nil
	}

	return res, fmt.Errorf("failed to start %s: %w", c.Name, err)
}

// LookPath resolves name in PATH the way the process would.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return path, nil
}
