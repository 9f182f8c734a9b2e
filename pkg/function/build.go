package function

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command is a build step: argv run in Dir.
type Command struct {
	Dir  string
	Args []string
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Runner executes build commands to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) error

func (f RunnerFunc) Run(ctx context.Context, cmd Command) error { return f(ctx, cmd) }

// ExecRunner runs commands as subprocesses with the parent's environment and
// discards their output.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		return errors.New("function: empty build command")
	}
	//nolint:gosec // Build commands come from the fixed layout table.
	proc := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	proc.Dir = cmd.Dir
	proc.WaitDelay = time.Second
	return proc.Run()
}

// BuildError is a failed pre-deployment build. It is always fatal.
type BuildError struct {
	Command  Command
	ExitCode int
	TimedOut bool
	Err      error
}

func (e *BuildError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("function: build %q timed out", e.Command.String())
	case e.ExitCode > 0:
		return fmt.Sprintf("function: build %q exited with status %d", e.Command.String(), e.ExitCode)
	default:
		return fmt.Sprintf("function: build %q failed: %v", e.Command.String(), e.Err)
	}
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func runBuild(ctx context.Context, runner Runner, cmd Command, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := runner.Run(runCtx, cmd)
	if err == nil {
		return nil
	}

	buildErr := &BuildError{Command: cmd, Err: err}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		buildErr.TimedOut = true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		buildErr.ExitCode = exitErr.ExitCode()
	}
	return buildErr
}
