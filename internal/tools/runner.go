package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

var (
	ErrLaunch       = errors.New("tools: command launch failed")
	ErrEmptyCommand = errors.New("tools: empty command")
)

// Command is one process invocation. Nil Stdout/Stderr writers mean the stream is captured into Result.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command the way it was declared.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result describes a process that ran to completion.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// LaunchError reports a process that could not be started or was interrupted before it exited.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%v: cmd=%q: %v", ErrLaunch, e.Command, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunch, e.Err}
}

// CommandRunner abstracts process execution for probes and actions.
// A non-zero exit is reported through Result.ExitCode with a nil error;
// the error is reserved for launch and interruption failures.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// SplitCommand tokenises a declared command on whitespace. No shell expansion or quoting applies.
func SplitCommand(line string) []string {
	return strings.Fields(line)
}

// ParseCommand builds a Command from a declared command string.
func ParseCommand(line string) (Command, error) {
	fields := SplitCommand(line)
	if len(fields) == 0 {
		return Command{}, &LaunchError{Command: line, Err: ErrEmptyCommand}
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// tools command-runner implementation backed by os/exec.
func (r ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Result{}, &LaunchError{Command: c.String(), Err: ErrEmptyCommand}
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	if c.Stderr != nil {
		cmd.Stderr = c.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1},
			&LaunchError{Command: c.String(), Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: exitErr.ExitCode()}, nil
	}

	exitCode := 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: exitCode},
		&LaunchError{Command: c.String(), Err: err}
}
