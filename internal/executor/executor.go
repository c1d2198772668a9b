// Package executor handles command execution with privilege escalation
// support.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNoPrivileges is returned when an operation requires root but no
// elevation mechanism is available.
var ErrNoPrivileges = errNoPrivileges{}

type errNoPrivileges struct{}

func (errNoPrivileges) Error() string {
	return "this operation requires root privileges, but neither pkexec nor sudo is available"
}

// Executor runs external commands, elevating through pkexec (preferred, it
// presents a desktop auth dialog) or sudo when an operation needs root.
type Executor struct {
	dryRun  bool
	verbose bool
}

// New creates a new Executor with the given options.
func New(dryRun, verbose bool) *Executor {
	return &Executor{dryRun: dryRun, verbose: verbose}
}

// SetDryRun enables or disables dry-run mode.
func (e *Executor) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// SetVerbose enables or disables verbose mode.
func (e *Executor) SetVerbose(verbose bool) {
	e.verbose = verbose
}

// Run executes a command without elevation, streaming output to the
// terminal.
func (e *Executor) Run(ctx context.Context, name string, args ...string) error {
	if e.dryRun {
		e.printDryRun(name, args)
		return nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if e.verbose {
		fmt.Printf("Executing: %s %s\n", name, strings.Join(args, " "))
	}

	return cmd.Run()
}

// Output runs a command and returns its stdout.
func (e *Executor) Output(ctx context.Context, name string, args ...string) (string, error) {
	if e.dryRun {
		e.printDryRun(name, args)
		return "", nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if e.verbose {
		fmt.Printf("Executing: %s %s\n", name, strings.Join(args, " "))
	}

	err := cmd.Run()
	return stdout.String(), err
}

// OutputQuiet runs a command and returns its stdout, suppressing stderr.
func (e *Executor) OutputQuiet(ctx context.Context, name string, args ...string) (string, error) {
	if e.dryRun {
		e.printDryRun(name, args)
		return "", nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	return stdout.String(), err
}

// OutputCombined runs a command and returns stdout and stderr interleaved.
func (e *Executor) OutputCombined(ctx context.Context, name string, args ...string) (string, error) {
	if e.dryRun {
		e.printDryRun(name, args)
		return "", nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if e.verbose {
		fmt.Printf("Executing: %s %s\n", name, strings.Join(args, " "))
	}

	err := cmd.Run()
	return combined.String(), err
}

// RunElevated executes a command with root privileges, capturing stderr for
// error reporting while streaming both streams to the terminal.
func (e *Executor) RunElevated(ctx context.Context, name string, args ...string) error {
	if e.dryRun {
		e.printDryRunElevated(name, args)
		return nil
	}

	cmd, err := e.elevatedCommand(ctx, name, args)
	if err != nil {
		return err
	}

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if e.verbose {
		fmt.Printf("Executing (elevated): %s %s\n", name, strings.Join(args, " "))
	}

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderrBuf.String())
		if detail != "" {
			return fmt.Errorf("%s failed: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func (e *Executor) elevatedCommand(ctx context.Context, name string, args []string) (*exec.Cmd, error) {
	if IsRoot() {
		return exec.CommandContext(ctx, name, args...), nil
	}

	elevated := append([]string{name}, args...)
	if _, err := exec.LookPath("pkexec"); err == nil {
		return exec.CommandContext(ctx, "pkexec", elevated...), nil
	}
	if _, err := exec.LookPath("sudo"); err == nil {
		return exec.CommandContext(ctx, "sudo", elevated...), nil
	}
	return nil, ErrNoPrivileges
}

// IsRoot reports whether the process is running as root.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// CanElevate reports whether the process could obtain root privileges.
func CanElevate() bool {
	if IsRoot() {
		return true
	}
	if _, err := exec.LookPath("pkexec"); err == nil {
		return true
	}
	_, err := exec.LookPath("sudo")
	return err == nil
}

func (e *Executor) printDryRun(name string, args []string) {
	fmt.Printf("[dry-run] Would execute: %s %s\n", name, strings.Join(args, " "))
}

func (e *Executor) printDryRunElevated(name string, args []string) {
	fmt.Printf("[dry-run] Would execute (elevated): %s %s\n", name, strings.Join(args, " "))
}
