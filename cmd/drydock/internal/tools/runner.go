// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package tools wraps the external commands setup drives: Homebrew, mise,
git, the GitHub CLI, and ssh-keygen.

Runner abstracts process execution for the whole package. All
exec.Command calls in setup code go through this interface to enable
mocking in unit tests.

# Design Rationale

Direct calls to exec.Command are not testable because they execute real
processes. By abstracting process execution behind an interface, we can:
  - Mock tool invocations in tests
  - Capture and verify exact command lines
  - Simulate success/failure scenarios without the real tools installed

Each tool adapter (Homebrew, Mise, Git, GitHub, SSHKey) holds a Runner
and isolates that tool's command lines and output parsing, so "already
installed" text matching never leaks outside its adapter.
*/
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Runner handles external tool execution.
//
// This interface abstracts all interaction with external commands,
// enabling testable code that doesn't require the real tools installed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple
// goroutines.
//
// # Context Handling
//
// All executing methods accept a context.Context for cancellation and
// timeout support. Long-running tools should respect cancellation.
type Runner interface {
	// Run executes a command synchronously and returns its stdout.
	//
	// # Description
	//
	// Executes the specified command with arguments and waits for
	// completion. Returns stdout on success. On failure, captured
	// stderr is folded into the returned error.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Stdout output
	//   - error: Non-nil if the command fails or is cancelled
	//
	// # Examples
	//
	//   output, err := r.Run(ctx, "git", "config", "--global", "--get", "user.name")
	//   if err != nil {
	//       return fmt.Errorf("failed to read git config: %w", err)
	//   }
	//
	// # Limitations
	//
	//   - Stderr is only surfaced through the error path
	//   - Large output is fully buffered in memory
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunCombined executes a command and returns interleaved
	// stdout and stderr.
	//
	// # Description
	//
	// For tools that write their useful output to stderr or that exit
	// non-zero on success paths (gh auth status, ssh -T). The captured
	// output is returned even when the command fails, alongside the
	// failure.
	//
	// # Outputs
	//
	//   - []byte: Combined output, valid even when error is non-nil
	//   - error: Non-nil if the command exits non-zero or is cancelled
	RunCombined(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithInput executes a command with data piped to stdin.
	//
	// # Description
	//
	// Executes the specified command and pipes the input data to the
	// process's stdin. Used for commands that read from stdin (e.g.,
	// gh ssh-key add -).
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - input: Data to write to stdin
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Stdout output
	//   - error: Non-nil if the command fails, stdin write fails, or
	//     cancelled
	//
	// # Limitations
	//
	//   - Input is fully buffered in memory before being written
	RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// RunInteractive executes a command attached to this process's
	// terminal.
	//
	// # Description
	//
	// The child inherits stdin, stdout, and stderr, so installers can
	// show progress and prompt the user directly (Homebrew's install
	// script, gh auth login --web, mise downloads).
	//
	// # Outputs
	//
	//   - error: Non-nil if the command exits non-zero; its output has
	//     already reached the terminal
	RunInteractive(ctx context.Context, name string, args ...string) error

	// Look resolves an executable on PATH.
	//
	// # Description
	//
	// Wraps exec.LookPath so availability probes ("is brew installed
	// at all?") go through the same seam as execution.
	//
	// # Outputs
	//
	//   - string: Absolute path of the executable
	//   - error: Non-nil if the executable is not on PATH
	Look(name string) (string, error)
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultRunner implements Runner using os/exec.
//
// This is the production implementation that executes real commands on
// the system. Use MockRunner in tests instead.
type DefaultRunner struct{}

// NewDefaultRunner creates a Runner that executes real commands.
func NewDefaultRunner() *DefaultRunner {
	return &DefaultRunner{}
}

// Run executes a command synchronously and returns its stdout.
func (r *DefaultRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// RunCombined executes a command and returns interleaved stdout and
// stderr, even on failure.
func (r *DefaultRunner) RunCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	return combined.Bytes(), err
}

// RunWithInput executes a command with data piped to stdin.
func (r *DefaultRunner) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// RunInteractive executes a command attached to this process's
// terminal.
func (r *DefaultRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}

// Look resolves an executable on PATH.
func (r *DefaultRunner) Look(name string) (string, error) {
	return exec.LookPath(name)
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockRunner is a test double for Runner.
//
// Configure the mock by setting function fields before use. If a
// function field is nil and the corresponding method is called, it
// will panic.
//
// # Examples
//
//	mock := &MockRunner{
//	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
//	        if name == "brew" && args[0] == "--version" {
//	            return []byte("Homebrew 4.2.0"), nil
//	        }
//	        return nil, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockRunner struct {
	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunCombinedFunc is called when RunCombined is invoked
	RunCombinedFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithInputFunc is called when RunWithInput is invoked
	RunWithInputFunc func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// RunInteractiveFunc is called when RunInteractive is invoked
	RunInteractiveFunc func(ctx context.Context, name string, args ...string) error

	// LookFunc is called when Look is invoked; nil reports every
	// executable as present
	LookFunc func(name string) (string, error)

	// Calls records all method invocations for verification
	Calls []RunnerCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// RunnerCall records a single method invocation.
type RunnerCall struct {
	Method string
	Name   string
	Args   []string
	Input  []byte
}

// Run delegates to RunFunc and records the call.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record("Run", name, args, nil)
	if m.RunFunc == nil {
		panic("MockRunner.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunCombined delegates to RunCombinedFunc and records the call.
func (m *MockRunner) RunCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record("RunCombined", name, args, nil)
	if m.RunCombinedFunc == nil {
		panic("MockRunner.RunCombinedFunc not set")
	}
	return m.RunCombinedFunc(ctx, name, args...)
}

// RunWithInput delegates to RunWithInputFunc and records the call.
func (m *MockRunner) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	m.record("RunWithInput", name, args, input)
	if m.RunWithInputFunc == nil {
		panic("MockRunner.RunWithInputFunc not set")
	}
	return m.RunWithInputFunc(ctx, name, input, args...)
}

// RunInteractive delegates to RunInteractiveFunc and records the call.
func (m *MockRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	m.record("RunInteractive", name, args, nil)
	if m.RunInteractiveFunc == nil {
		panic("MockRunner.RunInteractiveFunc not set")
	}
	return m.RunInteractiveFunc(ctx, name, args...)
}

// Look delegates to LookFunc and records the call. With no LookFunc
// set, every executable resolves to its own name, which keeps
// happy-path tests short.
func (m *MockRunner) Look(name string) (string, error) {
	m.record("Look", name, nil, nil)
	if m.LookFunc == nil {
		return name, nil
	}
	return m.LookFunc(name)
}

func (m *MockRunner) record(method, name string, args []string, input []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, RunnerCall{
		Method: method,
		Name:   name,
		Args:   args,
		Input:  input,
	})
}

// Reset clears all recorded calls.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockRunner) GetCalls() []RunnerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]RunnerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// CommandLines renders the recorded executing calls as "name arg ..."
// strings, in order, for compact assertions.
func (m *MockRunner) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		if c.Method == "Look" {
			continue
		}
		lines = append(lines, strings.TrimSpace(c.Name+" "+strings.Join(c.Args, " ")))
	}
	return lines
}

// Compile-time interface compliance check.
var (
	_ Runner = (*DefaultRunner)(nil)
	_ Runner = (*MockRunner)(nil)
)
