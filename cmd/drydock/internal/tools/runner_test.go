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
Package tools contains unit tests for Runner.

# Testing Strategy

These tests verify:
  - DefaultRunner correctly executes real commands
  - Error handling for non-existent and failing commands
  - Stderr folding and combined capture semantics
  - Context cancellation support
  - MockRunner works correctly as a test double
*/
package tools

import (
	"context"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// DefaultRunner Tests
// -----------------------------------------------------------------------------

// TestDefaultRunner_Run_Success verifies successful command execution.
func TestDefaultRunner_Run_Success(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	output, err := r.Run(ctx, "echo", "hello world")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	got := strings.TrimSpace(string(output))
	if got != "hello world" {
		t.Errorf("Run() output = %q, want %q", got, "hello world")
	}
}

// TestDefaultRunner_Run_CommandNotFound verifies error for missing command.
func TestDefaultRunner_Run_CommandNotFound(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	_, err := r.Run(ctx, "nonexistent-command-12345")
	if err == nil {
		t.Fatal("Run() expected error for non-existent command, got nil")
	}
}

// TestDefaultRunner_Run_CommandFailure verifies error for failing command.
func TestDefaultRunner_Run_CommandFailure(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	_, err := r.Run(ctx, "false") // 'false' always exits with code 1
	if err == nil {
		t.Fatal("Run() expected error for failing command, got nil")
	}
}

// TestDefaultRunner_Run_StderrInError verifies stderr is folded into
// the error.
func TestDefaultRunner_Run_StderrInError(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	_, err := r.Run(ctx, "sh", "-c", "echo broken pipe >&2; exit 1")
	if err == nil {
		t.Fatal("Run() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("Run() error = %v, want stderr text included", err)
	}
}

// TestDefaultRunner_Run_ContextCancellation verifies cancellation support.
func TestDefaultRunner_Run_ContextCancellation(t *testing.T) {
	r := NewDefaultRunner()
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel immediately
	cancel()

	_, err := r.Run(ctx, "sleep", "10")
	if err == nil {
		t.Fatal("Run() expected error for cancelled context, got nil")
	}
}

// TestDefaultRunner_RunCombined verifies both streams are captured and
// output survives failure.
func TestDefaultRunner_RunCombined(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	out, err := r.RunCombined(ctx, "sh", "-c", "echo to-stdout; echo to-stderr >&2")
	if err != nil {
		t.Fatalf("RunCombined() unexpected error: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "to-stdout") || !strings.Contains(text, "to-stderr") {
		t.Errorf("RunCombined() output = %q, want both streams", text)
	}
}

// TestDefaultRunner_RunCombined_OutputOnFailure verifies output is
// returned alongside the error.
func TestDefaultRunner_RunCombined_OutputOnFailure(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	out, err := r.RunCombined(ctx, "sh", "-c", "echo partial >&2; exit 3")
	if err == nil {
		t.Fatal("RunCombined() expected error, got nil")
	}
	if !strings.Contains(string(out), "partial") {
		t.Errorf("RunCombined() output = %q, want captured output despite failure", out)
	}
}

// TestDefaultRunner_RunWithInput verifies stdin piping.
func TestDefaultRunner_RunWithInput(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	output, err := r.RunWithInput(ctx, "cat", []byte("piped data"))
	if err != nil {
		t.Fatalf("RunWithInput() unexpected error: %v", err)
	}
	if string(output) != "piped data" {
		t.Errorf("RunWithInput() output = %q, want %q", output, "piped data")
	}
}

// TestDefaultRunner_RunInteractive verifies exit status propagation.
// The child shares this process's stdio, so a quiet command is used.
func TestDefaultRunner_RunInteractive(t *testing.T) {
	r := NewDefaultRunner()
	ctx := context.Background()

	if err := r.RunInteractive(ctx, "true"); err != nil {
		t.Errorf("RunInteractive() unexpected error: %v", err)
	}
	if err := r.RunInteractive(ctx, "false"); err == nil {
		t.Error("RunInteractive() expected error for failing command")
	}
}

// TestDefaultRunner_Look verifies PATH resolution.
func TestDefaultRunner_Look(t *testing.T) {
	r := NewDefaultRunner()

	path, err := r.Look("sh")
	if err != nil {
		t.Fatalf("Look() unexpected error: %v", err)
	}
	if path == "" {
		t.Error("Look() returned empty path")
	}

	if _, err := r.Look("nonexistent-command-12345"); err == nil {
		t.Error("Look() expected error for missing executable")
	}
}

// -----------------------------------------------------------------------------
// MockRunner Tests
// -----------------------------------------------------------------------------

// TestMockRunner_RecordsCalls verifies call recording.
func TestMockRunner_RecordsCalls(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("ok"), nil
		},
		RunWithInputFunc: func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
			return nil, nil
		},
	}

	ctx := context.Background()
	_, _ = mock.Run(ctx, "brew", "install", "jq")
	_, _ = mock.RunWithInput(ctx, "gh", []byte("key material"), "ssh-key", "add", "-")

	calls := mock.GetCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Method != "Run" || calls[0].Name != "brew" {
		t.Errorf("call[0] = %+v, unexpected", calls[0])
	}
	if calls[1].Method != "RunWithInput" || string(calls[1].Input) != "key material" {
		t.Errorf("call[1] = %+v, unexpected", calls[1])
	}
}

// TestMockRunner_CommandLines verifies compact rendering, excluding
// Look probes.
func TestMockRunner_CommandLines(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, nil
		},
		RunInteractiveFunc: func(ctx context.Context, name string, args ...string) error {
			return nil
		},
	}

	ctx := context.Background()
	_, _ = mock.Look("brew")
	_, _ = mock.Run(ctx, "brew", "update")
	_ = mock.RunInteractive(ctx, "mise", "use", "--global", "node@latest")

	lines := mock.CommandLines()
	want := []string{"brew update", "mise use --global node@latest"}
	if len(lines) != len(want) {
		t.Fatalf("CommandLines() = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("CommandLines()[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

// TestMockRunner_DefaultLook verifies everything resolves when no
// LookFunc is set.
func TestMockRunner_DefaultLook(t *testing.T) {
	mock := &MockRunner{}

	path, err := mock.Look("brew")
	if err != nil {
		t.Fatalf("Look() unexpected error: %v", err)
	}
	if path != "brew" {
		t.Errorf("Look() = %q, want %q", path, "brew")
	}
}

// TestMockRunner_NilFunc_Panics verifies panic on unconfigured mock.
func TestMockRunner_NilFunc_Panics(t *testing.T) {
	mock := &MockRunner{} // No functions set

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when RunFunc is nil")
		}
	}()

	ctx := context.Background()
	_, _ = mock.Run(ctx, "brew", "--version")
}

// TestMockRunner_Reset verifies call history reset.
func TestMockRunner_Reset(t *testing.T) {
	mock := &MockRunner{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	}

	ctx := context.Background()
	_, _ = mock.Run(ctx, "git", "--version")

	if len(mock.GetCalls()) != 1 {
		t.Fatal("expected 1 call before reset")
	}

	mock.Reset()

	if len(mock.GetCalls()) != 0 {
		t.Error("expected 0 calls after reset")
	}
}
