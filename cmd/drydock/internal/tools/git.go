// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Git reads and writes the global git configuration.
type Git struct {
	runner Runner
}

// NewGit creates a Git adapter on the given runner.
func NewGit(r Runner) *Git {
	return &Git{runner: r}
}

// Version returns `git --version` trimmed.
func (g *Git) Version(ctx context.Context) (string, error) {
	out, err := g.runner.Run(ctx, "git", "--version")
	if err != nil {
		return "", fmt.Errorf("failed to read git version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ConfigGet returns a global config value, or "" when the key is
// unset. git signals an unset key with exit code 1.
func (g *Git) ConfigGet(ctx context.Context, key string) (string, error) {
	out, err := g.runner.Run(ctx, "git", "config", "--global", "--get", key)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("failed to read git config %s: %w", key, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ConfigSet writes a global config value.
func (g *Git) ConfigSet(ctx context.Context, key, value string) error {
	if _, err := g.runner.Run(ctx, "git", "config", "--global", key, value); err != nil {
		return fmt.Errorf("failed to set git config %s: %w", key, err)
	}
	return nil
}

// Identity returns the configured user.name and user.email. Either may
// be empty when unset.
func (g *Git) Identity(ctx context.Context) (name, email string, err error) {
	name, err = g.ConfigGet(ctx, "user.name")
	if err != nil {
		return "", "", err
	}
	email, err = g.ConfigGet(ctx, "user.email")
	if err != nil {
		return "", "", err
	}
	return name, email, nil
}

// IsConfigured reports whether both identity fields are set.
func (g *Git) IsConfigured(ctx context.Context) bool {
	name, email, err := g.Identity(ctx)
	return err == nil && name != "" && email != ""
}

// SetIdentity writes user.name and user.email.
func (g *Git) SetIdentity(ctx context.Context, name, email string) error {
	if err := g.ConfigSet(ctx, "user.name", name); err != nil {
		return err
	}
	return g.ConfigSet(ctx, "user.email", email)
}

// SetDefaultBranch sets the branch name `git init` starts on.
func (g *Git) SetDefaultBranch(ctx context.Context, branch string) error {
	return g.ConfigSet(ctx, "init.defaultBranch", branch)
}
