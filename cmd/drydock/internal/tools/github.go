// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ScopeAdminPublicKey is the token scope gh needs to upload SSH keys.
const ScopeAdminPublicKey = "admin:public_key"

// MissingScopeError reports a GitHub token that lacks a needed scope.
// The message carries the exact refresh command because the fix is
// always the same and the user is mid-setup.
type MissingScopeError struct {
	Scope string
}

// Error names the scope and the gh command that grants it.
func (e MissingScopeError) Error() string {
	return fmt.Sprintf("GitHub token lacks the %s scope (run: gh auth refresh -h github.com -s %s)",
		e.Scope, e.Scope)
}

// GitHub drives the gh CLI for authentication and key upload.
//
// # Description
//
// gh owns its own credential store, so this adapter never sees a
// token. Authentication state and token scopes are read from
// `gh auth status`, which gh writes to stderr, hence the combined
// captures.
type GitHub struct {
	runner Runner
}

// NewGitHub creates a GitHub adapter on the given runner.
func NewGitHub(r Runner) *GitHub {
	return &GitHub{runner: r}
}

// IsInstalled reports whether gh is on PATH.
func (gh *GitHub) IsInstalled() bool {
	_, err := gh.runner.Look("gh")
	return err == nil
}

// IsAuthenticated reports whether gh holds working credentials.
func (gh *GitHub) IsAuthenticated(ctx context.Context) bool {
	_, err := gh.runner.RunCombined(ctx, "gh", "auth", "status")
	return err == nil
}

// HasScope reports whether the active token carries the given scope.
func (gh *GitHub) HasScope(ctx context.Context, scope string) bool {
	out, err := gh.runner.RunCombined(ctx, "gh", "auth", "status")
	if err != nil {
		return false
	}
	return strings.Contains(string(out), scope)
}

// Login starts the browser device flow, attached to the terminal. SSH
// is requested as the git protocol so the uploaded key gets used.
func (gh *GitHub) Login(ctx context.Context) error {
	err := gh.runner.RunInteractive(ctx, "gh", "auth", "login", "--web", "--git-protocol", "ssh")
	if err != nil {
		return fmt.Errorf("failed to authenticate with GitHub: %w", err)
	}
	return nil
}

// Username returns the authenticated login name.
func (gh *GitHub) Username(ctx context.Context) (string, error) {
	out, err := gh.runner.Run(ctx, "gh", "api", "user", "--jq", ".login")
	if err != nil {
		return "", fmt.Errorf("failed to read GitHub user: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// AddSSHKey uploads the public key at pubKeyPath under the given
// title. The key is piped on stdin to keep gh's file handling out of
// the picture. A token without admin:public_key surfaces as a
// MissingScopeError so callers can show the refresh command.
func (gh *GitHub) AddSSHKey(ctx context.Context, pubKeyPath, title string) error {
	data, err := os.ReadFile(pubKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read public key %s: %w", pubKeyPath, err)
	}

	_, err = gh.runner.RunWithInput(ctx, "gh", data, "ssh-key", "add", "-", "--title", title)
	if err != nil {
		if strings.Contains(err.Error(), ScopeAdminPublicKey) {
			return MissingScopeError{Scope: ScopeAdminPublicKey}
		}
		return fmt.Errorf("failed to upload SSH key: %w", err)
	}
	return nil
}
