// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SSHKey generates and verifies the GitHub SSH key.
type SSHKey struct {
	runner Runner
}

// NewSSHKey creates an SSHKey adapter on the given runner.
func NewSSHKey(r Runner) *SSHKey {
	return &SSHKey{runner: r}
}

// DefaultKeyPath returns ~/.ssh/id_ed25519.
func DefaultKeyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ssh", "id_ed25519"), nil
}

// Exists reports whether a private key is present at path.
func (s *SSHKey) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PublicKeyPath returns the public half for a private key path.
func (s *SSHKey) PublicKeyPath(path string) string {
	return path + ".pub"
}

// Generate creates an ed25519 key pair at path with no passphrase,
// creating the key directory owner-only first.
func (s *SSHKey) Generate(ctx context.Context, path, comment string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create key dir %s: %w", dir, err)
	}
	_, err := s.runner.Run(ctx, "ssh-keygen",
		"-t", "ed25519",
		"-C", comment,
		"-f", path,
		"-N", "")
	if err != nil {
		return fmt.Errorf("failed to generate SSH key: %w", err)
	}
	return nil
}

// AddToAgent loads the key into the SSH agent with macOS keychain
// storage, so pushes stop asking for the key after reboots.
func (s *SSHKey) AddToAgent(ctx context.Context, path string) error {
	if _, err := s.runner.Run(ctx, "ssh-add", "--apple-use-keychain", path); err != nil {
		return fmt.Errorf("failed to add key to agent: %w", err)
	}
	return nil
}

// TestConnection authenticates against github.com and returns the
// greeted username on success. ssh -T exits non-zero even when
// authentication works, so the greeting text is the success signal,
// not the exit code.
func (s *SSHKey) TestConnection(ctx context.Context) (bool, string) {
	out, _ := s.runner.RunCombined(ctx, "ssh",
		"-T", "git@github.com",
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=accept-new")
	text := string(out)
	if !strings.Contains(text, "successfully authenticated") {
		return false, ""
	}
	return true, greetedUser(text)
}

// greetedUser pulls the username out of "Hi <user>! You've successfully
// authenticated...". Logins cannot contain '!', so the cut is safe.
func greetedUser(text string) string {
	_, after, ok := strings.Cut(text, "Hi ")
	if !ok {
		return ""
	}
	user, _, ok := strings.Cut(after, "!")
	if !ok {
		return ""
	}
	return strings.TrimSpace(user)
}
