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

// Mise drives the mise runtime manager for language toolchains.
// mise itself is installed through Homebrew like any other formula;
// this adapter assumes the binary is present.
type Mise struct {
	runner Runner
}

// NewMise creates a Mise adapter on the given runner.
func NewMise(r Runner) *Mise {
	return &Mise{runner: r}
}

// IsInstalled reports whether mise is on PATH.
func (m *Mise) IsInstalled() bool {
	_, err := m.runner.Look("mise")
	return err == nil
}

// Version returns `mise --version` trimmed.
func (m *Mise) Version(ctx context.Context) (string, error) {
	out, err := m.runner.Run(ctx, "mise", "--version")
	if err != nil {
		return "", fmt.Errorf("failed to read mise version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentVersion returns the globally active version of lang, or ""
// when mise has none. A non-zero exit means no version is configured,
// which is not an error here.
func (m *Mise) CurrentVersion(ctx context.Context, lang string) (string, error) {
	out, err := m.runner.Run(ctx, "mise", "current", lang)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query mise for %s: %w", lang, err)
	}
	version, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if fields := strings.Fields(version); len(fields) > 0 {
		return fields[0], nil
	}
	return "", nil
}

// IsSatisfied reports whether the installed version of lang satisfies
// the catalog spec, and returns that version. "latest" and an empty
// spec are satisfied by any installed version.
func (m *Mise) IsSatisfied(ctx context.Context, lang, spec string) (bool, string) {
	current, err := m.CurrentVersion(ctx, lang)
	if err != nil || current == "" {
		return false, ""
	}
	if spec == "" || spec == "latest" {
		return true, current
	}
	return versionSatisfies(current, spec), current
}

// Install makes lang@spec the global version, attached to the terminal
// so download progress is visible. An empty spec installs latest.
func (m *Mise) Install(ctx context.Context, lang, spec string) error {
	if spec == "" {
		spec = "latest"
	}
	toolArg := lang + "@" + spec
	if err := m.runner.RunInteractive(ctx, "mise", "use", "--global", toolArg); err != nil {
		return fmt.Errorf("failed to install %s: %w", toolArg, err)
	}
	return nil
}

// versionSatisfies compares leading version segments: spec "3.12"
// matches "3.12.4", spec "21" matches "21.0.2". Specs are catalog
// strings like "3.12" or "21", not full semver, so a library
// comparison does not apply.
func versionSatisfies(current, spec string) bool {
	curParts := strings.Split(current, ".")
	specParts := strings.Split(spec, ".")
	if len(specParts) > len(curParts) {
		return false
	}
	for i, want := range specParts {
		if curParts[i] != want {
			return false
		}
	}
	return true
}
