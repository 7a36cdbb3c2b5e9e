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
	"strings"
)

// installScriptURL is the official Homebrew bootstrap script.
const installScriptURL = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"

// Homebrew install prefixes, checked when brew is not yet on PATH.
// A fresh install lands in one of these before the user's shell
// profile picks it up.
const (
	appleSiliconBrew = "/opt/homebrew/bin/brew"
	intelBrew        = "/usr/local/bin/brew"
)

// alreadyPresentMarkers are the brew output fragments that mean the
// package is on the machine already. The second appears when a cask's
// app was installed outside Homebrew, which brew reports as an error.
var alreadyPresentMarkers = []string{
	"already installed",
	"already an App at",
}

// -----------------------------------------------------------------------------
// Install Targets
// -----------------------------------------------------------------------------

// InstallTarget is a parsed catalog install action.
type InstallTarget struct {
	// Name is the formula or cask name.
	Name string

	// Cask selects `brew install --cask`.
	Cask bool
}

// ParseInstallTarget interprets a catalog install_action value:
// "formula:<name>", "cask:<name>", or a bare formula name.
func ParseInstallTarget(action string) InstallTarget {
	action = strings.TrimSpace(action)
	if name, ok := strings.CutPrefix(action, "cask:"); ok {
		return InstallTarget{Name: strings.TrimSpace(name), Cask: true}
	}
	if name, ok := strings.CutPrefix(action, "formula:"); ok {
		return InstallTarget{Name: strings.TrimSpace(name)}
	}
	return InstallTarget{Name: action}
}

// InstallOutcome classifies a successful Install call.
type InstallOutcome int

const (
	// OutcomeInstalled means the package was newly installed.
	OutcomeInstalled InstallOutcome = iota

	// OutcomeAlreadyPresent means the package was on the machine
	// before the call.
	OutcomeAlreadyPresent
)

// String returns "installed" or "already present".
func (o InstallOutcome) String() string {
	if o == OutcomeAlreadyPresent {
		return "already present"
	}
	return "installed"
}

// -----------------------------------------------------------------------------
// Homebrew Adapter
// -----------------------------------------------------------------------------

// Homebrew drives the brew command.
//
// # Description
//
// Wraps installation state probes, the bootstrap script, and package
// installs. The brew executable is re-resolved on every call because
// a bootstrap in the middle of a run puts brew at its install prefix
// without updating this process's PATH.
type Homebrew struct {
	runner Runner
}

// NewHomebrew creates a Homebrew adapter on the given runner.
func NewHomebrew(r Runner) *Homebrew {
	return &Homebrew{runner: r}
}

// IsInstalled reports whether brew is available, on PATH or at a known
// install prefix.
func (h *Homebrew) IsInstalled() bool {
	return h.brewCmd() != ""
}

// Version returns the first line of `brew --version`.
func (h *Homebrew) Version(ctx context.Context) (string, error) {
	brew := h.brewCmd()
	if brew == "" {
		return "", fmt.Errorf("brew is not installed")
	}
	out, err := h.runner.Run(ctx, brew, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to read brew version: %w", err)
	}
	version, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return version, nil
}

// InstallSelf bootstraps Homebrew with the official install script,
// attached to the terminal so its progress and sudo prompt reach the
// user. With nonInteractive set the script runs unattended.
func (h *Homebrew) InstallSelf(ctx context.Context, nonInteractive bool) error {
	shell := "/bin/bash"
	if nonInteractive {
		shell = "NONINTERACTIVE=1 /bin/bash"
	}
	script := fmt.Sprintf("curl -fsSL %s | %s", installScriptURL, shell)
	if err := h.runner.RunInteractive(ctx, "/bin/bash", "-c", script); err != nil {
		return fmt.Errorf("failed to install Homebrew: %w", err)
	}
	if !h.IsInstalled() {
		return fmt.Errorf("Homebrew install script finished but brew was not found")
	}
	return nil
}

// Update refreshes the formula index.
func (h *Homebrew) Update(ctx context.Context) error {
	brew := h.brewCmd()
	if brew == "" {
		return fmt.Errorf("brew is not installed")
	}
	if _, err := h.runner.Run(ctx, brew, "update"); err != nil {
		return fmt.Errorf("failed to update Homebrew: %w", err)
	}
	return nil
}

// PackageInstalled reports whether the target is already installed
// through brew.
func (h *Homebrew) PackageInstalled(ctx context.Context, target InstallTarget) bool {
	brew := h.brewCmd()
	if brew == "" {
		return false
	}
	args := []string{"list"}
	if target.Cask {
		args = append(args, "--cask")
	}
	args = append(args, target.Name)
	_, err := h.runner.Run(ctx, brew, args...)
	return err == nil
}

// Install installs one target. A package that turns out to be on the
// machine already, including a cask whose app predates Homebrew
// management, is not an error and reports OutcomeAlreadyPresent.
func (h *Homebrew) Install(ctx context.Context, target InstallTarget) (InstallOutcome, error) {
	brew := h.brewCmd()
	if brew == "" {
		return 0, fmt.Errorf("brew is not installed")
	}

	args := []string{"install"}
	if target.Cask {
		args = append(args, "--cask")
	}
	args = append(args, target.Name)

	// Combined capture: brew writes "already installed" warnings to
	// stderr and still exits zero.
	out, err := h.runner.RunCombined(ctx, brew, args...)
	text := string(out)
	for _, marker := range alreadyPresentMarkers {
		if strings.Contains(text, marker) {
			return OutcomeAlreadyPresent, nil
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to install %s: %w: %s", target.Name, err, lastLine(text))
	}
	return OutcomeInstalled, nil
}

// brewCmd resolves the brew executable for this call: PATH first, then
// the platform install prefixes. Empty means not installed. Look
// accepts absolute candidates, so the prefix probes stay mockable.
func (h *Homebrew) brewCmd() string {
	for _, candidate := range []string{"brew", appleSiliconBrew, intelBrew} {
		if path, err := h.runner.Look(candidate); err == nil {
			return path
		}
	}
	return ""
}

// lastLine returns the last non-empty line of output, the line brew
// puts its error summary on.
func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
