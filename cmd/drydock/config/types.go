// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/go-playground/validator/v10"
)

// settingsValidate validates Settings documents. Shared because
// validator instances cache struct metadata.
var settingsValidate *validator.Validate

func init() {
	settingsValidate = validator.New()
}

// Settings is the drydock configuration document, drydock.yaml in the
// state directory. It records configuration, never run progress; the
// state document owns progress.
type Settings struct {
	// Log controls structured logging.
	Log LogSettings `yaml:"log"`

	// Git seeds the git_setup stage.
	Git GitSettings `yaml:"git"`

	// Homebrew tunes the homebrew_check stage.
	Homebrew HomebrewSettings `yaml:"homebrew"`

	// Preflight carries the init stage gate thresholds.
	Preflight PreflightSettings `yaml:"preflight"`

	// SSH tunes the github_setup stage key handling.
	SSH SSHSettings `yaml:"ssh"`
}

type LogSettings struct {
	// Level is the minimum level written: debug, info, warn, or error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir is where log files go. Empty disables file logging.
	Dir string `yaml:"dir"`
}

type GitSettings struct {
	// DefaultBranch is written to init.defaultBranch during git_setup.
	DefaultBranch string `yaml:"default_branch" validate:"required"`
}

type HomebrewSettings struct {
	// UpdateOnRun runs brew update during homebrew_check. Failures
	// there are advisory either way.
	UpdateOnRun bool `yaml:"update_on_run"`

	// CoreTools are formulas provisioned right after Homebrew itself,
	// before any catalog selection happens. gum backs the styled
	// terminal output.
	CoreTools []string `yaml:"core_tools"`
}

type PreflightSettings struct {
	// MinOSVersion is the lowest supported macOS release.
	MinOSVersion string `yaml:"min_os_version"`

	// MinDiskGB is the free-space floor in gigabytes. Zero disables
	// the gate.
	MinDiskGB int `yaml:"min_disk_gb" validate:"gte=0"`

	// ProbeURLs are the package sources checked for reachability.
	ProbeURLs []string `yaml:"probe_urls" validate:"dive,url"`
}

type SSHSettings struct {
	// KeyPath is the ed25519 private key location. Empty means
	// ~/.ssh/id_ed25519.
	KeyPath string `yaml:"key_path"`

	// KeyTitlePrefix names uploaded keys "<prefix>-<hostname>".
	KeyTitlePrefix string `yaml:"key_title_prefix" validate:"required"`
}

// DefaultSettings returns the stock configuration written on first run.
func DefaultSettings() Settings {
	return Settings{
		Log: LogSettings{
			Level: "info",
		},
		Git: GitSettings{
			DefaultBranch: "main",
		},
		Homebrew: HomebrewSettings{
			UpdateOnRun: true,
			CoreTools:   []string{"gum"},
		},
		Preflight: PreflightSettings{
			MinOSVersion: "13.0",
			MinDiskGB:    5,
			ProbeURLs: []string{
				"https://github.com",
				"https://raw.githubusercontent.com",
			},
		},
		SSH: SSHSettings{
			KeyTitlePrefix: "drydock",
		},
	}
}

// Validate checks the document against the struct tags.
func (s *Settings) Validate() error {
	return settingsValidate.Struct(s)
}
