// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package stage defines the closed set of setup stages and the fixed
// tables that order them.
//
// The setup run is a strictly linear state machine:
//
//	init -> homebrew_check -> app_selection -> language_selection ->
//	app_installation -> mise_setup -> git_setup -> github_setup -> complete
//
// Stages only move forward, one at a time. Dispatch is always through
// the typed constants and the successor/resume tables below, never
// through string comparison; the snake_case names exist solely at the
// serialization boundary.
package stage

import (
	"errors"
	"fmt"
)

// Stage identifies one step of the setup sequence.
type Stage int

// The stages, in execution order. The zero value is StageInit.
const (
	StageInit Stage = iota
	StageHomebrewCheck
	StageAppSelection
	StageLanguageSelection
	StageAppInstallation
	StageMiseSetup
	StageGitSetup
	StageGitHubSetup
	StageComplete
)

// ErrUnknownStage marks a stage name outside the closed set.
var ErrUnknownStage = errors.New("unknown stage")

// names maps each stage to its persisted snake_case form.
var names = map[Stage]string{
	StageInit:              "init",
	StageHomebrewCheck:     "homebrew_check",
	StageAppSelection:      "app_selection",
	StageLanguageSelection: "language_selection",
	StageAppInstallation:   "app_installation",
	StageMiseSetup:         "mise_setup",
	StageGitSetup:          "git_setup",
	StageGitHubSetup:       "github_setup",
	StageComplete:          "complete",
}

// successor maps each stage to the single stage that follows it.
// StageComplete has no successor.
var successor = map[Stage]Stage{
	StageInit:              StageHomebrewCheck,
	StageHomebrewCheck:     StageAppSelection,
	StageAppSelection:      StageLanguageSelection,
	StageLanguageSelection: StageAppInstallation,
	StageAppInstallation:   StageMiseSetup,
	StageMiseSetup:         StageGitSetup,
	StageGitSetup:          StageGitHubSetup,
	StageGitHubSetup:       StageComplete,
}

// resumeSuffix maps a persisted stage to the exact ordered suffix of
// stages a recovery run must execute. StageInit and StageHomebrewCheck
// are deliberately absent: interrupting that early leaves nothing worth
// resuming and the run must restart from the top. StageComplete maps to
// an empty suffix (summary only, no stage re-executes).
var resumeSuffix = map[Stage][]Stage{
	StageAppSelection: {
		StageAppSelection, StageLanguageSelection, StageAppInstallation,
		StageMiseSetup, StageGitSetup, StageGitHubSetup, StageComplete,
	},
	StageLanguageSelection: {
		StageLanguageSelection, StageAppInstallation, StageMiseSetup,
		StageGitSetup, StageGitHubSetup, StageComplete,
	},
	StageAppInstallation: {
		StageAppInstallation, StageMiseSetup, StageGitSetup,
		StageGitHubSetup, StageComplete,
	},
	StageMiseSetup: {
		StageMiseSetup, StageGitSetup, StageGitHubSetup, StageComplete,
	},
	StageGitSetup: {
		StageGitSetup, StageGitHubSetup, StageComplete,
	},
	StageGitHubSetup: {
		StageGitHubSetup, StageComplete,
	},
	StageComplete: {},
}

// All returns every stage in execution order.
func All() []Stage {
	return []Stage{
		StageInit, StageHomebrewCheck, StageAppSelection,
		StageLanguageSelection, StageAppInstallation, StageMiseSetup,
		StageGitSetup, StageGitHubSetup, StageComplete,
	}
}

// Parse converts a persisted snake_case name to its Stage.
func Parse(name string) (Stage, error) {
	for s, n := range names {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// String returns the snake_case stage name.
func (s Stage) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// IsValid reports whether s is a member of the closed stage set.
func (s Stage) IsValid() bool {
	_, ok := names[s]
	return ok
}

// IsTerminal reports whether s is the terminal complete stage.
func (s Stage) IsTerminal() bool {
	return s == StageComplete
}

// Next returns the successor stage. ok is false for StageComplete and
// for values outside the closed set.
func (s Stage) Next() (Stage, bool) {
	next, ok := successor[s]
	return next, ok
}

// ResumeSuffix returns the ordered suffix of stages a recovery run
// executes when the persisted stage is s. ok is false when s cannot be
// resumed (init, homebrew_check, or an invalid value); the caller must
// restart from the top. For StageComplete the suffix is empty: the
// resume is a summary-only no-op.
func (s Stage) ResumeSuffix() ([]Stage, bool) {
	suffix, ok := resumeSuffix[s]
	return suffix, ok
}

// MarshalText implements encoding.TextMarshaler so Stage fields
// serialize as their snake_case names.
func (s Stage) MarshalText() ([]byte, error) {
	n, ok := names[s]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(s))
	}
	return []byte(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
