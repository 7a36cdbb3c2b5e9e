// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state persists setup progress as a single JSON document and
// guards it with an advisory cross-process lock.
//
// The document lives at a fixed per-user path (~/.drydock/state.json)
// and is the sole record of how far a run got: the current stage, the
// recovery point, milestone flags, and the accumulated
// selected/installed/failed sets. All writes go through an atomic
// temp-file-and-rename so an interrupted write never corrupts the
// previous document. Keys this version does not know about are carried
// through read-modify-write untouched so newer documents survive older
// binaries.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/stage"
)

// SchemaVersion is written into every new state document.
const SchemaVersion = "1.0"

// ErrStateCorrupt marks a state document that exists but cannot be
// trusted: unparseable JSON or missing required keys.
var ErrStateCorrupt = errors.New("state document is corrupt")

// requiredKeys must be present for a document to be recoverable.
var requiredKeys = []string{"version", "current_stage", "homebrew_installed"}

// =============================================================================
// Item Kinds
// =============================================================================

// ItemKind discriminates the two families of installable items.
type ItemKind int

const (
	// KindApps selects the application sets.
	KindApps ItemKind = iota

	// KindLanguages selects the language sets.
	KindLanguages
)

// String returns "apps" or "languages".
func (k ItemKind) String() string {
	switch k {
	case KindApps:
		return "apps"
	case KindLanguages:
		return "languages"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// =============================================================================
// SetupState Document
// =============================================================================

// SetupState is the one mutable aggregate of a setup run.
//
// The selected_* sets are append-only and order-preserving; re-entering
// a selection stage without a reset accumulates duplicates by design.
// The installed_*/failed_* sets use ensure-present recording instead,
// and recording one outcome removes the key from the opposite set, so
// a key is never installed and failed at once and idempotent re-runs
// leave installed_* unchanged.
type SetupState struct {
	// Version is the document schema version.
	Version string `json:"version"`

	// RunID correlates this run's log files with the document.
	RunID string `json:"run_id"`

	// CurrentStage is the stage the run is in or about to execute.
	CurrentStage stage.Stage `json:"current_stage"`

	// RecoveryPoint is the stage a recovery run re-enters at. Set on
	// every transition, normally equal to CurrentStage.
	RecoveryPoint stage.Stage `json:"recovery_point"`

	// StartTime is when the run was initialized (UTC).
	StartTime time.Time `json:"start_time"`

	// LastUpdated changes on every mutation (UTC).
	LastUpdated time.Time `json:"last_updated"`

	// Milestone flags.
	HomebrewInstalled   bool `json:"homebrew_installed"`
	GumInstalled        bool `json:"gum_installed"`
	GitConfigured       bool `json:"git_configured"`
	MiseConfigured      bool `json:"mise_configured"`
	GitHubAuthenticated bool `json:"github_authenticated"`
	SSHKeyGenerated     bool `json:"ssh_key_generated"`
	SetupComplete       bool `json:"setup_complete"`

	// Result sets.
	SelectedApps       []string `json:"selected_apps"`
	InstalledApps      []string `json:"installed_apps"`
	FailedApps         []string `json:"failed_apps"`
	SelectedLanguages  []string `json:"selected_languages"`
	InstalledLanguages []string `json:"installed_languages"`
	FailedLanguages    []string `json:"failed_languages"`

	// extra carries document keys this version does not know about,
	// so they survive read-modify-write.
	extra map[string]json.RawMessage
}

// NewSetupState creates a fresh document positioned at the init stage
// with a new run id and all sets empty.
func NewSetupState() *SetupState {
	now := nowUTC()
	return &SetupState{
		Version:            SchemaVersion,
		RunID:              uuid.NewString(),
		CurrentStage:       stage.StageInit,
		RecoveryPoint:      stage.StageInit,
		StartTime:          now,
		LastUpdated:        now,
		SelectedApps:       []string{},
		InstalledApps:      []string{},
		FailedApps:         []string{},
		SelectedLanguages:  []string{},
		InstalledLanguages: []string{},
		FailedLanguages:    []string{},
	}
}

// nowUTC returns the current time in UTC at second precision, keeping
// the document free of sub-second noise.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// =============================================================================
// Set Accessors and Recorders
// =============================================================================

// Selected returns the selected set for kind.
func (s *SetupState) Selected(kind ItemKind) []string {
	if kind == KindLanguages {
		return s.SelectedLanguages
	}
	return s.SelectedApps
}

// Installed returns the installed set for kind.
func (s *SetupState) Installed(kind ItemKind) []string {
	if kind == KindLanguages {
		return s.InstalledLanguages
	}
	return s.InstalledApps
}

// Failed returns the failed set for kind.
func (s *SetupState) Failed(kind ItemKind) []string {
	if kind == KindLanguages {
		return s.FailedLanguages
	}
	return s.FailedApps
}

// AppendSelected appends keys to the selected set for kind. The append
// is blind: duplicates accumulate across stage re-entries.
func (s *SetupState) AppendSelected(kind ItemKind, keys ...string) {
	if kind == KindLanguages {
		s.SelectedLanguages = append(s.SelectedLanguages, keys...)
		return
	}
	s.SelectedApps = append(s.SelectedApps, keys...)
}

// RecordInstalled marks key installed for kind: present exactly once in
// the installed set, and absent from the failed set.
func (s *SetupState) RecordInstalled(kind ItemKind, key string) {
	if kind == KindLanguages {
		s.InstalledLanguages = ensurePresent(s.InstalledLanguages, key)
		s.FailedLanguages = removeAll(s.FailedLanguages, key)
		return
	}
	s.InstalledApps = ensurePresent(s.InstalledApps, key)
	s.FailedApps = removeAll(s.FailedApps, key)
}

// RecordFailed marks key failed for kind: present exactly once in the
// failed set, and absent from the installed set.
func (s *SetupState) RecordFailed(kind ItemKind, key string) {
	if kind == KindLanguages {
		s.FailedLanguages = ensurePresent(s.FailedLanguages, key)
		s.InstalledLanguages = removeAll(s.InstalledLanguages, key)
		return
	}
	s.FailedApps = ensurePresent(s.FailedApps, key)
	s.InstalledApps = removeAll(s.InstalledApps, key)
}

// HasInstalled reports whether key is in the installed set for kind.
func (s *SetupState) HasInstalled(kind ItemKind, key string) bool {
	for _, k := range s.Installed(kind) {
		if k == key {
			return true
		}
	}
	return false
}

// ensurePresent appends key unless it is already in the set.
func ensurePresent(set []string, key string) []string {
	for _, k := range set {
		if k == key {
			return set
		}
	}
	return append(set, key)
}

// removeAll drops every occurrence of key from the set.
func removeAll(set []string, key string) []string {
	out := set[:0]
	for _, k := range set {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// =============================================================================
// JSON Serialization (unknown-key preservation)
// =============================================================================

// knownStateKeys are the document keys owned by this schema version.
var knownStateKeys = map[string]bool{
	"version": true, "run_id": true,
	"current_stage": true, "recovery_point": true,
	"start_time": true, "last_updated": true,
	"homebrew_installed": true, "gum_installed": true,
	"git_configured": true, "mise_configured": true,
	"github_authenticated": true, "ssh_key_generated": true,
	"setup_complete": true,
	"selected_apps":  true, "installed_apps": true, "failed_apps": true,
	"selected_languages": true, "installed_languages": true,
	"failed_languages": true,
}

// setupStateAlias avoids marshal recursion.
type setupStateAlias SetupState

// MarshalJSON writes the known fields in declaration order and splices
// any preserved unknown keys after them, sorted for determinism.
func (s *SetupState) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal((*setupStateAlias)(s))
	if err != nil {
		return nil, err
	}
	if len(s.extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(s.extra))
	for k := range s.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1]) // strip closing brace
	for _, k := range keys {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(s.extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the known fields and keeps every other key
// verbatim in the side channel.
func (s *SetupState) UnmarshalJSON(data []byte) error {
	var a setupStateAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownStateKeys[k] {
			delete(raw, k)
		}
	}
	*s = SetupState(a)
	if len(raw) > 0 {
		s.extra = raw
	}
	return nil
}

// =============================================================================
// Document Validation
// =============================================================================

// ValidateDocument checks that raw document bytes are well-formed JSON
// carrying the keys a recovery run depends on. Errors wrap
// ErrStateCorrupt.
func ValidateDocument(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}
	for _, k := range requiredKeys {
		if _, ok := raw[k]; !ok {
			return fmt.Errorf("%w: missing required key %q", ErrStateCorrupt, k)
		}
	}
	return nil
}
