// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package stage

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageInit, "init"},
		{StageHomebrewCheck, "homebrew_check"},
		{StageAppSelection, "app_selection"},
		{StageLanguageSelection, "language_selection"},
		{StageAppInstallation, "app_installation"},
		{StageMiseSetup, "mise_setup"},
		{StageGitSetup, "git_setup"},
		{StageGitHubSetup, "github_setup"},
		{StageComplete, "complete"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.stage.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStage_String_Unknown(t *testing.T) {
	got := Stage(99).String()
	if got != "stage(99)" {
		t.Errorf("String() = %q, want stage(99)", got)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, s := range All() {
		parsed, err := Parse(s.String())
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", s.String(), err)
			continue
		}
		if parsed != s {
			t.Errorf("Parse(%q) = %v, want %v", s.String(), parsed, s)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("warp_core_alignment")
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("Parse error = %v, want ErrUnknownStage", err)
	}
}

func TestAll_ExecutionOrder(t *testing.T) {
	all := All()
	if len(all) != 9 {
		t.Fatalf("All() returned %d stages, want 9", len(all))
	}
	if all[0] != StageInit {
		t.Errorf("All()[0] = %v, want StageInit", all[0])
	}
	if all[len(all)-1] != StageComplete {
		t.Errorf("All() last = %v, want StageComplete", all[len(all)-1])
	}
	for i := 1; i < len(all); i++ {
		if all[i] <= all[i-1] {
			t.Errorf("All() not strictly ascending at %d: %v after %v", i, all[i], all[i-1])
		}
	}
}

func TestStage_Next_WalksWholeSequence(t *testing.T) {
	current := StageInit
	steps := 0
	for {
		next, ok := current.Next()
		if !ok {
			break
		}
		if next <= current {
			t.Fatalf("Next() went backwards: %v -> %v", current, next)
		}
		current = next
		steps++
	}
	if current != StageComplete {
		t.Errorf("Walk ended at %v, want StageComplete", current)
	}
	if steps != 8 {
		t.Errorf("Walk took %d steps, want 8", steps)
	}
}

func TestStage_Next_TerminalHasNoSuccessor(t *testing.T) {
	if _, ok := StageComplete.Next(); ok {
		t.Error("StageComplete should have no successor")
	}
	if _, ok := Stage(99).Next(); ok {
		t.Error("Invalid stage should have no successor")
	}
}

func TestStage_ResumeSuffix(t *testing.T) {
	suffix, ok := StageGitSetup.ResumeSuffix()
	if !ok {
		t.Fatal("StageGitSetup should be resumable")
	}
	want := []Stage{StageGitSetup, StageGitHubSetup, StageComplete}
	if len(suffix) != len(want) {
		t.Fatalf("Suffix length = %d, want %d", len(suffix), len(want))
	}
	for i := range want {
		if suffix[i] != want[i] {
			t.Errorf("suffix[%d] = %v, want %v", i, suffix[i], want[i])
		}
	}
}

func TestStage_ResumeSuffix_AllResumableStagesEndAtComplete(t *testing.T) {
	for _, s := range All() {
		suffix, ok := s.ResumeSuffix()
		if !ok {
			continue
		}
		if len(suffix) == 0 {
			if s != StageComplete {
				t.Errorf("Only StageComplete may have an empty suffix, got %v", s)
			}
			continue
		}
		if suffix[0] != s {
			t.Errorf("Suffix for %v must start with itself, starts with %v", s, suffix[0])
		}
		if suffix[len(suffix)-1] != StageComplete {
			t.Errorf("Suffix for %v must end at StageComplete, ends at %v", s, suffix[len(suffix)-1])
		}
		for i := 1; i < len(suffix); i++ {
			next, ok := suffix[i-1].Next()
			if !ok || next != suffix[i] {
				t.Errorf("Suffix for %v skips stages at %d: %v -> %v", s, i, suffix[i-1], suffix[i])
			}
		}
	}
}

func TestStage_ResumeSuffix_EarlyStagesCannotResume(t *testing.T) {
	if _, ok := StageInit.ResumeSuffix(); ok {
		t.Error("StageInit should not be resumable")
	}
	if _, ok := StageHomebrewCheck.ResumeSuffix(); ok {
		t.Error("StageHomebrewCheck should not be resumable")
	}
	if _, ok := Stage(99).ResumeSuffix(); ok {
		t.Error("Invalid stage should not be resumable")
	}
}

func TestStage_ResumeSuffix_CompleteIsSummaryOnly(t *testing.T) {
	suffix, ok := StageComplete.ResumeSuffix()
	if !ok {
		t.Fatal("StageComplete should be resumable (summary only)")
	}
	if len(suffix) != 0 {
		t.Errorf("StageComplete suffix should be empty, got %d stages", len(suffix))
	}
}

func TestStage_IsValid(t *testing.T) {
	for _, s := range All() {
		if !s.IsValid() {
			t.Errorf("%v should be valid", s)
		}
	}
	if Stage(99).IsValid() {
		t.Error("Stage(99) should be invalid")
	}
	if Stage(-1).IsValid() {
		t.Error("Stage(-1) should be invalid")
	}
}

func TestStage_IsTerminal(t *testing.T) {
	if !StageComplete.IsTerminal() {
		t.Error("StageComplete should be terminal")
	}
	if StageInit.IsTerminal() {
		t.Error("StageInit should not be terminal")
	}
}

func TestStage_JSONRoundTrip(t *testing.T) {
	type doc struct {
		Current Stage `json:"current_stage"`
	}

	data, err := json.Marshal(doc{Current: StageGitSetup})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"current_stage":"git_setup"}` {
		t.Errorf("Marshal = %s, want snake_case name", data)
	}

	var decoded doc
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if decoded.Current != StageGitSetup {
		t.Errorf("Round trip = %v, want StageGitSetup", decoded.Current)
	}
}

func TestStage_UnmarshalText_Unknown(t *testing.T) {
	var s Stage
	err := s.UnmarshalText([]byte("not_a_stage"))
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("UnmarshalText error = %v, want ErrUnknownStage", err)
	}
}

func TestStage_MarshalText_Invalid(t *testing.T) {
	_, err := Stage(99).MarshalText()
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("MarshalText error = %v, want ErrUnknownStage", err)
	}
}
