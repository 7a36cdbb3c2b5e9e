// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package setup

import (
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/pkg/ux"
)

// milestones lists the flag labels in setup order.
func milestones(st *state.SetupState) []struct {
	Label string
	Done  bool
} {
	return []struct {
		Label string
		Done  bool
	}{
		{"Homebrew installed", st.HomebrewInstalled},
		{"gum installed", st.GumInstalled},
		{"mise configured", st.MiseConfigured},
		{"Git configured", st.GitConfigured},
		{"GitHub authenticated", st.GitHubAuthenticated},
		{"SSH key generated", st.SSHKeyGenerated},
		{"Setup complete", st.SetupComplete},
	}
}

// PrintProgress renders the persisted run: stage position, milestone
// flags, and result-set sizes. Shared by --status and the recovery
// preamble.
func PrintProgress(st *state.SetupState) {
	ux.Title("Setup progress")
	ux.Info(fmt.Sprintf("Stage:       %s", st.CurrentStage))
	if st.RecoveryPoint != st.CurrentStage {
		ux.Info(fmt.Sprintf("Resumes at:  %s", st.RecoveryPoint))
	}
	ux.Info(fmt.Sprintf("Started:     %s", st.StartTime.Format(time.RFC3339)))
	ux.Info(fmt.Sprintf("Last update: %s", st.LastUpdated.Format(time.RFC3339)))

	for _, m := range milestones(st) {
		icon := ux.IconPending
		if m.Done {
			icon = ux.IconSuccess
		}
		ux.ItemStatus(m.Label, icon, "")
	}

	ux.Info(fmt.Sprintf("Apps:      %d selected, %d installed, %d failed",
		len(st.SelectedApps), len(st.InstalledApps), len(st.FailedApps)))
	ux.Info(fmt.Sprintf("Languages: %d selected, %d installed, %d failed",
		len(st.SelectedLanguages), len(st.InstalledLanguages), len(st.FailedLanguages)))
}

// printFinalSummary renders the end-of-run box.
func printFinalSummary(st *state.SetupState) {
	var b strings.Builder
	fmt.Fprintf(&b, "Apps:      %d installed, %d failed\n",
		len(st.InstalledApps), len(st.FailedApps))
	fmt.Fprintf(&b, "Languages: %d installed, %d failed\n",
		len(st.InstalledLanguages), len(st.FailedLanguages))

	if failures := len(st.FailedApps) + len(st.FailedLanguages); failures > 0 {
		fmt.Fprintf(&b, "\n%d items failed; retry commands were printed above.\n", failures)
	}
	b.WriteString("\nShow this again anytime with: drydock --status")

	ux.Box("Workstation ready", b.String())
}
