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
	"context"
	"fmt"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/pkg/ux"
)

// runSelection walks a provider's screens and appends the accepted
// keys to the provider's selected set.
//
// Selections are persisted screen by screen: a crash mid-run keeps
// everything accepted on earlier screens, and re-entering the stage
// after recovery appends again rather than replacing, so the selected
// sets are append-only and may hold duplicates. The installation
// pipeline tolerates them.
func (o *Orchestrator) runSelection(ctx context.Context, p Provider) error {
	for _, screen := range p.Screens() {
		if len(screen.Options) == 0 {
			ux.Muted(fmt.Sprintf("No entries under %s, skipping.", screen.Title))
			continue
		}

		keys, err := o.prompter.MultiSelect(ctx, screen.Title, screen.Options)
		if err != nil {
			return fmt.Errorf("selecting %s: %w", screen.Title, err)
		}
		if len(keys) == 0 {
			continue
		}

		if _, err := o.store.Update(func(st *state.SetupState) error {
			st.AppendSelected(p.Kind(), keys...)
			return nil
		}); err != nil {
			return err
		}
		o.logger.Debug("selection recorded", "kind", p.Kind().String(), "count", len(keys))
	}

	// The accumulated set, not this pass's count: re-entry after a
	// crash may already carry selections from the interrupted pass.
	st, err := o.store.Load()
	if err != nil {
		return err
	}
	if len(st.Selected(p.Kind())) == 0 {
		ok, err := o.prompter.Confirm(ctx, fmt.Sprintf("No %s selected. Continue without any?", p.Kind()))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", p.Kind(), ErrSelectionAborted)
		}
		ux.Info(fmt.Sprintf("Continuing without %s.", p.Kind()))
	}
	return nil
}
