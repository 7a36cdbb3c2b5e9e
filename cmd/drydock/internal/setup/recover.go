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
	"os"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/pkg/ux"
)

// Resume continues an interrupted run from its persisted stage.
//
// The flow: validate the document, show what the previous run already
// did, map the stage through the resume-suffix table, confirm, then
// execute exactly that suffix. Stages before the resume point are
// never re-executed; their milestones and result sets carry over.
//
// An unusable document offers a discard-and-restart; a run that died
// before app_selection has nothing durable to carry and offers a
// restart too. A completed run prints its summary and resumes nothing.
func (o *Orchestrator) Resume(ctx context.Context) error {
	raw, err := o.store.LoadRaw()
	if os.IsNotExist(err) {
		return ErrNothingToResume
	}
	if err != nil {
		return err
	}

	if verr := state.ValidateDocument(raw); verr != nil {
		o.logger.Warn("state document failed validation", "error", verr)
		ux.Warning("The saved setup state is not usable: " + verr.Error())
		ok, perr := o.prompter.Confirm(ctx, "Discard the saved state and start over?")
		if perr != nil {
			return perr
		}
		if !ok {
			return verr
		}
		return o.RunFresh(ctx)
	}

	st, err := o.store.Load()
	if err != nil {
		return err
	}
	PrintProgress(st)

	suffix, ok := st.CurrentStage.ResumeSuffix()
	if !ok {
		ux.Info("The previous run stopped before anything worth keeping happened.")
		restart, err := o.prompter.Confirm(ctx, "Start setup from the beginning?")
		if err != nil {
			return err
		}
		if !restart {
			return fmt.Errorf("recovery: %w", ErrUserDeclined)
		}
		return o.RunFresh(ctx)
	}

	if len(suffix) == 0 {
		ux.Success("Setup already completed. Nothing to resume.")
		return nil
	}

	proceed, err := o.prompter.Confirm(ctx,
		fmt.Sprintf("Resume setup from %s (%d stages remaining)?", st.CurrentStage, len(suffix)))
	if err != nil {
		return err
	}
	if !proceed {
		return fmt.Errorf("recovery: %w", ErrUserDeclined)
	}

	o.logger.Info("resuming run",
		"from", st.CurrentStage.String(), "stages", len(suffix), "run_id", st.RunID)
	return o.runSequence(ctx, suffix)
}
