// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/setup"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/ui"
	"github.com/AleutianAI/drydock/pkg/ux"
)

// runStatus prints the saved progress and exits. It mutates nothing:
// no state document, no settings file, no lock. Safe to run while a
// setup is in flight because state writes are atomic renames.
func runStatus(cmd *cobra.Command, args []string) error {
	stateDir, err := resolveStateDir()
	if err != nil {
		return err
	}

	store := state.NewStore(stateDir)
	if !store.Exists() {
		ux.Info("Setup has never started. Run drydock to begin.")
		return nil
	}

	st, err := store.Load()
	if err != nil {
		ux.Warning("The saved setup state is not readable.")
		ux.Muted("Start over with: drydock (or drydock --clean first)")
		return err
	}

	setup.PrintProgress(st)
	return nil
}

// runClean deletes the state document after confirmation. Settings,
// logs, and catalog overrides stay; they record configuration, not
// progress.
func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stateDir, err := resolveStateDir()
	if err != nil {
		return err
	}

	store := state.NewStore(stateDir)
	if !store.Exists() {
		ux.Info("Nothing to clean: no saved setup state.")
		return nil
	}

	// Take the lock so a running setup is not pulled out from under.
	lock := state.NewProcessLock(state.ProcessLockConfig{
		LockDir:  stateDir,
		LockName: "drydock",
	})
	if err := lock.AcquireWait(ctx); err != nil {
		return err
	}
	defer lock.Release()

	prompter := ui.NewPrompter(assumeYes, nonInteractive, plainUI)
	ok, err := prompter.Confirm(ctx, fmt.Sprintf("Delete the saved setup state at %s?", store.Path()))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("clean: %w", setup.ErrUserDeclined)
	}

	if err := store.Reset(); err != nil {
		return err
	}
	ux.Success("Setup state deleted.")
	return nil
}
