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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/drydock/cmd/drydock/config"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/catalog"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/setup"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/stage"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/ui"
	"github.com/AleutianAI/drydock/pkg/logging"
	"github.com/AleutianAI/drydock/pkg/ux"
)

// runSetup performs a fresh run: wipe prior state, execute every stage.
func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()
	s.installSignalHook()

	if err := s.orchestrator().RunFresh(ctx); err != nil {
		s.logger.Error("setup run failed", "error", err)
		s.printResumeHint(err)
		return err
	}
	return nil
}

// runRecover resumes an interrupted run from its persisted stage.
func runRecover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()
	s.installSignalHook()

	if err := s.orchestrator().Resume(ctx); err != nil {
		if errors.Is(err, setup.ErrNothingToResume) {
			ux.Info("Nothing to recover. Run drydock to start a fresh setup.")
			return err
		}
		s.logger.Error("recovery run failed", "error", err)
		s.printResumeHint(err)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Session wiring
// -----------------------------------------------------------------------------

// session is the wired runtime for one invocation: resolved paths,
// settings, logger, prompter, catalog, state store, and (for runs that
// mutate state) the cross-process setup lock.
type session struct {
	stateDir string
	settings *config.Settings
	logger   *logging.Logger
	store    *state.Store
	catalog  *catalog.Catalog
	prompter ui.Prompter
	lock     state.ProcessLocker
	sigCh    chan os.Signal
}

// newSession builds a session from the global flags. With withLock set
// it also takes the setup lock, waiting briefly for a concurrent run
// to finish before giving up.
func newSession(ctx context.Context, withLock bool) (*session, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}

	settings, err := config.Load(filepath.Join(stateDir, config.FileName))
	if err != nil {
		return nil, err
	}

	prompter := ui.NewPrompter(assumeYes, nonInteractive, plainUI)

	logDir := settings.Log.Dir
	if logDir == "" {
		logDir = filepath.Join(stateDir, "logs")
	}
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(settings.Log.Level),
		LogDir:  logDir,
		Service: "drydock",
		// The terminal belongs to the prompts; logs go to the file.
		Quiet: prompter.IsInteractive(),
	})

	catalogDir := catalogDirFlag
	if catalogDir == "" {
		catalogDir = filepath.Join(stateDir, "catalog")
	}
	cat, err := catalog.Load(catalogDir)
	if err != nil {
		logger.Close()
		return nil, err
	}

	s := &session{
		stateDir: stateDir,
		settings: settings,
		logger:   logger,
		store:    state.NewStore(stateDir),
		catalog:  cat,
		prompter: prompter,
	}

	if withLock {
		lock := state.NewProcessLock(state.ProcessLockConfig{
			LockDir:  stateDir,
			LockName: "drydock",
		})
		if err := lock.AcquireWait(ctx); err != nil {
			logger.Close()
			return nil, err
		}
		s.lock = lock
	}
	return s, nil
}

// orchestrator builds the stage runner with terminal banners wired in.
// Stage bodies print their own outcomes, so only starts and failures
// get a line here.
func (s *session) orchestrator() *setup.Orchestrator {
	return setup.New(setup.Config{
		Store:    s.store,
		Catalog:  s.catalog,
		Prompter: s.prompter,
		Logger:   s.logger,
		Settings: s.settings,
		OnStageStart: func(st stage.Stage) {
			ux.Title(setup.StageTitle(st))
		},
		OnStageFail: func(st stage.Stage, err error) {
			ux.Error(fmt.Sprintf("%s did not finish: %v", setup.StageTitle(st), err))
		},
	})
}

// installSignalHook releases the lock and exits 128+signal on SIGINT
// or SIGTERM. The stage transition was persisted before the stage
// began, so the run is resumable at the interrupted stage.
func (s *session) installSignalHook() {
	s.sigCh = make(chan os.Signal, 1)
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.sigCh
		if !ok {
			return
		}
		fmt.Fprintln(os.Stderr)
		ux.Warning("Interrupted. Progress is saved; resume with: drydock --recover")
		if s.lock != nil {
			s.lock.Release()
		}
		s.logger.Close()
		if n, isSig := sig.(syscall.Signal); isSig {
			os.Exit(128 + int(n))
		}
		os.Exit(setup.ExitFailure)
	}()
}

// close releases the session's resources in reverse acquisition order.
func (s *session) close() {
	if s.sigCh != nil {
		signal.Stop(s.sigCh)
		close(s.sigCh)
	}
	if s.lock != nil {
		if err := s.lock.Release(); err != nil {
			s.logger.Warn("failed to release the setup lock", "error", err)
		}
	}
	s.logger.Close()
}

// printResumeHint points the user at the right next command after a
// failed run.
func (s *session) printResumeHint(err error) {
	if errors.Is(err, state.ErrStateCorrupt) {
		ux.Muted("Start over with: drydock (or drydock --clean first)")
		return
	}
	if s.store.Exists() {
		ux.Muted("Resume anytime with: drydock --recover")
	}
}

// resolveStateDir returns the --state-dir override or the default
// per-user directory.
func resolveStateDir() (string, error) {
	if stateDirFlag != "" {
		return stateDirFlag, nil
	}
	return state.DefaultDir()
}
