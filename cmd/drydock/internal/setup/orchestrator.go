// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package setup orchestrates the drydock stage sequence.
//
// The Orchestrator owns the run loop: it persists every stage
// transition through the state store before the stage executes, so an
// interruption at any point resumes at the interrupted stage rather
// than after it. Stage bodies live in stages.go; the generic selection
// and installation pipelines they share live in selection.go and
// install.go, parameterized over the Provider interface.
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/drydock/cmd/drydock/config"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/catalog"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/preflight"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/stage"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/tools"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/ui"
	"github.com/AleutianAI/drydock/pkg/logging"
	"github.com/AleutianAI/drydock/pkg/ux"
)

// =============================================================================
// Configuration
// =============================================================================

// Config wires an Orchestrator's collaborators. Store, Catalog, and
// Prompter are required; the rest default to the real implementations.
type Config struct {
	// Store persists the setup state document.
	Store *state.Store

	// Catalog supplies the selectable applications and languages.
	Catalog *catalog.Catalog

	// Prompter asks the user questions, or answers them itself in
	// --yes and non-interactive runs.
	Prompter ui.Prompter

	// Runner executes external commands. Nil means the real runner;
	// tests script a MockRunner.
	Runner tools.Runner

	// Checker performs the preflight gates. Nil means the local
	// machine checker built from Settings.
	Checker preflight.Checker

	// Logger receives the structured run log. Nil means the default
	// stderr logger.
	Logger *logging.Logger

	// Settings tunes stage behavior. Nil means DefaultSettings.
	Settings *config.Settings

	// OnStageStart is called before each stage executes.
	OnStageStart func(s stage.Stage)

	// OnStageComplete is called after each stage completes successfully.
	OnStageComplete func(s stage.Stage, took time.Duration)

	// OnStageFail is called when a stage fails.
	OnStageFail func(s stage.Stage, err error)
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator drives a setup run through the stage sequence.
type Orchestrator struct {
	store    *state.Store
	catalog  *catalog.Catalog
	prompter ui.Prompter
	checker  preflight.Checker
	logger   *logging.Logger
	settings *config.Settings

	brew   *tools.Homebrew
	mise   *tools.Mise
	git    *tools.Git
	github *tools.GitHub
	sshkey *tools.SSHKey

	apps      Provider
	languages Provider

	onStageStart    func(s stage.Stage)
	onStageComplete func(s stage.Stage, took time.Duration)
	onStageFail     func(s stage.Stage, err error)
}

// New creates an Orchestrator, filling optional collaborators with
// their real implementations.
func New(cfg Config) *Orchestrator {
	if cfg.Runner == nil {
		cfg.Runner = tools.NewDefaultRunner()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Settings == nil {
		defaults := config.DefaultSettings()
		cfg.Settings = &defaults
	}
	if cfg.Checker == nil {
		cfg.Checker = preflight.NewDefaultChecker(cfg.Runner, preflightConfig(cfg.Settings))
	}

	brew := tools.NewHomebrew(cfg.Runner)
	mise := tools.NewMise(cfg.Runner)
	return &Orchestrator{
		store:           cfg.Store,
		catalog:         cfg.Catalog,
		prompter:        cfg.Prompter,
		checker:         cfg.Checker,
		logger:          cfg.Logger,
		settings:        cfg.Settings,
		brew:            brew,
		mise:            mise,
		git:             tools.NewGit(cfg.Runner),
		github:          tools.NewGitHub(cfg.Runner),
		sshkey:          tools.NewSSHKey(cfg.Runner),
		apps:            NewAppProvider(cfg.Catalog, brew),
		languages:       NewLanguageProvider(cfg.Catalog, mise),
		onStageStart:    cfg.OnStageStart,
		onStageComplete: cfg.OnStageComplete,
		onStageFail:     cfg.OnStageFail,
	}
}

// preflightConfig maps the user-facing settings onto gate thresholds.
func preflightConfig(s *config.Settings) preflight.Config {
	return preflight.Config{
		MinOSVersion: s.Preflight.MinOSVersion,
		MinDiskBytes: int64(s.Preflight.MinDiskGB) << 30,
		ProbeURLs:    s.Preflight.ProbeURLs,
	}
}

// =============================================================================
// Stage Transitions
// =============================================================================

// Advance moves the run to a stage, persisting the transition in one
// atomic write: current_stage, the recovery point, and last_updated
// change together or not at all. The recovery point defaults to the
// stage itself, which is where recovery re-enters.
//
// Advancing to the terminal stage when the document is already there
// is a no-op success, so completed runs are never touched again.
func (o *Orchestrator) Advance(to stage.Stage, checkpoint ...stage.Stage) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: stage(%d)", stage.ErrUnknownStage, int(to))
	}
	point := to
	if len(checkpoint) > 0 {
		point = checkpoint[0]
		if !point.IsValid() {
			return fmt.Errorf("%w: checkpoint(%d)", stage.ErrUnknownStage, int(point))
		}
	}

	if to.IsTerminal() {
		if st, err := o.store.Load(); err == nil && st.CurrentStage.IsTerminal() {
			return nil
		}
	}

	_, err := o.store.Update(func(st *state.SetupState) error {
		st.CurrentStage = to
		st.RecoveryPoint = point
		return nil
	})
	if err != nil {
		return fmt.Errorf("advance to %s: %w", to, err)
	}
	return nil
}

// CurrentStage returns the persisted stage position.
func (o *Orchestrator) CurrentStage() (stage.Stage, error) {
	st, err := o.store.Load()
	if err != nil {
		return stage.StageInit, err
	}
	return st.CurrentStage, nil
}

// =============================================================================
// Run Loop
// =============================================================================

// RunFresh discards any prior run and executes every stage from init.
// A full run never silently continues stale state; resuming is the
// recovery flow's job.
func (o *Orchestrator) RunFresh(ctx context.Context) error {
	if o.store.Exists() {
		ux.Info("Discarding previous setup state and starting fresh.")
		o.logger.Info("discarding previous state", "path", o.store.Path())
	}
	if err := o.store.Reset(); err != nil {
		return err
	}
	st, err := o.store.Init()
	if err != nil {
		return err
	}
	o.logger.Info("run initialized", "run_id", st.RunID, "state", o.store.Path())
	return o.runSequence(ctx, stage.All())
}

// runSequence executes stages in order. Each transition is persisted
// before its stage body runs, so an interruption resumes at the
// interrupted stage, never after it.
func (o *Orchestrator) runSequence(ctx context.Context, stages []stage.Stage) error {
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.Advance(s); err != nil {
			return err
		}

		if o.onStageStart != nil {
			o.onStageStart(s)
		}
		o.logger.Info("stage started", "stage", s.String())
		start := time.Now()

		if err := o.execute(ctx, s); err != nil {
			o.logger.Error("stage failed", "stage", s.String(), "error", err)
			if o.onStageFail != nil {
				o.onStageFail(s, err)
			}
			return fmt.Errorf("stage %s: %w", s, err)
		}

		took := time.Since(start)
		o.logger.Info("stage completed", "stage", s.String(), "duration_ms", took.Milliseconds())
		if o.onStageComplete != nil {
			o.onStageComplete(s, took)
		}
	}
	return nil
}

// execute runs one stage body.
func (o *Orchestrator) execute(ctx context.Context, s stage.Stage) error {
	switch s {
	case stage.StageInit:
		return o.runInit(ctx)
	case stage.StageHomebrewCheck:
		return o.runHomebrewCheck(ctx)
	case stage.StageAppSelection:
		return o.runSelection(ctx, o.apps)
	case stage.StageLanguageSelection:
		return o.runSelection(ctx, o.languages)
	case stage.StageAppInstallation:
		return o.runAppInstallation(ctx)
	case stage.StageMiseSetup:
		return o.runMiseSetup(ctx)
	case stage.StageGitSetup:
		return o.runGitSetup(ctx)
	case stage.StageGitHubSetup:
		return o.runGitHubSetup(ctx)
	case stage.StageComplete:
		return o.runComplete(ctx)
	default:
		return fmt.Errorf("%w: %s", stage.ErrUnknownStage, s)
	}
}
