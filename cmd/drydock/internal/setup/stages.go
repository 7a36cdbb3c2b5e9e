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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/stage"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/tools"
	"github.com/AleutianAI/drydock/pkg/ux"
)

// StageTitle returns the banner heading shown when a stage starts.
func StageTitle(s stage.Stage) string {
	switch s {
	case stage.StageInit:
		return "Preflight"
	case stage.StageHomebrewCheck:
		return "Homebrew"
	case stage.StageAppSelection:
		return "Choose applications"
	case stage.StageLanguageSelection:
		return "Choose languages"
	case stage.StageAppInstallation:
		return "Install applications"
	case stage.StageMiseSetup:
		return "Language runtimes"
	case stage.StageGitSetup:
		return "Git identity"
	case stage.StageGitHubSetup:
		return "GitHub access"
	case stage.StageComplete:
		return "Finish"
	default:
		return s.String()
	}
}

// -----------------------------------------------------------------------------
// init
// -----------------------------------------------------------------------------

// runInit performs the preflight gates. The OS and architecture gates
// are hard stops; everything else can be waved through by the user,
// who may know their network or disk situation better than we do.
func (o *Orchestrator) runInit(ctx context.Context) error {
	spin := ux.NewSpinner("Checking this machine...")
	spin.Start()
	report := o.checker.Run(ctx)
	spin.Stop()
	o.logger.Info("preflight finished",
		"passed", report.Passed(), "failures", len(report.Failures))

	if fatal := report.FatalFailure(); fatal != nil {
		ux.ErrorBox("Preflight failed", fatal.FullError())
		return fatal
	}
	if report.Passed() {
		ux.Success("Preflight checks passed.")
		return nil
	}

	for _, f := range report.Failures {
		ux.Warning(f.Message)
		if f.Remediation != "" {
			ux.Muted(f.Remediation)
		}
	}
	ok, err := o.prompter.Confirm(ctx, "Some preflight checks failed. Continue anyway?")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("preflight: %w", ErrUserDeclined)
	}
	return nil
}

// -----------------------------------------------------------------------------
// homebrew_check
// -----------------------------------------------------------------------------

// runHomebrewCheck makes sure Homebrew exists and the core support
// tools are in place. Everything later installs through brew, so a
// declined install ends the run.
func (o *Orchestrator) runHomebrewCheck(ctx context.Context) error {
	if !o.brew.IsInstalled() {
		ok, err := o.prompter.Confirm(ctx, "Homebrew is not installed and every later step depends on it. Install it now?")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("homebrew is required: %w", ErrUserDeclined)
		}
		ux.Info("Installing Homebrew. This can take a few minutes...")
		if err := o.brew.InstallSelf(ctx, !o.prompter.IsInteractive()); err != nil {
			return err
		}
		ux.Success("Homebrew installed.")
	} else if version, err := o.brew.Version(ctx); err == nil {
		ux.ItemStatus("Homebrew", ux.IconSuccess, version)
	}

	if o.settings.Homebrew.UpdateOnRun {
		err := ux.WithSpinner("Updating Homebrew...", func() error {
			return o.brew.Update(ctx)
		})
		if err != nil {
			o.logger.Warn("brew update failed", "error", err)
			ux.Warning("brew update failed; continuing with the existing index.")
		}
	}

	gumOK := o.provisionCoreTools(ctx)

	_, err := o.store.Update(func(st *state.SetupState) error {
		st.HomebrewInstalled = true
		st.GumInstalled = gumOK
		return nil
	})
	return err
}

// provisionCoreTools installs the configured support formulas, gum by
// default. Failures only warn; the styled output gum backs degrades to
// plain text without it.
func (o *Orchestrator) provisionCoreTools(ctx context.Context) (gumOK bool) {
	for _, tool := range o.settings.Homebrew.CoreTools {
		target := tools.ParseInstallTarget(tool)
		if o.brew.PackageInstalled(ctx, target) {
			ux.ItemStatus(target.Name, ux.IconSuccess, "already installed")
			if target.Name == "gum" {
				gumOK = true
			}
			continue
		}
		err := ux.WithSpinner(fmt.Sprintf("Installing %s...", target.Name), func() error {
			_, installErr := o.brew.Install(ctx, target)
			return installErr
		})
		if err != nil {
			o.logger.Warn("core tool install failed", "tool", target.Name, "error", err)
			ux.ItemStatus(target.Name, ux.IconWarning, "install failed")
			continue
		}
		ux.ItemStatus(target.Name, ux.IconSuccess, "")
		if target.Name == "gum" {
			gumOK = true
		}
	}
	return gumOK
}

// -----------------------------------------------------------------------------
// app_installation
// -----------------------------------------------------------------------------

// runAppInstallation installs the selected applications. Individual
// failures are advisory; the run continues.
func (o *Orchestrator) runAppInstallation(ctx context.Context) error {
	return o.advisory(o.runInstall(ctx, o.apps))
}

// advisory downgrades a batch failure to a logged warning. The
// failures stay recorded in state, so the final summary and --status
// still show them.
func (o *Orchestrator) advisory(err error) error {
	var batch *BatchError
	if errors.As(err, &batch) {
		o.logger.Warn("batch finished with failures",
			"kind", batch.Kind.String(), "failed", len(batch.Failed))
		return nil
	}
	return err
}

// -----------------------------------------------------------------------------
// mise_setup
// -----------------------------------------------------------------------------

// runMiseSetup installs the selected language runtimes through mise,
// installing mise itself first when needed. With nothing selected the
// stage is a no-op and mise is never touched.
func (o *Orchestrator) runMiseSetup(ctx context.Context) error {
	st, err := o.store.Load()
	if err != nil {
		return err
	}
	if len(st.Selected(state.KindLanguages)) == 0 {
		ux.Muted("No languages selected, skipping runtime setup.")
		return nil
	}

	if !o.mise.IsInstalled() {
		ok, err := o.prompter.Confirm(ctx, "mise manages the language runtimes. Install it with Homebrew?")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("mise is required for language runtimes: %w", ErrUserDeclined)
		}
		if _, err := o.brew.Install(ctx, tools.InstallTarget{Name: "mise"}); err != nil {
			return fmt.Errorf("failed to install mise: %w", err)
		}
		ux.Success("mise installed.")
	}

	if err := o.advisory(o.runInstall(ctx, o.languages)); err != nil {
		return err
	}

	_, err = o.store.Update(func(st *state.SetupState) error {
		st.MiseConfigured = true
		return nil
	})
	return err
}

// -----------------------------------------------------------------------------
// git_setup
// -----------------------------------------------------------------------------

// runGitSetup writes the global git identity and default branch. This
// one is blocking: a workstation that cannot commit is not set up.
func (o *Orchestrator) runGitSetup(ctx context.Context) error {
	currentName, currentEmail, _ := o.git.Identity(ctx)

	name, err := o.promptRequired(ctx, "Git user.name", currentName)
	if err != nil {
		return err
	}
	email, err := o.promptRequired(ctx, "Git user.email", currentEmail)
	if err != nil {
		return err
	}

	if err := o.git.SetIdentity(ctx, name, email); err != nil {
		return err
	}
	if err := o.git.SetDefaultBranch(ctx, o.settings.Git.DefaultBranch); err != nil {
		return err
	}
	ux.Success(fmt.Sprintf("Git configured as %s <%s>.", name, email))

	_, err = o.store.Update(func(st *state.SetupState) error {
		st.GitConfigured = true
		return nil
	})
	return err
}

// promptRequired asks for a non-empty value, offering a retry on empty
// input. Without a user to re-ask, an empty value is an error instead
// of a retry loop.
func (o *Orchestrator) promptRequired(ctx context.Context, prompt, defaultValue string) (string, error) {
	for {
		value, err := o.prompter.Input(ctx, prompt, defaultValue)
		if err != nil {
			return "", err
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value, nil
		}
		if !o.prompter.IsInteractive() {
			return "", fmt.Errorf("%s is required and has no existing value", prompt)
		}
		retry, err := o.prompter.Confirm(ctx, fmt.Sprintf("%s cannot be empty. Enter it again?", prompt))
		if err != nil {
			return "", err
		}
		if !retry {
			return "", fmt.Errorf("%s: %w", prompt, ErrUserDeclined)
		}
	}
}

// -----------------------------------------------------------------------------
// github_setup
// -----------------------------------------------------------------------------

// runGitHubSetup authenticates gh and wires up an SSH key. Only the
// gh install itself can end the run; authentication, key upload, and
// the connection test degrade to warnings, because a workstation
// without GitHub access is still usable and the commands to finish by
// hand are short.
func (o *Orchestrator) runGitHubSetup(ctx context.Context) error {
	if !o.github.IsInstalled() {
		ok, err := o.prompter.Confirm(ctx, "The GitHub CLI (gh) is needed for this step. Install it with Homebrew?")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("gh is required: %w", ErrUserDeclined)
		}
		if _, err := o.brew.Install(ctx, tools.InstallTarget{Name: "gh"}); err != nil {
			return fmt.Errorf("failed to install gh: %w", err)
		}
		ux.Success("gh installed.")
	}

	if !o.github.IsAuthenticated(ctx) {
		if !o.prompter.IsInteractive() {
			ux.Warning("GitHub authentication needs a browser. Run `gh auth login --web` yourself, then `drydock --recover`.")
			return nil
		}
		ok, err := o.prompter.Confirm(ctx, "Authenticate with GitHub in your browser now?")
		if err != nil {
			return err
		}
		if !ok {
			ux.Warning("Skipping GitHub setup. Authenticate later with: gh auth login --web")
			return nil
		}
		if err := o.github.Login(ctx); err != nil {
			o.logger.Warn("gh login failed", "error", err)
			ux.Warning("GitHub authentication failed. Finish it later with: gh auth login --web")
			return nil
		}
	}

	if username, err := o.github.Username(ctx); err == nil && username != "" {
		ux.ItemStatus("GitHub", ux.IconSuccess, "authenticated as "+username)
	}
	if _, err := o.store.Update(func(st *state.SetupState) error {
		st.GitHubAuthenticated = true
		return nil
	}); err != nil {
		return err
	}

	return o.setupSSHKey(ctx)
}

// setupSSHKey ensures an ed25519 key exists, loads it into the agent,
// uploads it to GitHub, and verifies the connection. Every failure
// past key generation is advisory.
func (o *Orchestrator) setupSSHKey(ctx context.Context) error {
	keyPath := o.settings.SSH.KeyPath
	if keyPath == "" {
		var err error
		keyPath, err = tools.DefaultKeyPath()
		if err != nil {
			return err
		}
	}

	if !o.sshkey.Exists(keyPath) {
		ok, err := o.prompter.Confirm(ctx, fmt.Sprintf("No SSH key at %s. Generate an ed25519 key?", keyPath))
		if err != nil {
			return err
		}
		if !ok {
			ux.Warning("Skipping SSH key setup.")
			ux.Muted(fmt.Sprintf("Generate one later with: ssh-keygen -t ed25519 -f %s", keyPath))
			return nil
		}
		if err := o.sshkey.Generate(ctx, keyPath, o.keyTitle()); err != nil {
			return err
		}
		if _, err := o.store.Update(func(st *state.SetupState) error {
			st.SSHKeyGenerated = true
			return nil
		}); err != nil {
			return err
		}
		ux.Success("SSH key generated.")
	} else {
		ux.ItemStatus("SSH key", ux.IconSuccess, keyPath)
	}

	if err := o.sshkey.AddToAgent(ctx, keyPath); err != nil {
		o.logger.Warn("ssh-add failed", "error", err)
	}

	title := o.keyTitle()
	err := o.github.AddSSHKey(ctx, o.sshkey.PublicKeyPath(keyPath), title)
	var scopeErr tools.MissingScopeError
	switch {
	case errors.As(err, &scopeErr):
		ux.Warning("Could not upload the SSH key: " + scopeErr.Error())
	case err != nil:
		o.logger.Warn("key upload failed", "error", err)
		ux.Warning("Could not upload the SSH key to GitHub: " + err.Error())
	default:
		ux.Success(fmt.Sprintf("SSH key uploaded to GitHub as %q.", title))
	}

	if ok, user := o.sshkey.TestConnection(ctx); ok {
		ux.Success(fmt.Sprintf("SSH connection verified, authenticated as %s.", user))
	} else {
		ux.Warning("SSH connection test did not authenticate. New keys can take a moment; try: ssh -T git@github.com")
	}
	return nil
}

// keyTitle names uploaded keys "<prefix>-<hostname>".
func (o *Orchestrator) keyTitle() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "mac"
	}
	return fmt.Sprintf("%s-%s", o.settings.SSH.KeyTitlePrefix, hostname)
}

// -----------------------------------------------------------------------------
// complete
// -----------------------------------------------------------------------------

// runComplete marks the run finished and prints the final summary.
func (o *Orchestrator) runComplete(ctx context.Context) error {
	st, err := o.store.Update(func(st *state.SetupState) error {
		st.SetupComplete = true
		return nil
	})
	if err != nil {
		return err
	}
	printFinalSummary(st)
	return nil
}
