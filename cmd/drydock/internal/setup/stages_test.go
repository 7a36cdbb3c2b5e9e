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
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/preflight"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/tools"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/ui"
)

// =============================================================================
// init Stage
// =============================================================================

func TestRunInit_NonFatalFailureCanBeWaived(t *testing.T) {
	netErr := &preflight.CheckError{
		Type:        preflight.CheckErrorNetworkUnavailable,
		Message:     "no package source responded",
		Remediation: "check your connection",
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			assert.Contains(t, prompt, "Continue anyway?")
			return true, nil
		},
	}
	o := testOrchestrator(t, Config{
		Prompter: prompter,
		Checker:  &preflight.MockChecker{NetworkErr: netErr},
	})

	assert.NoError(t, o.runInit(context.Background()))
}

func TestRunInit_NonFatalFailureDeclined(t *testing.T) {
	netErr := &preflight.CheckError{
		Type:    preflight.CheckErrorNetworkUnavailable,
		Message: "no package source responded",
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			return false, nil
		},
	}
	o := testOrchestrator(t, Config{
		Prompter: prompter,
		Checker:  &preflight.MockChecker{NetworkErr: netErr},
	})

	err := o.runInit(context.Background())
	assert.ErrorIs(t, err, ErrUserDeclined)
}

func TestRunInit_FatalFailureCannotBeWaived(t *testing.T) {
	fatal := &preflight.CheckError{
		Type:    preflight.CheckErrorUnsupportedOS,
		Message: "drydock requires macOS",
		Fatal:   true,
	}
	// No ConfirmFunc: a fatal gate must not offer a waive.
	o := testOrchestrator(t, Config{
		Prompter: &ui.MockPrompter{},
		Checker:  &preflight.MockChecker{OSErr: fatal},
	})

	err := o.runInit(context.Background())
	var checkErr *preflight.CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.True(t, checkErr.Fatal)
}

// =============================================================================
// homebrew_check Stage
// =============================================================================

func TestRunHomebrewCheck_MissingBrew_InstallDeclined(t *testing.T) {
	runner := &tools.MockRunner{
		LookFunc: func(name string) (string, error) {
			return "", errors.New("not found")
		},
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			assert.Contains(t, prompt, "Install it now?")
			return false, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})

	err := o.runHomebrewCheck(context.Background())
	assert.ErrorIs(t, err, ErrUserDeclined)

	st, lerr := o.store.Load()
	require.NoError(t, lerr)
	assert.False(t, st.HomebrewInstalled)
}

func TestRunHomebrewCheck_MissingBrew_Bootstraps(t *testing.T) {
	var bootstrapped bool
	runner := scriptedRunner(t)
	runner.LookFunc = func(name string) (string, error) {
		if bootstrapped {
			return name, nil
		}
		return "", errors.New("not found")
	}
	runner.RunInteractiveFunc = func(ctx context.Context, name string, args ...string) error {
		bootstrapped = true
		return nil
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			return true, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})

	require.NoError(t, o.runHomebrewCheck(context.Background()))

	var sawBootstrap bool
	for _, line := range runner.CommandLines() {
		if strings.HasPrefix(line, "/bin/bash -c curl -fsSL") {
			sawBootstrap = true
		}
	}
	assert.True(t, sawBootstrap, "the official install script runs attached to the terminal")

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.True(t, st.HomebrewInstalled)
	assert.True(t, st.GumInstalled)
}

func TestRunHomebrewCheck_CoreToolFailureOnlyWarns(t *testing.T) {
	runner := scriptedRunner(t)
	runner.RunCombinedFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Error: gum: no bottle available"), errors.New("exit status 1")
	}
	o := testOrchestrator(t, Config{Prompter: &ui.MockPrompter{}, Runner: runner})

	require.NoError(t, o.runHomebrewCheck(context.Background()),
		"a failed support tool never blocks the run")

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.True(t, st.HomebrewInstalled)
	assert.False(t, st.GumInstalled)
}

func TestRunHomebrewCheck_UpdateFailureOnlyWarns(t *testing.T) {
	runner := scriptedRunner(t)
	base := runner.RunFunc
	runner.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if strings.TrimSpace(name+" "+strings.Join(args, " ")) == "brew update" {
			return nil, errors.New("index fetch failed")
		}
		return base(ctx, name, args...)
	}
	o := testOrchestrator(t, Config{Prompter: &ui.MockPrompter{}, Runner: runner})

	require.NoError(t, o.runHomebrewCheck(context.Background()))
}

// =============================================================================
// mise_setup Stage
// =============================================================================

func TestRunMiseSetup_NothingSelectedSkips(t *testing.T) {
	runner := &tools.MockRunner{}
	o := testOrchestrator(t, Config{Prompter: &ui.MockPrompter{}, Runner: runner})

	require.NoError(t, o.runMiseSetup(context.Background()))

	assert.Empty(t, runner.GetCalls(), "mise is never touched without selections")
	st, err := o.store.Load()
	require.NoError(t, err)
	assert.False(t, st.MiseConfigured)
}

func TestRunMiseSetup_InstallsMiseWhenMissing(t *testing.T) {
	runner := scriptedRunner(t)
	runner.LookFunc = func(name string) (string, error) {
		if name == "mise" {
			return "", errors.New("not found")
		}
		return name, nil
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			assert.Contains(t, prompt, "Install it with Homebrew?")
			return true, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})
	selectKeys(t, o, state.KindLanguages, "node")

	require.NoError(t, o.runMiseSetup(context.Background()))

	lines := runner.CommandLines()
	assert.Contains(t, lines, "brew install mise")
	assert.Contains(t, lines, "mise use --global node@latest")

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.True(t, st.MiseConfigured)
	assert.Equal(t, []string{"node"}, st.InstalledLanguages)
}

func TestRunMiseSetup_MiseInstallDeclined(t *testing.T) {
	runner := &tools.MockRunner{
		LookFunc: func(name string) (string, error) {
			return "", errors.New("not found")
		},
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			return false, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})
	selectKeys(t, o, state.KindLanguages, "node")

	err := o.runMiseSetup(context.Background())
	assert.ErrorIs(t, err, ErrUserDeclined)
}

func TestRunMiseSetup_RuntimeFailuresAreAdvisory(t *testing.T) {
	runner := scriptedRunner(t)
	runner.RunInteractiveFunc = func(ctx context.Context, name string, args ...string) error {
		return errors.New("build failed")
	}
	o := testOrchestrator(t, Config{Prompter: &ui.MockPrompter{}, Runner: runner})
	selectKeys(t, o, state.KindLanguages, "node")

	require.NoError(t, o.runMiseSetup(context.Background()),
		"a failed runtime is recorded, not fatal")

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"node"}, st.FailedLanguages)
	assert.True(t, st.MiseConfigured)
}

// =============================================================================
// git_setup Stage
// =============================================================================

func TestPromptRequired_RetriesOnEmptyInput(t *testing.T) {
	answers := []string{"", "Jane Doe"}
	prompter := &ui.MockPrompter{
		InputFunc: func(ctx context.Context, prompt, defaultValue string) (string, error) {
			answer := answers[0]
			answers = answers[1:]
			return answer, nil
		},
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			assert.Contains(t, prompt, "cannot be empty")
			return true, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter})

	value, err := o.promptRequired(context.Background(), "Git user.name", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", value)
	assert.Empty(t, answers, "both scripted answers were consumed")
}

func TestPromptRequired_DeclinedRetry(t *testing.T) {
	prompter := &ui.MockPrompter{
		InputFunc: func(ctx context.Context, prompt, defaultValue string) (string, error) {
			return "   ", nil
		},
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			return false, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter})

	_, err := o.promptRequired(context.Background(), "Git user.email", "")
	assert.ErrorIs(t, err, ErrUserDeclined)
}

func TestPromptRequired_NonInteractiveEmptyIsAnError(t *testing.T) {
	prompter := &ui.MockPrompter{
		InputFunc: func(ctx context.Context, prompt, defaultValue string) (string, error) {
			return defaultValue, nil
		},
		IsInteractiveFunc: func() bool { return false },
	}
	o := testOrchestrator(t, Config{Prompter: prompter})

	_, err := o.promptRequired(context.Background(), "Git user.name", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required and has no existing value")
}

func TestRunGitSetup_ExistingIdentityOfferedAsDefault(t *testing.T) {
	runner := scriptedRunner(t)
	base := runner.RunFunc
	runner.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		line := strings.TrimSpace(name + " " + strings.Join(args, " "))
		switch line {
		case "git config --global --get user.name":
			return []byte("Jane Doe\n"), nil
		case "git config --global --get user.email":
			return []byte("jane@example.com\n"), nil
		}
		return base(ctx, name, args...)
	}
	var defaults []string
	prompter := &ui.MockPrompter{
		InputFunc: func(ctx context.Context, prompt, defaultValue string) (string, error) {
			defaults = append(defaults, defaultValue)
			return defaultValue, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})

	require.NoError(t, o.runGitSetup(context.Background()))

	assert.Equal(t, []string{"Jane Doe", "jane@example.com"}, defaults,
		"the configured identity seeds the prompts")

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.True(t, st.GitConfigured)
}

// =============================================================================
// github_setup Stage
// =============================================================================

// githubRunner scripts gh as installed; authenticated toggles the
// `gh auth status` answer.
func githubRunner(t *testing.T, authenticated bool) *tools.MockRunner {
	t.Helper()
	m := scriptedRunner(t)
	base := m.RunCombinedFunc
	m.RunCombinedFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		line := strings.TrimSpace(name + " " + strings.Join(args, " "))
		if line == "gh auth status" && !authenticated {
			return []byte("You are not logged into any GitHub hosts\n"), errors.New("exit status 1")
		}
		return base(ctx, name, args...)
	}
	return m
}

func TestRunGitHubSetup_GhInstallDeclinedEndsRun(t *testing.T) {
	runner := &tools.MockRunner{
		LookFunc: func(name string) (string, error) {
			return "", errors.New("not found")
		},
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			return false, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})

	err := o.runGitHubSetup(context.Background())
	assert.ErrorIs(t, err, ErrUserDeclined)
}

func TestRunGitHubSetup_UnauthenticatedNonInteractiveWarnsAndContinues(t *testing.T) {
	runner := githubRunner(t, false)
	prompter := &ui.MockPrompter{
		IsInteractiveFunc: func() bool { return false },
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})

	require.NoError(t, o.runGitHubSetup(context.Background()),
		"no browser available is a warning, not a failure")

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.False(t, st.GitHubAuthenticated)
}

func TestRunGitHubSetup_AuthDeclinedSkipsTheStage(t *testing.T) {
	runner := githubRunner(t, false)
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			assert.Contains(t, prompt, "Authenticate with GitHub")
			return false, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})

	require.NoError(t, o.runGitHubSetup(context.Background()))

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.False(t, st.GitHubAuthenticated)
}

func TestRunGitHubSetup_LoginFailureIsAdvisory(t *testing.T) {
	runner := githubRunner(t, false)
	runner.RunInteractiveFunc = func(ctx context.Context, name string, args ...string) error {
		return errors.New("browser flow aborted")
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			return true, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner})

	require.NoError(t, o.runGitHubSetup(context.Background()))

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.False(t, st.GitHubAuthenticated)
}

func TestSetupSSHKey_GeneratesWhenMissing(t *testing.T) {
	settings := testSettings(t)
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	settings.SSH.KeyPath = keyPath

	runner := scriptedRunner(t)
	base := runner.RunFunc
	runner.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name == "ssh-keygen" {
			// The real tool writes the pair; the upload step reads the
			// public half back.
			if err := os.WriteFile(keyPath, []byte("private"), 0o600); err != nil {
				return nil, err
			}
			return nil, os.WriteFile(keyPath+".pub", []byte("ssh-ed25519 AAAA test"), 0o644)
		}
		return base(ctx, name, args...)
	}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			assert.Contains(t, prompt, "Generate an ed25519 key?")
			return true, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner, Settings: settings})

	require.NoError(t, o.setupSSHKey(context.Background()))

	var sawKeygen bool
	for _, line := range runner.CommandLines() {
		if strings.HasPrefix(line, "ssh-keygen -t ed25519") {
			sawKeygen = true
			assert.Contains(t, line, fmt.Sprintf("-f %s", keyPath))
		}
	}
	assert.True(t, sawKeygen)

	st, err := o.store.Load()
	require.NoError(t, err)
	assert.True(t, st.SSHKeyGenerated)
}

func TestSetupSSHKey_GenerationDeclinedSkips(t *testing.T) {
	settings := testSettings(t)
	settings.SSH.KeyPath = filepath.Join(t.TempDir(), "id_ed25519")

	runner := &tools.MockRunner{}
	prompter := &ui.MockPrompter{
		ConfirmFunc: func(ctx context.Context, prompt string) (bool, error) {
			return false, nil
		},
	}
	o := testOrchestrator(t, Config{Prompter: prompter, Runner: runner, Settings: settings})

	require.NoError(t, o.setupSSHKey(context.Background()))

	assert.Empty(t, runner.GetCalls(), "declining leaves ssh untouched")
	st, err := o.store.Load()
	require.NoError(t, err)
	assert.False(t, st.SSHKeyGenerated)
}

func TestSetupSSHKey_MissingTokenScopeOnlyWarns(t *testing.T) {
	runner := scriptedRunner(t)
	runner.RunWithInputFunc = func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
		return nil, errors.New("HTTP 403: token missing admin:public_key scope")
	}
	o := testOrchestrator(t, Config{
		Prompter: &ui.MockPrompter{},
		Runner:   runner,
		Settings: testSettings(t),
	})

	require.NoError(t, o.setupSSHKey(context.Background()),
		"a missing scope degrades to a warning with the refresh command")
}
