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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/drydock/pkg/ux"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// --- Global Command Variables ---
var (
	assumeYes        bool   // --yes: approve every confirmation
	nonInteractive   bool   // --non-interactive: fail on prompts instead of asking
	plainUI          bool   // --plain: line prompts instead of full-screen forms
	personalityLevel string // --personality: output register (full/standard/minimal/machine)
	stateDirFlag     string // --state-dir: override ~/.drydock
	catalogDirFlag   string // --catalog-dir: override <state-dir>/catalog

	flagRecover bool // --recover: resume an interrupted run
	flagStatus  bool // --status: print saved progress and exit
	flagClean   bool // --clean: delete the saved state and exit

	rootCmd = &cobra.Command{
		Use:   "drydock",
		Short: "Bootstrap a macOS workstation for development",
		Long: `Drydock provisions a fresh Mac: Homebrew, the applications and
language runtimes you pick, Git identity, and GitHub SSH access.
Progress is saved after every stage, so an interrupted run resumes
where it stopped instead of starting over.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case flagRecover:
				return runRecover(cmd, args)
			case flagStatus:
				return runStatus(cmd, args)
			case flagClean:
				return runClean(cmd, args)
			default:
				return runSetup(cmd, args)
			}
		},
	}

	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Run a fresh setup, discarding any saved progress",
		RunE:  runSetup, // Defined in cmd_setup.go
	}
	recoverCmd = &cobra.Command{
		Use:   "recover",
		Short: "Resume an interrupted setup from its saved stage",
		RunE:  runRecover, // Defined in cmd_setup.go
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show saved setup progress without changing anything",
		RunE:  runStatus, // Defined in cmd_status.go
	}
	cleanCmd = &cobra.Command{
		Use:   "clean",
		Short: "Delete the saved setup state",
		RunE:  runClean, // Defined in cmd_status.go
	}
)

// init runs when the Go program starts
func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every confirmation")
	pf.BoolVar(&nonInteractive, "non-interactive", false, "Fail on prompts instead of asking (for scripts)")
	pf.BoolVar(&plainUI, "plain", false, "Plain line prompts instead of full-screen forms")
	pf.StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")
	pf.StringVar(&stateDirFlag, "state-dir", "", "State directory (default ~/.drydock)")
	pf.StringVar(&catalogDirFlag, "catalog-dir", "", "Catalog override directory (default <state-dir>/catalog)")

	// Single-binary spellings: drydock --recover and friends behave
	// exactly like the subcommands.
	rootCmd.Flags().BoolVar(&flagRecover, "recover", false, "Resume an interrupted setup")
	rootCmd.Flags().BoolVar(&flagStatus, "status", false, "Show saved setup progress")
	rootCmd.Flags().BoolVar(&flagClean, "clean", false, "Delete the saved setup state")
	rootCmd.MarkFlagsMutuallyExclusive("recover", "status", "clean")

	// Bad flags print usage and exit 2; runtime failures exit 1.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.PrintErrln(err)
		cmd.PrintErrln(cmd.UsageString())
		return &usageError{err: err}
	})

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
}
