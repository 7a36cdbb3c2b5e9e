// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// drydock bootstraps a macOS workstation: Homebrew, the applications
// and language runtimes the user picks, Git identity, and GitHub SSH
// access. Progress persists after every stage, so an interrupted run
// resumes where it stopped. Run with no arguments for a fresh setup;
// --recover, --status, and --clean are the other entry points.
package main

import (
	"errors"
	"os"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/setup"
	"github.com/AleutianAI/drydock/pkg/ux"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the outcome onto the exit
// code contract: 0 success, 1 failure, 2 bad arguments. Signal exits
// use 128 plus the signal number and happen in the cleanup hook, not
// here.
func run() int {
	err := rootCmd.Execute()
	if err == nil {
		return setup.ExitSuccess
	}

	var usage *usageError
	if errors.As(err, &usage) {
		// The flag error handler already printed the message and
		// usage.
		return setup.ExitBadArgs
	}

	ux.Error(err.Error())
	return setup.ExitFailure
}

// usageError marks argument problems so run can exit with ExitBadArgs
// instead of the generic failure code.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }
