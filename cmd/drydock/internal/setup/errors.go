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
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
)

// =============================================================================
// Exit Codes
// =============================================================================

// Standard exit codes for drydock commands. Signal exits use the
// shell convention of 128 plus the signal number instead.
const (
	// ExitSuccess indicates successful completion.
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure. The recovery marker
	// survives, so the run can be resumed.
	ExitFailure = 1

	// ExitBadArgs indicates invalid command-line arguments.
	ExitBadArgs = 2
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrUserDeclined indicates the user answered no to a required
	// confirmation. Distinct from a tool failure: nothing broke, the
	// user chose to stop.
	ErrUserDeclined = errors.New("declined by user")

	// ErrSelectionAborted indicates the user declined to proceed with
	// an empty selection. The stage aborts but remains resumable.
	ErrSelectionAborted = errors.New("selection aborted")

	// ErrNothingToResume indicates a recovery run found no state
	// document.
	ErrNothingToResume = errors.New("no setup state to resume")
)

// =============================================================================
// Batch Errors
// =============================================================================

// FailedItem is one item an installation batch could not install.
type FailedItem struct {
	// Key is the catalog key.
	Key string

	// Name is the display name.
	Name string

	// Detail is the underlying tool error, best effort.
	Detail string

	// Remediation is a copy-pasteable command to retry by hand.
	Remediation string
}

// BatchError reports an installation batch that ran to the end with at
// least one failure. The batch itself never stops early; callers decide
// whether the failures block the run or only warn.
type BatchError struct {
	// Kind is the item family the batch installed.
	Kind state.ItemKind

	// Failed lists the failures in batch order.
	Failed []FailedItem
}

// Error summarizes the batch failure count.
func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of the selected %s failed to install", len(e.Failed), e.Kind)
}

// Remediations returns the manual retry commands, one per line.
func (e *BatchError) Remediations() string {
	lines := make([]string, 0, len(e.Failed))
	for _, item := range e.Failed {
		lines = append(lines, item.Remediation)
	}
	return strings.Join(lines, "\n")
}
