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

// runInstall walks the provider's selected set in selection order and
// installs whatever is not already present.
//
// The batch never aborts early: a failed item is recorded and the next
// one proceeds. Already-satisfied items are recorded as installed
// without invoking the installer, which is what makes a re-run over a
// fully installed set a pure sequence of probes. The selected set may
// hold duplicates (it is append-only across stage re-entries); each
// unique key is attempted once, at its first occurrence.
//
// The returned error is a *BatchError when at least one item failed,
// so the caller decides whether that blocks the run or only warns.
func (o *Orchestrator) runInstall(ctx context.Context, p Provider) error {
	st, err := o.store.Load()
	if err != nil {
		return err
	}
	selected := st.Selected(p.Kind())
	if len(selected) == 0 {
		ux.Muted(fmt.Sprintf("No %s selected, nothing to install.", p.Kind()))
		return nil
	}

	var failed []FailedItem
	installed := 0
	seen := make(map[string]bool, len(selected))

	for _, key := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		name := p.DisplayName(key)

		if ok, detail := p.IsSatisfied(ctx, key); ok {
			if err := o.record(p.Kind(), key, true); err != nil {
				return err
			}
			ux.ItemStatus(name, ux.IconSuccess, detail)
			installed++
			continue
		}

		ux.Info(fmt.Sprintf("Installing %s...", name))
		detail, applyErr := p.Apply(ctx, key)
		if applyErr != nil {
			if err := o.record(p.Kind(), key, false); err != nil {
				return err
			}
			o.logger.Warn("install failed",
				"kind", p.Kind().String(), "key", key, "error", applyErr)
			ux.ItemStatus(name, ux.IconError, applyErr.Error())
			failed = append(failed, FailedItem{
				Key:         key,
				Name:        name,
				Detail:      applyErr.Error(),
				Remediation: p.Remediation(key),
			})
			continue
		}

		if err := o.record(p.Kind(), key, true); err != nil {
			return err
		}
		ux.ItemStatus(name, ux.IconSuccess, detail)
		installed++
	}

	ux.Summary(installed, len(failed), len(seen))
	if len(failed) > 0 {
		batch := &BatchError{Kind: p.Kind(), Failed: failed}
		ux.Warning(fmt.Sprintf("%d %s could not be installed. Retry by hand:", len(failed), p.Kind()))
		ux.Muted(batch.Remediations())
		return batch
	}
	return nil
}

// record persists one install outcome. Recording is ensure-present and
// clears the key from the opposite set, so a retry that succeeds stops
// counting as failed.
func (o *Orchestrator) record(kind state.ItemKind, key string, ok bool) error {
	_, err := o.store.Update(func(st *state.SetupState) error {
		if ok {
			st.RecordInstalled(kind, key)
		} else {
			st.RecordFailed(kind, key)
		}
		return nil
	})
	return err
}
