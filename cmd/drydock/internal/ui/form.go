// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// FormPrompter renders prompts as huh forms. It is the default
// prompter on a terminal; the plainer implementations take over when
// the terminal cannot host a form.
type FormPrompter struct {
	theme *huh.Theme
}

var _ Prompter = (*FormPrompter)(nil)

// NewFormPrompter creates a form prompter with the standard theme.
func NewFormPrompter() *FormPrompter {
	return &FormPrompter{theme: huh.ThemeCharm()}
}

// Confirm renders a yes/no form defaulting to no.
func (p *FormPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Yes").
			Negative("No").
			Value(&confirmed),
	)).WithTheme(p.theme)

	if err := p.run(ctx, form); err != nil {
		return false, err
	}
	return confirmed, nil
}

// Select renders a single-choice list and returns the chosen index.
func (p *FormPrompter) Select(ctx context.Context, prompt string, options []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(options) == 0 {
		return 0, fmt.Errorf("select %q: no options to choose from", prompt)
	}

	opts := make([]huh.Option[int], 0, len(options))
	for i, label := range options {
		opts = append(opts, huh.NewOption(label, i))
	}

	var choice int
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title(prompt).
			Options(opts...).
			Value(&choice),
	)).WithTheme(p.theme)

	if err := p.run(ctx, form); err != nil {
		return 0, err
	}
	return choice, nil
}

// MultiSelect renders a filterable checklist with the pre-checked
// options already selected.
func (p *FormPrompter) MultiSelect(ctx context.Context, prompt string, options []Option) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return []string{}, nil
	}

	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		label := o.Label
		if o.Note != "" {
			label += " (" + o.Note + ")"
		}
		opts = append(opts, huh.NewOption(label, o.Key).Selected(o.Selected))
	}

	picked := []string{}
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title(prompt).
			Options(opts...).
			Filterable(true).
			Value(&picked),
	)).WithTheme(p.theme)

	if err := p.run(ctx, form); err != nil {
		return nil, err
	}
	if picked == nil {
		picked = []string{}
	}
	return picked, nil
}

// Input renders a text field. The default shows as a placeholder and
// an empty submission returns it.
func (p *FormPrompter) Input(ctx context.Context, prompt, defaultValue string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(prompt).
			Placeholder(defaultValue).
			Value(&value),
	)).WithTheme(p.theme)

	if err := p.run(ctx, form); err != nil {
		return "", err
	}
	if value == "" {
		return defaultValue, nil
	}
	return value, nil
}

// IsInteractive returns true.
func (p *FormPrompter) IsInteractive() bool { return true }

// run executes a form, mapping a user abort to ErrCancelled and a
// cancelled context to its own error.
func (p *FormPrompter) run(ctx context.Context, form *huh.Form) error {
	err := form.RunWithContext(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	return fmt.Errorf("run prompt form: %w", err)
}
