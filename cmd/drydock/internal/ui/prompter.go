// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package ui provides the user interaction surface for setup flows.

Prompter implementations cover the run modes:

  - FormPrompter: charmbracelet/huh forms, the default on a terminal
  - InteractivePrompter: plain line-oriented prompts for --plain runs
    and dumb terminals
  - NonInteractivePrompter: rejects every prompt, for --non-interactive
    runs and piped stdin
  - AutoApprovePrompter: answers yes and takes defaults, for --yes runs

MockPrompter is the test double.

# Mode Selection

NewPrompter maps the mode flags to an implementation. Auto-approval
wins over everything so --yes works in pipelines; a missing terminal
forces the non-interactive prompter regardless of other flags.

# Cancellation

Every prompt takes a context and returns its error when the context is
already cancelled. Form prompts additionally map a user abort (Esc or
Ctrl+C) to ErrCancelled.
*/
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNonInteractive indicates a prompt was required while running
	// without a user to answer it.
	ErrNonInteractive = errors.New("interactive input required in non-interactive mode")

	// ErrCancelled indicates the user aborted a prompt.
	ErrCancelled = errors.New("cancelled by user")

	// ErrInvalidSelection indicates a selection outside the offered
	// options.
	ErrInvalidSelection = errors.New("invalid selection")
)

// -----------------------------------------------------------------------------
// Prompter Interface
// -----------------------------------------------------------------------------

// Option is one selectable item in a multi-select prompt.
type Option struct {
	// Key is the stable identifier returned from MultiSelect.
	Key string

	// Label is the display text.
	Label string

	// Note is optional secondary text shown next to the label.
	Note string

	// Selected pre-checks the option.
	Selected bool
}

// Prompter is the user interaction surface consumed by setup stages.
//
// # Description
//
// This interface abstracts how questions reach the user, enabling the
// form, plain-terminal, non-interactive, and auto-approve run modes to
// share one stage implementation, and tests to drive stages through a
// mock.
//
// # Thread Safety
//
// Implementations are not safe for concurrent prompts; setup flows are
// sequential by construction.
type Prompter interface {
	// Confirm asks a yes/no question.
	//
	// # Description
	//
	// Presents prompt and returns the user's answer. The default on an
	// empty answer is no.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - prompt: Question text, without a trailing hint
	//
	// # Outputs
	//
	//   - bool: True only on an explicit yes
	//   - error: Non-nil on cancellation or an unanswerable prompt
	//
	// # Examples
	//
	//   ok, err := prompter.Confirm(ctx, "Install Homebrew?")
	//   if err != nil {
	//       return err
	//   }
	//   if !ok {
	//       return ErrDeclined
	//   }
	Confirm(ctx context.Context, prompt string) (bool, error)

	// Select asks the user to pick exactly one option.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - prompt: Question text
	//   - options: Display labels, at least one
	//
	// # Outputs
	//
	//   - int: Zero-based index into options
	//   - error: ErrInvalidSelection for out-of-range answers
	Select(ctx context.Context, prompt string, options []string) (int, error)

	// MultiSelect asks the user to pick any number of options.
	//
	// # Description
	//
	// Options marked Selected are pre-checked and form the default
	// answer. Returns the keys of the chosen options. An empty choice
	// is valid and returns an empty, non-nil slice.
	//
	// # Outputs
	//
	//   - []string: Keys of the chosen options
	//   - error: ErrInvalidSelection for out-of-range answers
	MultiSelect(ctx context.Context, prompt string, options []Option) ([]string, error)

	// Input asks for a free-form line of text.
	//
	// # Description
	//
	// An empty answer returns defaultValue. Callers validate the result
	// and re-prompt as needed.
	Input(ctx context.Context, prompt, defaultValue string) (string, error)

	// IsInteractive reports whether prompts reach a real user.
	//
	// # Description
	//
	// Stages consult this before offering optional interactions, and
	// fall back to defaults when it is false.
	IsInteractive() bool
}

// NewPrompter returns the prompter for the given mode flags.
func NewPrompter(assumeYes, nonInteractive, plain bool) Prompter {
	return pickPrompter(assumeYes, nonInteractive, plain, stdinIsTerminal())
}

// pickPrompter is the testable core of NewPrompter.
func pickPrompter(assumeYes, nonInteractive, plain, tty bool) Prompter {
	switch {
	case assumeYes:
		return NewAutoApprovePrompter()
	case nonInteractive || !tty:
		return NewNonInteractivePrompter()
	case plain:
		return NewInteractivePrompter()
	default:
		return NewFormPrompter()
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// preselectedKeys returns the keys of the pre-checked options.
func preselectedKeys(options []Option) []string {
	keys := []string{}
	for _, o := range options {
		if o.Selected {
			keys = append(keys, o.Key)
		}
	}
	return keys
}

// -----------------------------------------------------------------------------
// InteractivePrompter
// -----------------------------------------------------------------------------

// InteractivePrompter asks questions as plain prompt lines on a
// terminal. It is the --plain fallback for terminals the form renderer
// handles poorly, and the implementation tests drive byte-for-byte.
type InteractivePrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

var _ Prompter = (*InteractivePrompter)(nil)

// NewInteractivePrompter creates a prompter on stdin/stderr. Prompts go
// to stderr so piped stdout stays clean.
func NewInteractivePrompter() *InteractivePrompter {
	return NewInteractivePrompterWithIO(os.Stdin, os.Stderr)
}

// NewInteractivePrompterWithIO creates a prompter on the given streams.
func NewInteractivePrompterWithIO(reader io.Reader, writer io.Writer) *InteractivePrompter {
	return &InteractivePrompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Confirm prints "prompt [y/N]: " and reads one line. Only y or yes,
// in any case, count as yes. EOF counts as no.
func (p *InteractivePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(p.writer, "%s [y/N]: ", prompt)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes", nil
}

// Select prints a numbered option list and reads a 1-based choice.
func (p *InteractivePrompter) Select(ctx context.Context, prompt string, options []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(options) == 0 {
		return 0, fmt.Errorf("select %q: no options to choose from", prompt)
	}

	fmt.Fprintln(p.writer, prompt)
	for i, opt := range options {
		fmt.Fprintf(p.writer, "  %d. %s\n", i+1, opt)
	}
	fmt.Fprintf(p.writer, "Enter choice [1-%d]: ", len(options))

	line, err := p.readLine()
	if err != nil {
		return 0, err
	}
	choice, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, line)
	}
	if choice < 1 || choice > len(options) {
		return 0, fmt.Errorf("%w: %d is outside 1-%d", ErrInvalidSelection, choice, len(options))
	}
	return choice - 1, nil
}

// MultiSelect prints a checklist and reads comma or space separated
// 1-based choices. An empty answer keeps the pre-checked options, "a"
// or "all" picks everything, and "none" picks nothing.
func (p *InteractivePrompter) MultiSelect(ctx context.Context, prompt string, options []Option) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return []string{}, nil
	}

	fmt.Fprintln(p.writer, prompt)
	for i, opt := range options {
		marker := " "
		if opt.Selected {
			marker = "x"
		}
		label := opt.Label
		if opt.Note != "" {
			label += " (" + opt.Note + ")"
		}
		fmt.Fprintf(p.writer, "  [%s] %d. %s\n", marker, i+1, label)
	}
	fmt.Fprint(p.writer, "Enter numbers (comma separated), 'a' for all, 'none' for none, Enter to keep checked: ")

	line, err := p.readLine()
	if err != nil {
		return nil, err
	}
	answer := strings.ToLower(line)
	switch answer {
	case "":
		return preselectedKeys(options), nil
	case "a", "all":
		keys := make([]string, 0, len(options))
		for _, o := range options {
			keys = append(keys, o.Key)
		}
		return keys, nil
	case "none":
		return []string{}, nil
	}

	seen := make(map[int]bool)
	keys := []string{}
	for _, field := range strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		choice, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, field)
		}
		if choice < 1 || choice > len(options) {
			return nil, fmt.Errorf("%w: %d is outside 1-%d", ErrInvalidSelection, choice, len(options))
		}
		if !seen[choice] {
			seen[choice] = true
			keys = append(keys, options[choice-1].Key)
		}
	}
	return keys, nil
}

// Input prints the prompt, with the default in brackets when present,
// and reads one line. An empty answer returns the default.
func (p *InteractivePrompter) Input(ctx context.Context, prompt, defaultValue string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if defaultValue != "" {
		fmt.Fprintf(p.writer, "%s [%s]: ", prompt, defaultValue)
	} else {
		fmt.Fprintf(p.writer, "%s: ", prompt)
	}
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return defaultValue, nil
	}
	return line, nil
}

// IsInteractive returns true.
func (p *InteractivePrompter) IsInteractive() bool { return true }

// readLine reads one trimmed line. EOF is not an error: the partial
// line, usually empty, is returned and prompts fall back to their
// defaults.
func (p *InteractivePrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read response: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// -----------------------------------------------------------------------------
// NonInteractivePrompter
// -----------------------------------------------------------------------------

// NonInteractivePrompter rejects every prompt with ErrNonInteractive.
// Stages that reach it needed an answer no one can give, which is the
// signal to fail fast with a clear message instead of hanging a
// pipeline.
type NonInteractivePrompter struct{}

var _ Prompter = (*NonInteractivePrompter)(nil)

// NewNonInteractivePrompter creates the rejecting prompter.
func NewNonInteractivePrompter() *NonInteractivePrompter {
	return &NonInteractivePrompter{}
}

// Confirm rejects the prompt.
func (p *NonInteractivePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	return false, fmt.Errorf("%w: %s", ErrNonInteractive, prompt)
}

// Select rejects the prompt.
func (p *NonInteractivePrompter) Select(ctx context.Context, prompt string, options []string) (int, error) {
	return 0, fmt.Errorf("%w: %s", ErrNonInteractive, prompt)
}

// MultiSelect rejects the prompt.
func (p *NonInteractivePrompter) MultiSelect(ctx context.Context, prompt string, options []Option) ([]string, error) {
	return nil, fmt.Errorf("%w: %s", ErrNonInteractive, prompt)
}

// Input rejects the prompt.
func (p *NonInteractivePrompter) Input(ctx context.Context, prompt, defaultValue string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrNonInteractive, prompt)
}

// IsInteractive returns false.
func (p *NonInteractivePrompter) IsInteractive() bool { return false }

// -----------------------------------------------------------------------------
// AutoApprovePrompter
// -----------------------------------------------------------------------------

// AutoApprovePrompter answers yes to confirmations and takes the
// default everywhere else, implementing --yes.
type AutoApprovePrompter struct{}

var _ Prompter = (*AutoApprovePrompter)(nil)

// NewAutoApprovePrompter creates the approving prompter.
func NewAutoApprovePrompter() *AutoApprovePrompter {
	return &AutoApprovePrompter{}
}

// Confirm approves.
func (p *AutoApprovePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	return true, nil
}

// Select picks the first option.
func (p *AutoApprovePrompter) Select(ctx context.Context, prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("select %q: no options to choose from", prompt)
	}
	return 0, nil
}

// MultiSelect picks the pre-checked options.
func (p *AutoApprovePrompter) MultiSelect(ctx context.Context, prompt string, options []Option) ([]string, error) {
	return preselectedKeys(options), nil
}

// Input returns the default value.
func (p *AutoApprovePrompter) Input(ctx context.Context, prompt, defaultValue string) (string, error) {
	return defaultValue, nil
}

// IsInteractive returns false.
func (p *AutoApprovePrompter) IsInteractive() bool { return false }

// -----------------------------------------------------------------------------
// MockPrompter
// -----------------------------------------------------------------------------

// PromptCall records one prompt received by a MockPrompter.
type PromptCall struct {
	Method  string
	Prompt  string
	Options []string
}

// MockPrompter is a configurable test double. Unset behavior functions
// panic so tests notice prompts they did not script.
type MockPrompter struct {
	ConfirmFunc       func(ctx context.Context, prompt string) (bool, error)
	SelectFunc        func(ctx context.Context, prompt string, options []string) (int, error)
	MultiSelectFunc   func(ctx context.Context, prompt string, options []Option) ([]string, error)
	InputFunc         func(ctx context.Context, prompt, defaultValue string) (string, error)
	IsInteractiveFunc func() bool

	// Calls records every prompt in order.
	Calls []PromptCall
}

var _ Prompter = (*MockPrompter)(nil)

// Confirm records the call and delegates to ConfirmFunc.
func (m *MockPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	m.Calls = append(m.Calls, PromptCall{Method: "Confirm", Prompt: prompt})
	return m.ConfirmFunc(ctx, prompt)
}

// Select records the call and delegates to SelectFunc.
func (m *MockPrompter) Select(ctx context.Context, prompt string, options []string) (int, error) {
	m.Calls = append(m.Calls, PromptCall{Method: "Select", Prompt: prompt, Options: options})
	return m.SelectFunc(ctx, prompt, options)
}

// MultiSelect records the call, with the option keys, and delegates to
// MultiSelectFunc.
func (m *MockPrompter) MultiSelect(ctx context.Context, prompt string, options []Option) ([]string, error) {
	keys := make([]string, 0, len(options))
	for _, o := range options {
		keys = append(keys, o.Key)
	}
	m.Calls = append(m.Calls, PromptCall{Method: "MultiSelect", Prompt: prompt, Options: keys})
	return m.MultiSelectFunc(ctx, prompt, options)
}

// Input records the call and delegates to InputFunc.
func (m *MockPrompter) Input(ctx context.Context, prompt, defaultValue string) (string, error) {
	m.Calls = append(m.Calls, PromptCall{Method: "Input", Prompt: prompt})
	return m.InputFunc(ctx, prompt, defaultValue)
}

// IsInteractive delegates to IsInteractiveFunc, defaulting to true.
func (m *MockPrompter) IsInteractive() bool {
	if m.IsInteractiveFunc != nil {
		return m.IsInteractiveFunc()
	}
	return true
}

// Reset clears the recorded calls.
func (m *MockPrompter) Reset() {
	m.Calls = nil
}
