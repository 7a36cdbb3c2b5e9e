// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"sync"
	"time"
)

// Frame sets by personality: the full shipyard look swings an anchor,
// everything else animates plain dots. Machine mode never animates.
var (
	anchorFrames = []string{"⚓", "⚓ ", "⚓  ", "⚓   ", "⚓  ", "⚓ "}
	dotFrames    = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// Spinner is the progress indicator for long operations whose output
// is captured rather than streamed: brew runs, the preflight network
// probe. The caller prints its own outcome line after Stop; the
// spinner only ever occupies one line and clears it.
type Spinner struct {
	message string
	frames  []string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSpinner creates a spinner. The animation style follows the
// current personality level.
func NewSpinner(message string) *Spinner {
	frames := dotFrames
	if GetPersonality().Level == PersonalityFull {
		frames = anchorFrames
	}
	return &Spinner{
		message: message,
		frames:  frames,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the animation. In machine mode the message prints once
// and nothing animates, so piped output stays line-oriented.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if !ShouldShowProgress() {
		fmt.Printf("PROGRESS: %s\n", s.message)
		return
	}

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		frame := 0
		for {
			select {
			case <-s.stop:
				// Clear the line so the outcome line replaces it.
				fmt.Print("\r\033[K")
				close(s.done)
				return
			case <-ticker.C:
				fmt.Printf("\r%s %s", Styles.Highlight.Render(s.frames[frame]), s.message)
				frame = (frame + 1) % len(s.frames)
			}
		}
	}()
}

// Stop halts the animation and clears its line. Safe to call on a
// spinner that never started.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	if !ShouldShowProgress() {
		return
	}

	close(s.stop)
	<-s.done
}

// WithSpinner runs fn behind a spinner and returns its error. The
// spinner line is cleared either way; reporting the outcome stays
// with the caller, which knows whether a failure is fatal or only
// worth a warning.
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()
	err := fn()
	spin.Stop()
	return err
}
