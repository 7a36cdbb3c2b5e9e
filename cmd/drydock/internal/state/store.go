// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// StateFileName is the document file name inside the state directory.
const StateFileName = "state.json"

// DefaultDir returns the per-user state directory, ~/.drydock.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".drydock"), nil
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// Store reads and writes the setup state document under a fixed
// directory. It holds no in-memory copy: every operation goes to disk,
// and Update is the read-modify-write primitive mutations go through.
type Store struct {
	dir  string
	path string
}

// NewStore creates a store rooted at dir. Nothing is touched on disk
// until Init or a write.
func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		path: filepath.Join(dir, StateFileName),
	}
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of the state document.
func (s *Store) Path() string { return s.path }

// Exists reports whether a state document is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Init creates the state directory and writes a fresh document,
// replacing any existing one. It returns the new document.
func (s *Store) Init() (*SetupState, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", s.dir, err)
	}
	st := NewSetupState()
	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Load reads and decodes the document. A missing file surfaces as the
// underlying os.ErrNotExist; undecodable content wraps ErrStateCorrupt.
func (s *Store) Load() (*SetupState, error) {
	var st SetupState
	if err := readJSON(s.path, &st); err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}
	return &st, nil
}

// LoadRaw returns the raw document bytes for validation without
// decoding them.
func (s *Store) LoadRaw() ([]byte, error) {
	return os.ReadFile(s.path)
}

// Save writes the document atomically.
func (s *Store) Save(st *SetupState) error {
	return writeJSON(s.path, st)
}

// Update loads the document, applies fn, stamps LastUpdated, and saves
// the result atomically. If fn returns an error nothing is written.
// The mutated document is returned.
func (s *Store) Update(fn func(*SetupState) error) (*SetupState, error) {
	st, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.LastUpdated = nowUTC()
	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Reset removes the state document. Settings, logs, and catalog
// overrides under the same directory record configuration rather than
// progress and are left alone. Missing documents are not an error.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state document %s: %w", s.path, err)
	}
	return nil
}
