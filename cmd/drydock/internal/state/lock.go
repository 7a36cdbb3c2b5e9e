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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLockHeld reports that another process holds the setup lock.
type ErrLockHeld struct {
	// HolderPID is the holder's PID if its PID file was readable,
	// zero otherwise.
	HolderPID int

	// LockPath is the lock file another process holds.
	LockPath string
}

// Error includes the holder PID when known, and otherwise points at a
// command that can identify the holder.
func (e ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("another drydock instance is running (PID %d)", e.HolderPID)
	}
	return fmt.Sprintf("another drydock instance is running (check: lsof %s)", e.LockPath)
}

// ProcessLocker is the cross-process mutual exclusion surface consumed
// by the command layer. ProcessLock is the real implementation.
type ProcessLocker interface {
	Acquire() error
	AcquireWait(ctx context.Context) error
	Release() error
	IsHeld() bool
	LockPath() string
	PIDPath() string
	HolderPID() int
}

// ProcessLockConfig configures a ProcessLock.
type ProcessLockConfig struct {
	// LockDir is the directory holding the lock and PID files.
	LockDir string

	// LockName is the base name for both files: <name>.lock and
	// <name>.pid.
	LockName string

	// PollInterval is how often AcquireWait retries.
	PollInterval time.Duration

	// WaitCeiling bounds how long AcquireWait retries before giving
	// up.
	WaitCeiling time.Duration
}

// DefaultProcessLockConfig returns the default lock configuration.
// The CLI overrides LockDir with the state directory so concurrent
// runs against the same state contend on the same file.
func DefaultProcessLockConfig() ProcessLockConfig {
	return ProcessLockConfig{
		LockDir:      os.TempDir(),
		LockName:     "drydock",
		PollInterval: 500 * time.Millisecond,
		WaitCeiling:  30 * time.Second,
	}
}

// ProcessLock is an advisory flock(2)-based cross-process lock. The
// kernel drops the lock when the holding process exits, so a crashed
// run never wedges later ones; the leftover lock file is inert and is
// deliberately never removed. A PID file is maintained next to the
// lock file purely for diagnostics.
type ProcessLock struct {
	config ProcessLockConfig

	mu   sync.Mutex
	file *os.File
	held bool
}

var _ ProcessLocker = (*ProcessLock)(nil)

// NewProcessLock creates a lock from cfg, filling empty fields from
// DefaultProcessLockConfig.
func NewProcessLock(cfg ProcessLockConfig) *ProcessLock {
	def := DefaultProcessLockConfig()
	if cfg.LockDir == "" {
		cfg.LockDir = def.LockDir
	}
	if cfg.LockName == "" {
		cfg.LockName = def.LockName
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.WaitCeiling <= 0 {
		cfg.WaitCeiling = def.WaitCeiling
	}
	return &ProcessLock{config: cfg}
}

// LockPath returns the lock file path.
func (l *ProcessLock) LockPath() string {
	return filepath.Join(l.config.LockDir, l.config.LockName+".lock")
}

// PIDPath returns the PID file path.
func (l *ProcessLock) PIDPath() string {
	return filepath.Join(l.config.LockDir, l.config.LockName+".pid")
}

// Acquire takes the lock without blocking. It is idempotent for the
// instance already holding it. If another process holds the lock the
// returned error is an ErrLockHeld carrying that process's PID when it
// can be read.
func (l *ProcessLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil
	}

	if err := os.MkdirAll(l.config.LockDir, 0o750); err != nil {
		return fmt.Errorf("create lock dir %s: %w", l.config.LockDir, err)
	}

	file, err := os.OpenFile(l.LockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", l.LockPath(), err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if err == unix.EWOULDBLOCK {
			return ErrLockHeld{HolderPID: l.HolderPID(), LockPath: l.LockPath()}
		}
		return fmt.Errorf("flock %s: %w", l.LockPath(), err)
	}

	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(l.PIDPath(), pid, 0o644); err != nil {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
		return fmt.Errorf("write pid file %s: %w", l.PIDPath(), err)
	}

	l.file = file
	l.held = true
	return nil
}

// AcquireWait retries Acquire until it succeeds, ctx is cancelled, or
// WaitCeiling elapses. Only ErrLockHeld is retried; any other failure
// returns immediately.
func (l *ProcessLock) AcquireWait(ctx context.Context) error {
	deadline := time.Now().Add(l.config.WaitCeiling)
	for {
		err := l.Acquire()
		if err == nil {
			return nil
		}
		var held ErrLockHeld
		if !errors.As(err, &held) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for the setup lock at %s: %w",
				l.config.WaitCeiling, l.LockPath(), err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for the setup lock: %w", ctx.Err())
		case <-time.After(l.config.PollInterval):
		}
	}
}

// Release drops the lock and removes the PID file. The lock file
// itself is left in place so other waiters can keep flocking the same
// inode. Releasing an unheld lock is a no-op.
func (l *ProcessLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}

	var firstErr error
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		firstErr = fmt.Errorf("unlock %s: %w", l.LockPath(), err)
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close lock file: %w", err)
	}
	l.file = nil
	l.held = false

	if err := os.Remove(l.PIDPath()); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = fmt.Errorf("remove pid file %s: %w", l.PIDPath(), err)
	}
	return firstErr
}

// IsHeld reports whether this instance holds the lock.
func (l *ProcessLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// HolderPID reads the PID file and returns the recorded PID, or zero
// if the file is missing or does not hold a number.
func (l *ProcessLock) HolderPID() int {
	data, err := os.ReadFile(l.PIDPath())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
