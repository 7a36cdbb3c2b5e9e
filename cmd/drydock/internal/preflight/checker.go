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
Package preflight gates a setup run on the machine actually being able
to complete it.

# Problem Statement

Without early validation, a setup run fails halfway through with
cryptic tool errors on machines that were never going to work:

 1. Homebrew's installer aborts on non-macOS systems and on
    architectures it has no bottles for
 2. Casks silently require macOS releases newer than what is running
 3. Large installs die mid-download on a nearly full disk
 4. Everything hangs without network access
 5. Homebrew cannot build from source without the Xcode Command Line
    Tools

Each of those surfaces as a confusing error deep inside some other
tool's output, long after the user has answered all the prompts.

# Checks

 1. Operating system: macOS only (hard gate)
 2. Architecture: Apple Silicon (arm64) or Intel (x86_64) (hard gate)
 3. macOS version: configurable minimum release
 4. Disk space: configurable free-space floor on the home filesystem
 5. Network: HEAD probes against the package sources, first response
    wins, probed concurrently with a per-URL timeout
 6. Xcode Command Line Tools: xcode-select -p

Hard-gate failures abort the run. Everything else is reported and the
user decides whether to continue.

# Error Types

	CheckErrorUnsupportedOS      - not macOS
	CheckErrorUnsupportedArch    - not arm64 or x86_64
	CheckErrorOSVersionUnknown   - sw_vers output unreadable
	CheckErrorOSVersionTooOld    - macOS below the configured minimum
	CheckErrorDiskSpaceLow       - free space under the floor
	CheckErrorNetworkUnavailable - no package source responded
	CheckErrorCLTMissing         - Command Line Tools absent

# Usage

	checker := preflight.NewDefaultChecker(runner, preflight.DefaultConfig())

	report := checker.Run(ctx)
	fmt.Print(report.String())

	if f := report.FatalFailure(); f != nil {
	    return f
	}
*/
package preflight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/tools"
)

// -----------------------------------------------------------------------------
// Error Types
// -----------------------------------------------------------------------------

// CheckErrorType categorizes preflight failures for programmatic handling.
type CheckErrorType int

const (
	// CheckErrorUnsupportedOS indicates the host is not running macOS.
	CheckErrorUnsupportedOS CheckErrorType = iota

	// CheckErrorUnsupportedArch indicates an architecture Homebrew has no
	// bottles for.
	CheckErrorUnsupportedArch

	// CheckErrorOSVersionUnknown indicates the macOS version could not be read.
	CheckErrorOSVersionUnknown

	// CheckErrorOSVersionTooOld indicates macOS is below the configured minimum.
	CheckErrorOSVersionTooOld

	// CheckErrorDiskSpaceLow indicates insufficient free disk space.
	CheckErrorDiskSpaceLow

	// CheckErrorNetworkUnavailable indicates no package source responded.
	CheckErrorNetworkUnavailable

	// CheckErrorCLTMissing indicates the Xcode Command Line Tools are absent.
	CheckErrorCLTMissing
)

// String returns the error type as a string for logging.
func (t CheckErrorType) String() string {
	switch t {
	case CheckErrorUnsupportedOS:
		return "UNSUPPORTED_OS"
	case CheckErrorUnsupportedArch:
		return "UNSUPPORTED_ARCH"
	case CheckErrorOSVersionUnknown:
		return "OS_VERSION_UNKNOWN"
	case CheckErrorOSVersionTooOld:
		return "OS_VERSION_TOO_OLD"
	case CheckErrorDiskSpaceLow:
		return "DISK_SPACE_LOW"
	case CheckErrorNetworkUnavailable:
		return "NETWORK_UNAVAILABLE"
	case CheckErrorCLTMissing:
		return "CLT_MISSING"
	default:
		return "UNKNOWN"
	}
}

// CheckError provides structured failure information for one gate.
type CheckError struct {
	// Type categorizes the error for programmatic handling.
	Type CheckErrorType

	// Message is a human-readable error description.
	Message string

	// Detail provides technical information for debugging.
	Detail string

	// Remediation suggests how to fix the issue.
	Remediation string

	// Fatal marks a hard gate: the run cannot continue past it.
	Fatal bool
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return e.Message
}

// FullError returns a detailed error message including remediation.
func (e *CheckError) FullError() string {
	var buf bytes.Buffer
	buf.WriteString(e.Message)
	if e.Detail != "" {
		buf.WriteString("\n\nDetails: ")
		buf.WriteString(e.Detail)
	}
	if e.Remediation != "" {
		buf.WriteString("\n\nTo fix:\n")
		buf.WriteString(e.Remediation)
	}
	if e.Fatal {
		buf.WriteString("\n\nThis requirement cannot be waived.")
	}
	return buf.String()
}

// -----------------------------------------------------------------------------
// Preflight Report
// -----------------------------------------------------------------------------

// Report contains the results of a full preflight pass.
type Report struct {
	Timestamp time.Time

	// Host
	OS           string
	Arch         string
	OSVersion    string
	MinOSVersion string

	// Disk
	DiskFree     int64
	DiskRequired int64

	// Network
	NetworkReachable bool
	NetworkLatencyMs int64

	// Developer tools
	CLTInstalled bool
	CLTPath      string

	// Failures collected across all checks, in check order.
	Failures []*CheckError
}

// Passed reports whether every check succeeded.
func (r *Report) Passed() bool {
	return len(r.Failures) == 0
}

// FatalFailure returns the first hard-gate failure, or nil.
func (r *Report) FatalFailure() *CheckError {
	for _, f := range r.Failures {
		if f.Fatal {
			return f
		}
	}
	return nil
}

// String formats the report for display.
func (r *Report) String() string {
	var buf bytes.Buffer

	buf.WriteString("=== drydock preflight ===\n")
	buf.WriteString(fmt.Sprintf("Generated: %s\n\n", r.Timestamp.Format(time.RFC3339)))

	buf.WriteString("[System]\n")
	if r.OS == "darwin" {
		buf.WriteString("  OS:            ✓ macOS\n")
	} else {
		buf.WriteString(fmt.Sprintf("  OS:            ✗ %s (macOS required)\n", r.OS))
	}
	buf.WriteString(fmt.Sprintf("  Architecture:  %s\n", archLabel(r.Arch)))
	if r.OSVersion != "" {
		buf.WriteString(fmt.Sprintf("  Version:       %s (minimum %s)\n", r.OSVersion, r.MinOSVersion))
	}
	buf.WriteString("\n")

	buf.WriteString("[Disk]\n")
	buf.WriteString(fmt.Sprintf("  Free:          %s\n", formatBytes(r.DiskFree)))
	buf.WriteString(fmt.Sprintf("  Required:      %s\n", formatBytes(r.DiskRequired)))
	buf.WriteString("\n")

	buf.WriteString("[Network]\n")
	if r.NetworkReachable {
		buf.WriteString(fmt.Sprintf("  Sources:       ✓ Reachable (%dms)\n", r.NetworkLatencyMs))
	} else {
		buf.WriteString("  Sources:       ✗ Unreachable\n")
	}
	buf.WriteString("\n")

	buf.WriteString("[Developer Tools]\n")
	if r.CLTInstalled {
		buf.WriteString(fmt.Sprintf("  CLT:           ✓ Yes (%s)\n", r.CLTPath))
	} else {
		buf.WriteString("  CLT:           ✗ No\n")
	}
	buf.WriteString("\n")

	if len(r.Failures) > 0 {
		buf.WriteString("[Failures]\n")
		for _, f := range r.Failures {
			buf.WriteString(fmt.Sprintf("  ✗ %s\n", f.Message))
		}
	} else {
		buf.WriteString("[Status]\n")
		buf.WriteString("  ✓ All checks passed\n")
	}

	return buf.String()
}

func archLabel(arch string) string {
	switch arch {
	case "arm64":
		return "arm64 (Apple Silicon)"
	case "amd64":
		return "x86_64 (Intel)"
	default:
		return arch
	}
}

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Checker defines the contract for preflight gates. Implementations
// must be safe for concurrent use.
type Checker interface {
	// CheckOS verifies the host runs macOS. Hard gate.
	CheckOS() error

	// CheckArchitecture verifies a supported CPU architecture. Hard gate.
	CheckArchitecture() error

	// CheckOSVersion verifies macOS meets the configured minimum release.
	CheckOSVersion(ctx context.Context) error

	// CheckDiskSpace verifies the free-space floor on the home filesystem.
	CheckDiskSpace() error

	// CheckNetwork verifies at least one package source responds.
	CheckNetwork(ctx context.Context) error

	// CheckCommandLineTools verifies the Xcode Command Line Tools are
	// installed.
	CheckCommandLineTools(ctx context.Context) error

	// Run performs every check and returns the collected report.
	Run(ctx context.Context) *Report
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config carries the tunable gate thresholds.
type Config struct {
	// MinOSVersion is the lowest supported macOS release, e.g. "13.0".
	// Empty disables the version gate.
	MinOSVersion string

	// MinDiskBytes is the free-space floor. Zero disables the disk gate.
	MinDiskBytes int64

	// ProbeURLs are the package sources probed for reachability.
	ProbeURLs []string

	// ProbeTimeout bounds each individual probe.
	ProbeTimeout time.Duration

	// DiskPath is the path whose filesystem is checked for free space.
	// Empty means the user's home directory.
	DiskPath string
}

// DefaultConfig returns the stock gate thresholds. The probe URLs are
// the hosts the setup run itself downloads from.
func DefaultConfig() Config {
	return Config{
		MinOSVersion: "13.0",
		MinDiskBytes: 5 << 30,
		ProbeURLs: []string{
			"https://github.com",
			"https://raw.githubusercontent.com",
		},
		ProbeTimeout: 5 * time.Second,
	}
}

// -----------------------------------------------------------------------------
// Default Implementation
// -----------------------------------------------------------------------------

// DefaultChecker implements Checker for the local machine.
type DefaultChecker struct {
	runner     tools.Runner
	config     Config
	httpClient *http.Client

	// goos and goarch are runtime values, held as fields so tests can
	// exercise the unsupported-host paths on any machine.
	goos   string
	goarch string

	// Cache for checks that shell out. sw_vers and xcode-select answers
	// cannot change mid-run.
	mu               sync.Mutex
	osVersionChecked bool
	osVersionCached  string
	osVersionErr     error
	cltChecked       bool
	cltPathCached    string
	cltErr           error
}

// NewDefaultChecker creates a checker for the local machine. Zero-value
// config fields fall back to DefaultConfig.
func NewDefaultChecker(r tools.Runner, cfg Config) *DefaultChecker {
	defaults := DefaultConfig()
	if cfg.MinOSVersion == "" {
		cfg.MinOSVersion = defaults.MinOSVersion
	}
	if cfg.MinDiskBytes <= 0 {
		cfg.MinDiskBytes = defaults.MinDiskBytes
	}
	if len(cfg.ProbeURLs) == 0 {
		cfg.ProbeURLs = defaults.ProbeURLs
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaults.ProbeTimeout
	}
	return &DefaultChecker{
		runner:     r,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		goos:       runtime.GOOS,
		goarch:     runtime.GOARCH,
	}
}

// -----------------------------------------------------------------------------
// Host Gates
// -----------------------------------------------------------------------------

// CheckOS verifies the host runs macOS.
func (c *DefaultChecker) CheckOS() error {
	if c.goos == "darwin" {
		return nil
	}
	return &CheckError{
		Type:        CheckErrorUnsupportedOS,
		Message:     fmt.Sprintf("This machine runs %s, and drydock only supports macOS", c.goos),
		Detail:      "Homebrew casks and the macOS keychain integration have no equivalent elsewhere",
		Remediation: "Run drydock on a Mac.",
		Fatal:       true,
	}
}

// CheckArchitecture verifies a CPU architecture Homebrew supports.
func (c *DefaultChecker) CheckArchitecture() error {
	switch c.goarch {
	case "arm64", "amd64":
		return nil
	}
	return &CheckError{
		Type:        CheckErrorUnsupportedArch,
		Message:     fmt.Sprintf("Unsupported architecture %s", c.goarch),
		Detail:      "Homebrew ships bottles for Apple Silicon (arm64) and Intel (x86_64) only",
		Remediation: "Run drydock on an Apple Silicon or Intel Mac.",
		Fatal:       true,
	}
}

// OSVersion returns the macOS release, e.g. "14.5". Cached after the
// first read.
func (c *DefaultChecker) OSVersion(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.osVersionChecked {
		return c.osVersionCached, c.osVersionErr
	}
	c.osVersionChecked = true

	out, err := c.runner.Run(ctx, "sw_vers", "-productVersion")
	if err != nil {
		c.osVersionErr = fmt.Errorf("failed to read the macOS version: %w", err)
		return "", c.osVersionErr
	}
	c.osVersionCached = strings.TrimSpace(string(out))
	return c.osVersionCached, nil
}

// CheckOSVersion verifies macOS meets the configured minimum release.
func (c *DefaultChecker) CheckOSVersion(ctx context.Context) error {
	version, err := c.OSVersion(ctx)
	if err != nil {
		return &CheckError{
			Type:        CheckErrorOSVersionUnknown,
			Message:     "Could not determine the macOS version",
			Detail:      err.Error(),
			Remediation: "Run sw_vers -productVersion and check its output.",
		}
	}
	if c.config.MinOSVersion == "" {
		return nil
	}
	if !versionAtLeast(version, c.config.MinOSVersion) {
		return &CheckError{
			Type:        CheckErrorOSVersionTooOld,
			Message:     fmt.Sprintf("macOS %s is older than the supported minimum %s", version, c.config.MinOSVersion),
			Detail:      "Recent casks and Homebrew itself drop support for old releases",
			Remediation: "Update macOS from System Settings > General > Software Update, then run drydock again.",
		}
	}
	return nil
}

// versionAtLeast compares macOS release strings like "14.5" against
// "13.0". sw_vers output is semver-shaped once a "v" prefix is added.
func versionAtLeast(version, minimum string) bool {
	v := "v" + strings.TrimSpace(version)
	m := "v" + strings.TrimSpace(minimum)
	if !semver.IsValid(v) || !semver.IsValid(m) {
		return false
	}
	return semver.Compare(v, m) >= 0
}

// -----------------------------------------------------------------------------
// Disk Gate
// -----------------------------------------------------------------------------

// AvailableDiskSpace returns free bytes on the checked filesystem.
func (c *DefaultChecker) AvailableDiskSpace() (int64, error) {
	path := c.resolveDiskPath()
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs failed for %s: %w", path, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

// resolveDiskPath walks up from the configured path until an existing
// directory is found, falling back to the home directory.
func (c *DefaultChecker) resolveDiskPath() string {
	path := c.config.DiskPath
	if path == "" {
		path, _ = os.UserHomeDir()
	}
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			home, _ := os.UserHomeDir()
			return home
		}
		path = parent
	}
}

// CheckDiskSpace verifies the free-space floor.
func (c *DefaultChecker) CheckDiskSpace() error {
	if c.config.MinDiskBytes <= 0 {
		return nil
	}

	available, err := c.AvailableDiskSpace()
	if err != nil {
		return &CheckError{
			Type:        CheckErrorDiskSpaceLow,
			Message:     "Failed to check disk space",
			Detail:      err.Error(),
			Remediation: "Check that your home directory is accessible.",
		}
	}

	if available < c.config.MinDiskBytes {
		return &CheckError{
			Type: CheckErrorDiskSpaceLow,
			Message: fmt.Sprintf("Insufficient disk space: need %s free, have %s",
				formatBytes(c.config.MinDiskBytes), formatBytes(available)),
			Detail: fmt.Sprintf("Checked the filesystem at %s", c.resolveDiskPath()),
			Remediation: fmt.Sprintf(`Free up at least %s and run drydock again.

Options:
  1. Empty the Trash
  2. Review storage: Apple menu > About This Mac > Storage
  3. Remove old Homebrew downloads: brew cleanup`,
				formatBytes(c.config.MinDiskBytes-available)),
		}
	}

	return nil
}

// -----------------------------------------------------------------------------
// Network Gate
// -----------------------------------------------------------------------------

// errReachable is the probe group's early-exit signal: the first probe
// to get any HTTP response returns it, cancelling the rest. A nil group
// error therefore means every source failed.
var errReachable = errors.New("reachable")

// probeSources races a HEAD request per package source and reports the
// time to the first response.
func (c *DefaultChecker) probeSources(ctx context.Context) (time.Duration, error) {
	start := time.Now()

	var mu sync.Mutex
	failures := make([]string, 0, len(c.config.ProbeURLs))

	g, gctx := errgroup.WithContext(ctx)
	for _, url := range c.config.ProbeURLs {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, c.config.ProbeTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", url, err))
				mu.Unlock()
				return nil
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", url, err))
				mu.Unlock()
				return nil
			}
			resp.Body.Close()
			// Any response, even an error status, proves reachability.
			return errReachable
		})
	}

	if err := g.Wait(); errors.Is(err, errReachable) {
		return time.Since(start), nil
	}

	return 0, &CheckError{
		Type:    CheckErrorNetworkUnavailable,
		Message: "Cannot reach the package sources",
		Detail:  strings.Join(failures, "; "),
		Remediation: `Everything drydock installs is downloaded, so a connection is required.

Options:
  1. Check your internet connection
  2. Check whether a firewall or proxy blocks github.com
  3. Try again in a moment`,
	}
}

// CheckNetwork verifies at least one package source responds.
func (c *DefaultChecker) CheckNetwork(ctx context.Context) error {
	_, err := c.probeSources(ctx)
	return err
}

// -----------------------------------------------------------------------------
// Developer Tools Gate
// -----------------------------------------------------------------------------

// CommandLineToolsPath returns the active developer directory. Cached
// after the first read.
func (c *DefaultChecker) CommandLineToolsPath(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cltChecked {
		return c.cltPathCached, c.cltErr
	}
	c.cltChecked = true

	out, err := c.runner.Run(ctx, "xcode-select", "-p")
	if err != nil {
		c.cltErr = fmt.Errorf("failed to locate the Command Line Tools: %w", err)
		return "", c.cltErr
	}
	c.cltPathCached = strings.TrimSpace(string(out))
	return c.cltPathCached, nil
}

// CheckCommandLineTools verifies the Xcode Command Line Tools are
// installed. Homebrew needs them whenever a formula has no bottle.
func (c *DefaultChecker) CheckCommandLineTools(ctx context.Context) error {
	if _, err := c.CommandLineToolsPath(ctx); err != nil {
		return &CheckError{
			Type:    CheckErrorCLTMissing,
			Message: "The Xcode Command Line Tools are not installed",
			Detail:  err.Error(),
			Remediation: `Install them:
  xcode-select --install

A dialog opens; the download takes a few minutes. Then run drydock again.`,
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Full Pass
// -----------------------------------------------------------------------------

// Run performs every check and returns the collected report.
func (c *DefaultChecker) Run(ctx context.Context) *Report {
	report := &Report{
		Timestamp:    time.Now(),
		OS:           c.goos,
		Arch:         c.goarch,
		MinOSVersion: c.config.MinOSVersion,
		DiskRequired: c.config.MinDiskBytes,
	}

	record := func(err error) {
		if err == nil {
			return
		}
		var checkErr *CheckError
		if errors.As(err, &checkErr) {
			report.Failures = append(report.Failures, checkErr)
			return
		}
		report.Failures = append(report.Failures, &CheckError{Message: err.Error()})
	}

	record(c.CheckOS())
	record(c.CheckArchitecture())

	// The version and developer-tools checks shell out to macOS
	// commands, so they only run on a supported OS.
	if c.goos == "darwin" {
		if version, err := c.OSVersion(ctx); err == nil {
			report.OSVersion = version
		}
		record(c.CheckOSVersion(ctx))

		if path, err := c.CommandLineToolsPath(ctx); err == nil {
			report.CLTInstalled = true
			report.CLTPath = path
		}
		record(c.CheckCommandLineTools(ctx))
	}

	if free, err := c.AvailableDiskSpace(); err == nil {
		report.DiskFree = free
	}
	record(c.CheckDiskSpace())

	if latency, err := c.probeSources(ctx); err == nil {
		report.NetworkReachable = true
		report.NetworkLatencyMs = latency.Milliseconds()
	} else {
		record(err)
	}

	return report
}

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// -----------------------------------------------------------------------------
// Mock Implementation
// -----------------------------------------------------------------------------

// MockChecker implements Checker for tests with scripted results.
type MockChecker struct {
	OSErr      error
	ArchErr    error
	VersionErr error
	DiskErr    error
	NetworkErr error
	CLTErr     error

	// MockReport overrides the report Run assembles from the errors
	// above.
	MockReport *Report
}

func (m *MockChecker) CheckOS() error                                  { return m.OSErr }
func (m *MockChecker) CheckArchitecture() error                        { return m.ArchErr }
func (m *MockChecker) CheckOSVersion(ctx context.Context) error        { return m.VersionErr }
func (m *MockChecker) CheckDiskSpace() error                           { return m.DiskErr }
func (m *MockChecker) CheckNetwork(ctx context.Context) error          { return m.NetworkErr }
func (m *MockChecker) CheckCommandLineTools(ctx context.Context) error { return m.CLTErr }

// Run assembles a report from the scripted errors unless MockReport is
// set.
func (m *MockChecker) Run(ctx context.Context) *Report {
	if m.MockReport != nil {
		return m.MockReport
	}
	report := &Report{Timestamp: time.Now(), NetworkReachable: m.NetworkErr == nil}
	for _, err := range []error{m.OSErr, m.ArchErr, m.VersionErr, m.DiskErr, m.NetworkErr, m.CLTErr} {
		if err == nil {
			continue
		}
		var checkErr *CheckError
		if errors.As(err, &checkErr) {
			report.Failures = append(report.Failures, checkErr)
			continue
		}
		report.Failures = append(report.Failures, &CheckError{Message: err.Error()})
	}
	return report
}

// Compile-time interface compliance checks.
var (
	_ Checker = (*DefaultChecker)(nil)
	_ Checker = (*MockChecker)(nil)
)
