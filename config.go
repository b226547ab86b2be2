// config.go: MonitorConfig and its defaults for the vigil file monitor.
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"runtime"
	"time"
)

// MonitorConfig is the single JSON-schema configuration document that
// drives a Supervisor. The JSON document is flat: one key per field, named
// by the json tags below, with durations encoded as integer nanoseconds.
// It has no nested objects and no *_seconds keys.
type MonitorConfig struct {
	// Roots are absolute paths to the directories watched. Duplicate roots
	// (after Clean+Abs normalization) are a validation error.
	Roots []string `json:"roots"`

	// ScanInterval is how often each Root Watcher re-walks its tree.
	ScanInterval time.Duration `json:"scan_interval"`

	// DedupWindow bounds how long a (path, kind, second) dedup key
	// suppresses repeat events.
	DedupWindow time.Duration `json:"dedup_window"`

	// ExcludedDirs are directory names skipped entirely during the walk
	// (e.g. ".git", "node_modules").
	ExcludedDirs []string `json:"excluded_dirs"`

	// ExcludedExtensions are lower-cased file extensions, including the
	// leading dot, never dispatched for analysis.
	ExcludedExtensions []string `json:"excluded_extensions"`

	// MaxFileSizeBytes caps how large a file the Analyzer will read; files
	// over this get a moderate verdict with analysis_skipped set to
	// "too_large_for_analysis" instead.
	MaxFileSizeBytes int64 `json:"max_file_size_bytes"`

	// DaysToKeep and MaxRecords bound Persistence via the Retention
	// Manager.
	DaysToKeep int           `json:"days_to_keep"`
	MaxRecords int           `json:"max_records"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	AutoCleanupEnabled bool   `json:"auto_cleanup_enabled"`

	// DatabasePath is where Persistence opens its SQLite database.
	DatabasePath string `json:"database_path"`

	// StateSnapshotPath is where the State Cache persists its YAML
	// snapshot between restarts.
	StateSnapshotPath string `json:"state_snapshot_path"`

	// WorkerCount bounds the analysis worker pool. DefaultConfig and
	// WithDefaults set it to min(8, GOMAXPROCS); NewWorkerPool applies the
	// same default to a value of 0.
	WorkerCount int `json:"worker_count"`
}

// DefaultConfig returns a MonitorConfig with every default named in
// SPEC_FULL.md §4.1 applied.
func DefaultConfig() MonitorConfig {
	workers := runtime.GOMAXPROCS(0)
	if workers > 8 {
		workers = 8
	}
	return MonitorConfig{
		Roots:              nil,
		ScanInterval:       1 * time.Second,
		DedupWindow:        5 * time.Second,
		ExcludedDirs:       []string{".git", "node_modules", ".vigil"},
		ExcludedExtensions: nil,
		MaxFileSizeBytes:   10 * 1024 * 1024,
		DaysToKeep:         3,
		MaxRecords:         1000,
		CleanupInterval:    6 * time.Hour,
		AutoCleanupEnabled: true,
		DatabasePath:       "vigil.db",
		StateSnapshotPath:  "vigil-state.yaml",
		WorkerCount:        workers,
	}
}

// WithDefaults returns a copy of c with every zero-valued field replaced by
// its default, following argus's own WithDefaults guard-rail style.
func (c MonitorConfig) WithDefaults() MonitorConfig {
	d := DefaultConfig()

	if c.ScanInterval <= 0 {
		c.ScanInterval = d.ScanInterval
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = d.DedupWindow
	}
	if c.ExcludedDirs == nil {
		c.ExcludedDirs = d.ExcludedDirs
	}
	if c.MaxFileSizeBytes <= 0 {
		c.MaxFileSizeBytes = d.MaxFileSizeBytes
	}
	if c.DaysToKeep <= 0 {
		c.DaysToKeep = d.DaysToKeep
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = d.MaxRecords
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.DatabasePath == "" {
		c.DatabasePath = d.DatabasePath
	}
	if c.StateSnapshotPath == "" {
		c.StateSnapshotPath = d.StateSnapshotPath
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}

	return c
}

// Equal reports whether two configurations are structurally identical,
// used by the Supervisor to skip a restart when a reconfiguration request
// changes nothing.
func (c MonitorConfig) Equal(other MonitorConfig) bool {
	if c.ScanInterval != other.ScanInterval ||
		c.DedupWindow != other.DedupWindow ||
		c.MaxFileSizeBytes != other.MaxFileSizeBytes ||
		c.DaysToKeep != other.DaysToKeep ||
		c.MaxRecords != other.MaxRecords ||
		c.CleanupInterval != other.CleanupInterval ||
		c.AutoCleanupEnabled != other.AutoCleanupEnabled ||
		c.DatabasePath != other.DatabasePath ||
		c.StateSnapshotPath != other.StateSnapshotPath ||
		c.WorkerCount != other.WorkerCount {
		return false
	}
	if !stringSliceEqual(c.Roots, other.Roots) {
		return false
	}
	if !stringSliceEqual(c.ExcludedDirs, other.ExcludedDirs) {
		return false
	}
	if !stringSliceEqual(c.ExcludedExtensions, other.ExcludedExtensions) {
		return false
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
