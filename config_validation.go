// config_validation.go - validation rules for MonitorConfig.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"fmt"
	"path/filepath"
	"time"

	errors "github.com/agilira/go-errors"
)

// ValidationResult carries both hard errors and soft warnings, mirroring
// argus's own detailed-validation shape (config_validation.go).
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "configuration is valid"
		}
		return fmt.Sprintf("configuration is valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("configuration is invalid: %d error(s), %d warning(s)", len(vr.Errors), len(vr.Warnings))
}

// Validate performs full validation and returns the first error found, or
// nil if the configuration is usable. Use ValidateDetailed for the full
// error/warning set.
func (c MonitorConfig) Validate() error {
	result := c.ValidateDetailed()
	if !result.Valid {
		return errors.New(ErrCodeConfigInvalid, result.Errors[0]).
			WithContext("error_count", len(result.Errors))
	}
	return nil
}

// ValidateDetailed checks every invariant named in SPEC_FULL.md §4.1:
// non-absolute roots, duplicate roots after normalization, negative
// durations, and max_records < 0.
func (c MonitorConfig) ValidateDetailed() ValidationResult {
	result := ValidationResult{Valid: true}

	c.validateRoots(&result)
	c.validateDurations(&result)
	c.validateLimits(&result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (c MonitorConfig) validateRoots(result *ValidationResult) {
	if len(c.Roots) == 0 {
		result.Warnings = append(result.Warnings, "no roots configured: monitor will idle")
		return
	}

	seen := make(map[string]bool, len(c.Roots))
	for _, root := range c.Roots {
		if !filepath.IsAbs(root) {
			result.Errors = append(result.Errors, fmt.Sprintf("root %q must be an absolute path", root))
			continue
		}
		normalized := filepath.Clean(root)
		if seen[normalized] {
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate root after normalization: %q", normalized))
			continue
		}
		seen[normalized] = true
	}
}

func (c MonitorConfig) validateDurations(result *ValidationResult) {
	if c.ScanInterval <= 0 {
		result.Errors = append(result.Errors, "scan_interval must be positive")
	} else if c.ScanInterval < 10*time.Millisecond {
		result.Warnings = append(result.Warnings, "scan_interval below 10ms will dominate CPU on large trees")
	}

	if c.DedupWindow < 0 {
		result.Errors = append(result.Errors, "dedup_window must not be negative")
	}

	if c.CleanupInterval < 0 {
		result.Errors = append(result.Errors, "cleanup_interval must not be negative")
	}
}

func (c MonitorConfig) validateLimits(result *ValidationResult) {
	if c.MaxRecords < 0 {
		result.Errors = append(result.Errors, "max_records must not be negative")
	}
	if c.DaysToKeep < 0 {
		result.Errors = append(result.Errors, "days_to_keep must not be negative")
	}
	if c.MaxFileSizeBytes < 0 {
		result.Errors = append(result.Errors, "max_file_size_bytes must not be negative")
	}
	if c.WorkerCount < 0 {
		result.Errors = append(result.Errors, "worker_count must not be negative")
	}
	if c.MaxRecords > 0 && c.MaxRecords < 10 {
		result.Warnings = append(result.Warnings, "max_records below 10 forces constant retention churn")
	}
}
