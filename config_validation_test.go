// config_validation_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import "testing"

func TestValidateDetailed(t *testing.T) {
	t.Run("valid_default_with_roots", func(t *testing.T) {
		cfg := DefaultConfig().WithDefaults()
		cfg.Roots = []string{"/var/data"}
		result := cfg.ValidateDetailed()
		if !result.Valid {
			t.Errorf("expected valid, got errors: %v", result.Errors)
		}
	})

	t.Run("no_roots_warns_not_errors", func(t *testing.T) {
		cfg := DefaultConfig().WithDefaults()
		result := cfg.ValidateDetailed()
		if !result.Valid {
			t.Errorf("empty roots should warn, not invalidate: %v", result.Errors)
		}
		if len(result.Warnings) == 0 {
			t.Error("expected a warning about no roots configured")
		}
	})

	t.Run("relative_root_is_error", func(t *testing.T) {
		cfg := DefaultConfig().WithDefaults()
		cfg.Roots = []string{"relative/path"}
		result := cfg.ValidateDetailed()
		if result.Valid {
			t.Error("relative root should invalidate config")
		}
	})

	t.Run("duplicate_root_after_normalization", func(t *testing.T) {
		cfg := DefaultConfig().WithDefaults()
		cfg.Roots = []string{"/var/data", "/var/data/"}
		result := cfg.ValidateDetailed()
		if result.Valid {
			t.Error("duplicate normalized roots should invalidate config")
		}
	})

	t.Run("negative_scan_interval", func(t *testing.T) {
		cfg := DefaultConfig().WithDefaults()
		cfg.Roots = []string{"/var/data"}
		cfg.ScanInterval = -1
		result := cfg.ValidateDetailed()
		if result.Valid {
			t.Error("negative scan_interval should invalidate config")
		}
	})

	t.Run("negative_max_records", func(t *testing.T) {
		cfg := DefaultConfig().WithDefaults()
		cfg.Roots = []string{"/var/data"}
		cfg.MaxRecords = -5
		result := cfg.ValidateDetailed()
		if result.Valid {
			t.Error("negative max_records should invalidate config")
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig().WithDefaults()
	cfg.Roots = []string{"not/absolute"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error for a relative root")
	}
}

func TestValidationResultString(t *testing.T) {
	valid := ValidationResult{Valid: true}
	if valid.String() != "configuration is valid" {
		t.Errorf("unexpected string: %s", valid.String())
	}

	invalid := ValidationResult{Valid: false, Errors: []string{"bad"}}
	if invalid.String() == "" {
		t.Error("invalid result should produce a non-empty description")
	}
}
