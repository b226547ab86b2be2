// config_env_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import "testing"

func TestApplyEnvOverrides(t *testing.T) {
	t.Run("overrides_scan_interval", func(t *testing.T) {
		t.Setenv("VIGIL_SCAN_INTERVAL", "2s")
		cfg, err := ApplyEnvOverrides(DefaultConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ScanInterval.String() != "2s" {
			t.Errorf("expected 2s, got %s", cfg.ScanInterval)
		}
	})

	t.Run("invalid_duration_returns_error", func(t *testing.T) {
		t.Setenv("VIGIL_SCAN_INTERVAL", "not-a-duration")
		_, err := ApplyEnvOverrides(DefaultConfig())
		if err == nil {
			t.Fatal("expected an error for malformed VIGIL_SCAN_INTERVAL")
		}
	})

	t.Run("invalid_int_returns_error", func(t *testing.T) {
		t.Setenv("VIGIL_MAX_RECORDS", "oops")
		_, err := ApplyEnvOverrides(DefaultConfig())
		if err == nil {
			t.Fatal("expected an error for malformed VIGIL_MAX_RECORDS")
		}
	})

	t.Run("bool_override", func(t *testing.T) {
		t.Setenv("VIGIL_AUTO_CLEANUP", "false")
		cfg, err := ApplyEnvOverrides(DefaultConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.AutoCleanupEnabled {
			t.Error("expected AutoCleanupEnabled to be false")
		}
	})

	t.Run("no_env_set_leaves_defaults", func(t *testing.T) {
		base := DefaultConfig()
		cfg, err := ApplyEnvOverrides(base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.Equal(base) {
			t.Error("expected unchanged config when no VIGIL_* vars are set")
		}
	})
}
