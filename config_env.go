// config_env.go: VIGIL_* environment variable overrides for MonitorConfig.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"os"
	"strconv"
	"strings"
	"time"

	errors "github.com/agilira/go-errors"
)

// ApplyEnvOverrides layers VIGIL_* environment variables on top of cfg,
// following the precedence named in SPEC_FULL.md §4.1: file, then env,
// then CLI flags. Unset or unparsable variables are left untouched except
// that a malformed value returns ConfigInvalid rather than being silently
// ignored, so operators notice a typo immediately.
func ApplyEnvOverrides(cfg MonitorConfig) (MonitorConfig, error) {
	if v, ok := os.LookupEnv("VIGIL_SCAN_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, errors.Wrap(err, ErrCodeConfigInvalid, "VIGIL_SCAN_INTERVAL").WithContext("value", v)
		}
		cfg.ScanInterval = d
	}

	if v, ok := os.LookupEnv("VIGIL_DEDUP_WINDOW"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, errors.Wrap(err, ErrCodeConfigInvalid, "VIGIL_DEDUP_WINDOW").WithContext("value", v)
		}
		cfg.DedupWindow = d
	}

	if v, ok := os.LookupEnv("VIGIL_MAX_RECORDS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, ErrCodeConfigInvalid, "VIGIL_MAX_RECORDS").WithContext("value", v)
		}
		cfg.MaxRecords = n
	}

	if v, ok := os.LookupEnv("VIGIL_DAYS_TO_KEEP"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, ErrCodeConfigInvalid, "VIGIL_DAYS_TO_KEEP").WithContext("value", v)
		}
		cfg.DaysToKeep = n
	}

	if v, ok := os.LookupEnv("VIGIL_MAX_FILE_SIZE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, errors.Wrap(err, ErrCodeConfigInvalid, "VIGIL_MAX_FILE_SIZE_BYTES").WithContext("value", v)
		}
		cfg.MaxFileSizeBytes = n
	}

	if v, ok := os.LookupEnv("VIGIL_AUTO_CLEANUP"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.Wrap(err, ErrCodeConfigInvalid, "VIGIL_AUTO_CLEANUP").WithContext("value", v)
		}
		cfg.AutoCleanupEnabled = b
	}

	if v, ok := os.LookupEnv("VIGIL_ROOTS"); ok && v != "" {
		cfg.Roots = strings.Split(v, string(os.PathListSeparator))
	}

	return cfg, nil
}
