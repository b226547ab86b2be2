// config_store.go: atomic JSON load/save for MonitorConfig.
//
// Adapted from config_writer.go's atomic-write idiom: write to
// a temp file in the same directory, fsync, then os.Rename over the
// target so a reader never observes a partially written file.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"encoding/json"
	"os"
	"path/filepath"

	errors "github.com/agilira/go-errors"
)

// LoadConfig reads and validates a MonitorConfig from a JSON file. A
// missing file is not an error: DefaultConfig is returned so first-run
// startup doesn't require operators to hand-author a file.
func LoadConfig(path string) (MonitorConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return MonitorConfig{}, errors.Wrap(err, ErrCodeConfigIOError, "reading config file").WithContext("path", path)
	}

	var cfg MonitorConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return MonitorConfig{}, errors.Wrap(err, ErrCodeConfigInvalid, "parsing config JSON").WithContext("path", path)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return MonitorConfig{}, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path atomically: a temp file in the same
// directory followed by os.Rename, so concurrent readers never see a
// truncated document.
func SaveConfig(path string, cfg MonitorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, ErrCodeConfigIOError, "marshaling config").WithContext("path", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrap(err, ErrCodeConfigIOError, "creating config directory").WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, ".vigil-config-*.tmp")
	if err != nil {
		return errors.Wrap(err, ErrCodeConfigIOError, "creating temp config file").WithContext("dir", dir)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, ErrCodeConfigIOError, "writing temp config file").WithContext("path", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, ErrCodeConfigIOError, "syncing temp config file").WithContext("path", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, ErrCodeConfigIOError, "closing temp config file").WithContext("path", tmpPath)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, ErrCodeConfigIOError, "renaming temp config file into place").
			WithContext("from", tmpPath).WithContext("to", path)
	}

	return nil
}
