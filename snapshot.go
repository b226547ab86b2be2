// snapshot.go: YAML-backed disk snapshot for the State Cache (§4.3).
//
// go.yaml.in/yaml/v3 is a domain dependency of the source argus package that
// has no other natural home once the universal multi-format config
// parsers are trimmed (see DESIGN.md) — repurposed here for a human-
// inspectable snapshot format. Supervisor.Stop writes it best-effort on
// clean shutdown; nothing writes it periodically while the monitor runs.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"os"
	"path/filepath"
	"time"

	errors "github.com/agilira/go-errors"
	yaml "go.yaml.in/yaml/v3"
)

// snapshotEntry is the YAML-serializable form of a FileState; FileState
// itself is kept free of yaml tags so the cache's hot path never pays for
// reflection-driven marshaling.
type snapshotEntry struct {
	Path        string    `yaml:"path"`
	ModTime     time.Time `yaml:"mod_time"`
	Size        int64     `yaml:"size"`
	ContentHash uint64    `yaml:"content_hash"`
}

type snapshotDocument struct {
	Version int             `yaml:"version"`
	Entries []snapshotEntry `yaml:"entries"`
}

const snapshotVersion = 1

// SaveSnapshot writes the current State Cache contents to path using the
// same atomic temp-file-then-rename idiom as SaveConfig.
func SaveSnapshot(path string, states map[string]FileState) error {
	doc := snapshotDocument{Version: snapshotVersion, Entries: make([]snapshotEntry, 0, len(states))}
	for _, st := range states {
		doc.Entries = append(doc.Entries, snapshotEntry{
			Path:        st.Path,
			ModTime:     st.ModTime,
			Size:        st.Size,
			ContentHash: st.ContentHash,
		})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, ErrCodeConfigIOError, "marshaling state snapshot")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrap(err, ErrCodeConfigIOError, "creating snapshot directory").WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, ".vigil-snapshot-*.tmp")
	if err != nil {
		return errors.Wrap(err, ErrCodeConfigIOError, "creating temp snapshot file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, ErrCodeConfigIOError, "writing temp snapshot file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, ErrCodeConfigIOError, "closing temp snapshot file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, ErrCodeConfigIOError, "renaming temp snapshot into place")
	}
	return nil
}

// LoadSnapshot reads path back into a map keyed by path, ready to seed a
// StateCache. A missing file is not an error — it simply means there is
// nothing to pre-seed, as on first run.
func LoadSnapshot(path string) (map[string]FileState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]FileState{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeConfigIOError, "reading state snapshot").WithContext("path", path)
	}

	var doc snapshotDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, ErrCodeConfigInvalid, "parsing state snapshot YAML").WithContext("path", path)
	}

	out := make(map[string]FileState, len(doc.Entries))
	for _, e := range doc.Entries {
		out[e.Path] = FileState{
			Path:        e.Path,
			ModTime:     e.ModTime,
			Size:        e.Size,
			ContentHash: e.ContentHash,
		}
	}
	return out, nil
}
