// snapshot_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	states := map[string]FileState{
		"/a": {Path: "/a", Size: 10, ModTime: time.Unix(1000, 0), ContentHash: 42},
		"/b": {Path: "/b", Size: 20, ModTime: time.Unix(2000, 0), ContentHash: 99},
	}

	if err := SaveSnapshot(path, states); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded))
	}
	if loaded["/a"].Size != 10 || loaded["/a"].ContentHash != 42 {
		t.Errorf("unexpected state for /a: %+v", loaded["/a"])
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != 0 {
		t.Error("expected empty map for missing snapshot")
	}
}

func TestLoadSnapshotMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := SaveSnapshot(path, nil); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	// Overwrite with invalid YAML content.
	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0640); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := LoadSnapshot(path); err == nil {
		t.Fatal("expected an error for malformed snapshot YAML")
	}
}
