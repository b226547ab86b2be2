// controlapi_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"path/filepath"
	"testing"
	"time"
)

func TestControlAPIStatusAndScan(t *testing.T) {
	sup := NewSupervisor(filepath.Join(t.TempDir(), "vigil.pid"))
	cfg := testConfig(t)
	if err := sup.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop(2 * time.Second)

	configPath := filepath.Join(t.TempDir(), "config.json")
	api := NewControlAPI(sup, configPath, sup.Persistence)

	status := api.Status()
	if !status.Running {
		t.Error("expected Status().Running to be true")
	}

	if err := api.RunScan(); err != nil {
		t.Fatalf("RunScan failed: %v", err)
	}
}

func TestControlAPIQueryLogsAndStatistics(t *testing.T) {
	sup := NewSupervisor(filepath.Join(t.TempDir(), "vigil.pid"))
	cfg := testConfig(t)
	if err := sup.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop(2 * time.Second)

	configPath := filepath.Join(t.TempDir(), "config.json")
	api := NewControlAPI(sup, configPath, sup.Persistence)

	if _, err := api.QueryLogs(10, ""); err != nil {
		t.Fatalf("QueryLogs failed: %v", err)
	}
	if _, err := api.Statistics(); err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
}

func TestControlAPIQueryLogsFailsWhenNotRunning(t *testing.T) {
	sup := NewSupervisor(filepath.Join(t.TempDir(), "vigil.pid"))
	configPath := filepath.Join(t.TempDir(), "config.json")
	api := NewControlAPI(sup, configPath, sup.Persistence)

	if _, err := api.QueryLogs(10, ""); err == nil {
		t.Fatal("expected QueryLogs to fail when the supervisor isn't running")
	}
}

func TestControlAPIUpdateDirectoriesRestarts(t *testing.T) {
	sup := NewSupervisor(filepath.Join(t.TempDir(), "vigil.pid"))
	cfg := testConfig(t)
	if err := sup.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop(2 * time.Second)

	configPath := filepath.Join(t.TempDir(), "config.json")
	api := NewControlAPI(sup, configPath, sup.Persistence)

	newRoot := t.TempDir()
	if err := api.UpdateDirectories([]string{newRoot}); err != nil {
		t.Fatalf("UpdateDirectories failed: %v", err)
	}
	if !sup.IsRunning() {
		t.Error("expected supervisor to still be running after UpdateDirectories")
	}
}
