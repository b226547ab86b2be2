// workerpool_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWorkerPoolProcessesJobsAndPersists(t *testing.T) {
	p := openTestPersistence(t)
	cfg := DefaultConfig().WithDefaults()

	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("hello"), 0640); err != nil {
		t.Fatalf("setup: %v", err)
	}
	fi, _ := os.Stat(path)

	pool := NewWorkerPool(2, p, cfg, nil)
	jobs := make(chan AnalysisJob, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx, jobs)

	jobs <- AnalysisJob{
		Path: path, Root: dir, Kind: EventCreated, Size: fi.Size(),
		ModTime: fi.ModTime(), ObservedAt: time.Now(), DedupKey: "k1",
	}
	close(jobs)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := p.QueryLogs(10, "")
		if err == nil && len(entries) == 1 && entries[0].Analyzed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected the job to be logged and analyzed within the deadline")
}

func TestWorkerPoolKeyForIsStable(t *testing.T) {
	pool := NewWorkerPool(4, nil, MonitorConfig{}, nil)
	a := pool.keyFor("/same/path")
	b := pool.keyFor("/same/path")
	if a != b {
		t.Error("keyFor should route the same path to the same worker")
	}
}

func TestNewWorkerPoolDefaultsSize(t *testing.T) {
	pool := NewWorkerPool(0, nil, MonitorConfig{}, nil)
	if len(pool.workers) == 0 {
		t.Error("expected a default positive worker count when size <= 0")
	}
}
