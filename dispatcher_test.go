// dispatcher_test.go
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

func TestDedupKeyStableWithinSameSecond(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := dedupKey("/a", EventModified, base)
	b := dedupKey("/a", EventModified, base.Add(100*time.Millisecond))
	if a != b {
		t.Error("dedup key should be stable within the same second")
	}
}

func TestDedupKeyDiffersByKind(t *testing.T) {
	now := time.Now()
	a := dedupKey("/a", EventModified, now)
	b := dedupKey("/a", EventCreated, now)
	if a == b {
		t.Error("dedup key should differ by event kind")
	}
}

func TestDispatcherSuppressesDuplicateWithinWindow(t *testing.T) {
	cfg := DefaultConfig().WithDefaults()
	cfg.DedupWindow = 5 * time.Second
	cache := NewStateCache(nil)
	d := NewDispatcher(cfg, cache, 8, nil)

	now := time.Now()
	d.Handle(&RawEvent{Path: "/a", Kind: EventDeleted, ObservedAt: now})
	d.Handle(&RawEvent{Path: "/a", Kind: EventDeleted, ObservedAt: now})

	if len(d.jobs) != 1 {
		t.Errorf("expected exactly 1 job after deduping an identical repeat, got %d", len(d.jobs))
	}
	deduped, _, _ := d.Stats()
	if deduped != 1 {
		t.Errorf("expected dedup counter 1, got %d", deduped)
	}
}

func TestDispatcherFiltersUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("same content"), 0640); err != nil {
		t.Fatalf("setup: %v", err)
	}
	fi, _ := os.Stat(path)

	cfg := DefaultConfig().WithDefaults()
	cache := NewStateCache(nil)
	d := NewDispatcher(cfg, cache, 8, nil)

	d.Handle(&RawEvent{Path: path, Kind: EventCreated, Size: fi.Size(), ModTime: fi.ModTime(), ObservedAt: time.Now()})
	if len(d.jobs) != 1 {
		t.Fatalf("expected the initial create to pass through, got %d jobs", len(d.jobs))
	}
	<-d.jobs

	// A "modified" event for the same unchanged bytes, two seconds later so
	// the dedup key differs, should be filtered by the content-hash check.
	d.Handle(&RawEvent{Path: path, Kind: EventModified, Size: fi.Size(), ModTime: fi.ModTime(), ObservedAt: time.Now().Add(2 * time.Second)})
	if len(d.jobs) != 0 {
		t.Errorf("expected unchanged-content modified event to be filtered, got %d jobs", len(d.jobs))
	}
	_, _, shed := d.Stats()
	if shed != 0 {
		t.Errorf("filtering should not count as shedding, got %d", shed)
	}
}

func TestDispatcherDeletedEventClearsCache(t *testing.T) {
	cfg := DefaultConfig().WithDefaults()
	cache := NewStateCache(nil)
	cache.Put(FileState{Path: "/a", Size: 5})
	d := NewDispatcher(cfg, cache, 8, nil)

	d.Handle(&RawEvent{Path: "/a", Kind: EventDeleted, ObservedAt: time.Now()})

	if _, ok := cache.Get("/a"); ok {
		t.Error("expected deleted event to clear the cache entry")
	}
	if len(d.jobs) != 1 {
		t.Errorf("expected the deletion to still enqueue a job, got %d", len(d.jobs))
	}
}

func TestDispatcherShedsOldestModifiedOnOverflow(t *testing.T) {
	cfg := DefaultConfig().WithDefaults()
	cache := NewStateCache(nil)
	d := NewDispatcher(cfg, cache, 1, nil)

	now := time.Now()
	d.Handle(&RawEvent{Path: "/old", Kind: EventModified, ObservedAt: now})
	d.Handle(&RawEvent{Path: "/new", Kind: EventModified, ObservedAt: now.Add(2 * time.Second)})

	if len(d.jobs) != 1 {
		t.Fatalf("expected the queue to stay at capacity 1, got %d", len(d.jobs))
	}
	job := <-d.jobs
	if job.Path != "/new" {
		t.Errorf("expected the newest modified job to survive, got %q", job.Path)
	}
	_, _, shed := d.Stats()
	if shed == 0 {
		t.Error("expected shed counter to increase on overflow")
	}
}
