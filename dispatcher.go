// dispatcher.go: Dispatcher (C4) — deduplication, the content-hash change
// filter (I3), and handoff to the worker pool via a bounded job queue.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// dedupKey identifies a (path, kind, second) tuple per SPEC_FULL.md §4.4.
func dedupKey(path string, kind EventKind, observedAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", path, kind, observedAt.Unix())))
	return hex.EncodeToString(sum[:16])
}

// Dispatcher consumes RawEvents from the ring, deduplicates them, applies
// the content-hash filter to modified/created events, and forwards
// surviving events as AnalysisJobs to the worker pool.
type Dispatcher struct {
	cfg   MonitorConfig
	cache *StateCache

	mu     sync.Mutex
	recent map[string]time.Time // dedup key -> last seen

	jobs chan AnalysisJob

	shedCount   int64
	dedupCount  int64
	filterCount int64

	logger *AuditLogger
}

// NewDispatcher creates a dispatcher that forwards surviving jobs onto a
// bounded channel of the given capacity.
func NewDispatcher(cfg MonitorConfig, cache *StateCache, jobQueueCapacity int, logger *AuditLogger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		cache:  cache,
		recent: make(map[string]time.Time),
		jobs:   make(chan AnalysisJob, jobQueueCapacity),
		logger: logger,
	}
}

// Jobs returns the channel AnalysisJobs are delivered on; the worker pool
// ranges over it.
func (d *Dispatcher) Jobs() <-chan AnalysisJob {
	return d.jobs
}

// Handle processes one RawEvent from the ring. It is safe to call from
// the single ring consumer goroutine only — Dispatcher keeps no locks on
// its hot path beyond the dedup map, which a future multi-consumer design
// could shard per root if contention ever showed up in practice.
func (d *Dispatcher) Handle(event *RawEvent) {
	key := dedupKey(event.Path, event.Kind, event.ObservedAt)

	if d.isDuplicate(key, event.ObservedAt) {
		d.dedupCount++
		return
	}

	if event.Kind == EventCreated || event.Kind == EventModified {
		if d.filterUnchanged(event) {
			d.filterCount++
			return
		}
	} else if event.Kind == EventDeleted {
		d.cache.Delete(event.Path)
	}

	job := AnalysisJob{
		Path:       event.Path,
		Root:       event.Root,
		Kind:       event.Kind,
		Size:       event.Size,
		ModTime:    event.ModTime,
		ObservedAt: event.ObservedAt,
		DedupKey:   key,
	}

	select {
	case d.jobs <- job:
	default:
		d.shedOldest(job)
	}
}

func (d *Dispatcher) isDuplicate(key string, observedAt time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.recent[key]; ok && observedAt.Sub(last) < d.cfg.DedupWindow {
		return true
	}
	d.recent[key] = observedAt
	d.pruneLocked(observedAt)
	return false
}

func (d *Dispatcher) pruneLocked(now time.Time) {
	if len(d.recent) < 4096 {
		return
	}
	for k, t := range d.recent {
		if now.Sub(t) > d.cfg.DedupWindow {
			delete(d.recent, k)
		}
	}
}

// filterUnchanged implements invariant I3: a created/modified event whose
// content hash matches the cached hash is suppressed as a false positive
// (touch, metadata-only rewrite, atomic save-in-place that ends up
// byte-identical).
func (d *Dispatcher) filterUnchanged(event *RawEvent) bool {
	hash, err := fastContentHash(event.Path, event.Size)
	if err != nil {
		// Unreadable right now (permission race, deleted between walk
		// and hash): don't suppress, let the worker's own open fail
		// and record the outcome instead of silently dropping it.
		return false
	}

	prev, existed := d.cache.Get(event.Path)
	d.cache.Put(FileState{Path: event.Path, ModTime: event.ModTime, Size: event.Size, ContentHash: hash})

	if event.Kind == EventModified && existed && prev.ContentHash == hash {
		return true
	}
	return false
}

// shedOldest handles a full job queue by inspecting only the oldest queued
// job: if it is a modified event it is dropped, whatever its path, and
// newJob takes its place; otherwise that job is re-queued at the tail and
// newJob is dropped. The rest of the queue is not searched, so a queued
// modified event for newJob's path is not preferred over other jobs.
func (d *Dispatcher) shedOldest(newJob AnalysisJob) {
	select {
	case old := <-d.jobs:
		if old.Kind == EventModified {
			d.shedCount++
			select {
			case d.jobs <- newJob:
			default:
				d.shedCount++
			}
			return
		}
		// The job we popped wasn't sheddable; put it back and drop
		// the new one instead.
		select {
		case d.jobs <- old:
		default:
		}
		d.shedCount++
	default:
		d.shedCount++
	}
	if d.logger != nil {
		d.logger.LogWarn("queue_saturated", newJob.Path, map[string]interface{}{"shed_total": d.shedCount})
	}
}

// Stats reports dedup/filter/shed counters for Supervisor.Status.
func (d *Dispatcher) Stats() (deduped, filtered, shed int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dedupCount, d.filterCount, d.shedCount
}
