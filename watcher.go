// watcher.go: Root Watcher (C3) — one per monitored root, polling the
// tree on a ticker and emitting RawEvents.
//
// Grounded on argus.go's Watcher/watchLoop/pollFiles/checkFile polling
// structure (argus.go) generalized from a flat file list to a recursive
// directory walk, and on original_source's ReliableFileMonitor
// (myapp/file_monitor/file_monitor.py): first pass of a fresh watcher is
// cache-only, and a status line is logged every 60 scan cycles.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	errors "github.com/agilira/go-errors"
	timecache "github.com/agilira/go-timecache"
)

var tempFilePrefixes = []string{"~$", "."}
var tempFileSuffixes = []string{".tmp", ".temp"}

// RootWatcher walks one monitored root on a ticker and pushes RawEvents
// into a shared EventRing.
type RootWatcher struct {
	root       string
	interval   time.Duration
	excludeDir map[string]bool
	excludeExt map[string]bool
	cache      *StateCache
	ring       *EventRing
	logger     *AuditLogger

	scanCount   atomic.Int64
	errorCount  atomic.Int64
	initialDone atomic.Bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewRootWatcher builds a watcher for root using cfg's exclusion rules,
// publishing events into ring and pre-seeded from cache (so a restart
// doesn't re-announce every file as created).
func NewRootWatcher(root string, cfg MonitorConfig, cache *StateCache, ring *EventRing, logger *AuditLogger) *RootWatcher {
	excludeDir := make(map[string]bool, len(cfg.ExcludedDirs))
	for _, d := range cfg.ExcludedDirs {
		excludeDir[d] = true
	}
	excludeExt := make(map[string]bool, len(cfg.ExcludedExtensions))
	for _, e := range cfg.ExcludedExtensions {
		excludeExt[strings.ToLower(e)] = true
	}

	return &RootWatcher{
		root:       root,
		interval:   cfg.ScanInterval,
		excludeDir: excludeDir,
		excludeExt: excludeExt,
		cache:      cache,
		ring:       ring,
		logger:     logger,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

func isExcludedPath(name string) bool {
	for _, p := range tempFilePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range tempFileSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Run starts the polling loop; it returns when ctx is cancelled or Stop
// is called.
func (w *RootWatcher) Run(ctx context.Context) {
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scanOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.scanOnce()
		}
	}
}

// Stop signals the polling loop to exit and waits for it to finish.
func (w *RootWatcher) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

// ResetInitialScan rearms the first-pass suppression so the next scanOnce
// call is treated as a fresh start: the cache is repopulated silently and
// no created/modified/deleted events are emitted for it. Used by
// RunFullScan, which clears the shared StateCache and needs the following
// scan to rebuild it without flooding created events for unchanged files.
func (w *RootWatcher) ResetInitialScan() {
	w.initialDone.Store(false)
}

func (w *RootWatcher) scanOnce() {
	seen := make(map[string]bool, 256)
	now := time.Unix(0, timecache.CachedTimeNano())
	firstPass := w.initialDone.CompareAndSwap(false, true)

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.handleWalkError(path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path != w.root && (w.excludeDir[name] || isExcludedPath(name)) {
				return filepath.SkipDir
			}
			return nil
		}

		if isExcludedPath(name) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if w.excludeExt[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			w.handleWalkError(path, err)
			return nil
		}

		seen[path] = true
		w.checkPath(path, info.ModTime(), info.Size(), now, firstPass)
		return nil
	})
	if err != nil {
		w.handleWalkError(w.root, err)
	}

	if firstPass {
		// First pass only populates the cache; nothing to report as
		// created or deleted relative to a cache that didn't exist a
		// moment ago.
	} else {
		w.checkDeletions(seen, now)
	}

	count := w.scanCount.Add(1)
	if count%60 == 0 && w.logger != nil {
		w.logger.LogInfo("watcher_heartbeat", w.root, map[string]interface{}{
			"tracked_files": w.cache.Len(),
			"scan_count":    count,
		})
	}
}

func (w *RootWatcher) checkPath(path string, modTime time.Time, size int64, observedAt time.Time, firstPass bool) {
	prev, existed := w.cache.Get(path)

	if !existed {
		w.cache.Put(FileState{Path: path, ModTime: modTime, Size: size})
		if !firstPass {
			w.emit(RawEvent{Path: path, Root: w.root, Kind: EventCreated, ModTime: modTime, Size: size, ObservedAt: observedAt})
		}
		return
	}

	if !modTime.Equal(prev.ModTime) || size != prev.Size {
		w.cache.Put(FileState{Path: path, ModTime: modTime, Size: size, ContentHash: prev.ContentHash})
		if !firstPass {
			w.emit(RawEvent{Path: path, Root: w.root, Kind: EventModified, ModTime: modTime, Size: size, ObservedAt: observedAt})
		}
	}
}

func (w *RootWatcher) checkDeletions(seen map[string]bool, observedAt time.Time) {
	for path, st := range w.cache.Snapshot() {
		if !strings.HasPrefix(path, w.root) {
			continue
		}
		if seen[path] {
			continue
		}
		w.cache.Delete(path)
		w.emit(RawEvent{Path: path, Root: w.root, Kind: EventDeleted, ModTime: st.ModTime, Size: st.Size, ObservedAt: observedAt})
	}
}

func (w *RootWatcher) emit(event RawEvent) {
	ev := event
	if !w.ring.Write(&ev) {
		if w.logger != nil {
			w.logger.LogWarn("ring_overflow", event.Path, nil)
		}
	}
}

func (w *RootWatcher) handleWalkError(path string, err error) {
	n := w.errorCount.Add(1)
	wrapped := errors.Wrap(err, ErrCodePathUnavailable, "walking root").WithContext("path", path)
	if isPermissionError(err) {
		wrapped = errors.Wrap(err, ErrCodePermissionDenied, "permission denied").WithContext("path", path)
	}
	if w.logger != nil && n%20 == 1 {
		// Rate-limit to avoid an error storm on a subtree with
		// pervasive permission issues flooding the log.
		w.logger.LogWarn("walk_error", path, map[string]interface{}{"error": wrapped.Error()})
	}
}

func isPermissionError(err error) bool {
	return strings.Contains(err.Error(), "permission denied")
}
