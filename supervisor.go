// supervisor.go: Supervisor (C8) — process-wide singleton pipeline
// lifecycle: Start/Stop/Restart/Status/RunFullScan.
//
// The pidfile/exclusive-lock discipline has no direct source analogue
// (no argus file enforces a process-wide singleton); it follows the
// common Go daemon idiom of an exclusive pidfile rather than a raw flock
// syscall, since no library in the pack wraps flock — see DESIGN.md.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	errors "github.com/agilira/go-errors"
	timecache "github.com/agilira/go-timecache"
)

// StatusReport is the Supervisor.Status() return value (§4.8, §6).
type StatusReport struct {
	Running              bool
	Roots                []string
	QueueDepth           int64
	Workers              int
	LastScanAt           time.Time
	EventsDroppedTotal   int64
	AnalysesDroppedTotal int64
}

// Supervisor owns the lifecycle of every other component and enforces a
// single live pipeline instance per pidfile path.
type Supervisor struct {
	pidfilePath string

	mu      sync.Mutex
	running bool
	cfg     MonitorConfig

	ctx    context.Context
	cancel context.CancelFunc

	cache     *StateCache
	ring      *EventRing
	dispatch  *Dispatcher
	pool      *WorkerPool
	watchers  []*RootWatcher
	retention *RetentionManager
	persist   *Persistence
	logger    *AuditLogger

	pidfile *os.File
}

// NewSupervisor creates a Supervisor that enforces its singleton via
// pidfilePath.
func NewSupervisor(pidfilePath string) *Supervisor {
	return &Supervisor{pidfilePath: pidfilePath}
}

// Start validates cfg, acquires the exclusive pidfile lock, and launches
// every component. Calling Start while already running returns
// AlreadyRunning.
func (s *Supervisor) Start(cfg MonitorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New(ErrCodeAlreadyRunning, "supervisor already running")
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := s.acquirePidfile(); err != nil {
		return errors.Wrap(err, ErrCodeStartFailed, "acquiring pidfile lock").WithContext("pidfile", s.pidfilePath)
	}

	logger, err := NewAuditLogger(DefaultAuditLoggerConfig())
	if err != nil {
		s.releasePidfile()
		return errors.Wrap(err, ErrCodeStartFailed, "starting operational logger")
	}

	persist, err := OpenPersistence(cfg.DatabasePath)
	if err != nil {
		logger.Close()
		s.releasePidfile()
		return errors.Wrap(err, ErrCodeStartFailed, "opening persistence")
	}

	seed, err := LoadSnapshot(cfg.StateSnapshotPath)
	if err != nil {
		persist.Close()
		logger.Close()
		s.releasePidfile()
		return errors.Wrap(err, ErrCodeStartFailed, "loading state snapshot")
	}

	ctx, cancel := context.WithCancel(context.Background())

	cache := NewStateCache(seed)
	dispatch := NewDispatcher(cfg, cache, 4096, logger)
	ring := NewEventRing(256, dispatch.Handle)
	ring.AdaptStrategy(len(cfg.Roots))

	pool := NewWorkerPool(cfg.WorkerCount, persist, cfg, logger)
	pool.Start(ctx, dispatch.Jobs())

	watchers := make([]*RootWatcher, 0, len(cfg.Roots))
	for _, root := range cfg.Roots {
		w := NewRootWatcher(root, cfg, cache, ring, logger)
		watchers = append(watchers, w)
		go w.Run(ctx)
	}
	go ring.Run()

	retention := NewRetentionManager(persist, cfg, logger)
	go retention.Run()

	s.cfg = cfg
	s.ctx, s.cancel = ctx, cancel
	s.cache, s.ring, s.dispatch, s.pool = cache, ring, dispatch, pool
	s.watchers, s.retention, s.persist, s.logger = watchers, retention, persist, logger
	s.running = true

	logger.LogInfo("supervisor_started", "", map[string]interface{}{"roots": cfg.Roots})
	return nil
}

// Stop gracefully drains the pipeline: stops accepting new watcher
// events, gives in-flight work up to timeout to finish, then cancels
// everything.
func (s *Supervisor) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.New(ErrCodeNotRunning, "supervisor is not running")
	}

	for _, w := range s.watchers {
		w.Stop()
	}
	s.ring.Stop()

	done := make(chan struct{})
	go func() {
		s.pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.LogWarn("shutdown_timeout", "", nil)
	}

	s.cancel()
	s.retention.Stop()

	if snap := s.cache.Snapshot(); len(snap) > 0 {
		_ = SaveSnapshot(s.cfg.StateSnapshotPath, snap)
	}

	s.logger.LogInfo("supervisor_stopped", "", nil)
	s.logger.Close()
	s.persist.Close()
	s.releasePidfile()

	s.running = false
	return nil
}

// Restart stops (if running, within timeout) and starts again with cfg.
// If cfg is structurally identical to the running configuration, Restart
// is a no-op that returns nil immediately.
func (s *Supervisor) Restart(timeout time.Duration, cfg MonitorConfig) error {
	s.mu.Lock()
	same := s.running && s.cfg.Equal(cfg)
	s.mu.Unlock()
	if same {
		return nil
	}

	if s.IsRunning() {
		if err := s.Stop(timeout); err != nil {
			return err
		}
	}
	return s.Start(cfg)
}

// Persistence returns the currently live Persistence instance, or nil if
// the supervisor isn't running. Callers re-fetch on every use rather than
// caching the pointer, since it changes across Stop/Start cycles.
func (s *Supervisor) Persistence() *Persistence {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.persist
}

// IsRunning reports whether the pipeline is currently active.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status reports the live pipeline state for the Control API's Status
// operation.
func (s *Supervisor) Status() StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return StatusReport{Running: false}
	}

	depth, _, dropped := s.ring.Stats()
	return StatusReport{
		Running:              true,
		Roots:                s.cfg.Roots,
		QueueDepth:           depth,
		Workers:              len(s.pool.workers),
		LastScanAt:           time.Unix(0, timecache.CachedTimeNano()),
		EventsDroppedTotal:   dropped,
		AnalysesDroppedTotal: s.pool.DroppedAnalyses(),
	}
}

// RunFullScan clears the shared State Cache and rearms every watcher's
// first-pass suppression, so the next tick silently repopulates the cache
// from disk exactly like a fresh startup scan. That pass emits no
// created, modified or deleted events, including for files that changed
// since the previous pass; change detection resumes with the scan after it.
func (s *Supervisor) RunFullScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.New(ErrCodeNotRunning, "supervisor is not running")
	}
	s.cache.Reset()
	for _, w := range s.watchers {
		w.ResetInitialScan()
	}
	s.logger.LogInfo("full_scan_requested", "", nil)
	return nil
}

func (s *Supervisor) acquirePidfile() error {
	if s.pidfilePath == "" {
		return nil
	}

	f, err := os.OpenFile(s.pidfilePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		if holder, perr := pidFromFile(s.pidfilePath); perr == nil {
			return fmt.Errorf("pidfile %s held by pid %d (another instance running?): %w", s.pidfilePath, holder, err)
		}
		return fmt.Errorf("pidfile %s already exists (another instance running?): %w", s.pidfilePath, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	s.pidfile = f
	return nil
}

func (s *Supervisor) releasePidfile() {
	if s.pidfile == nil {
		return
	}
	s.pidfile.Close()
	os.Remove(s.pidfilePath)
	s.pidfile = nil
}

func pidFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data[:len(data)-1]))
}
