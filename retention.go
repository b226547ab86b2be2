// retention.go: Retention Manager (C7) — periodic and emergency cleanup.
//
// Grounded on file_management/log_management/auto_cleanup.py's
// LogCleanupManager.perform_cleanup/emergency_cleanup: age pass then
// count pass, each in its own transaction (no single transaction spans
// both), plus an emergency mode at
// 1 day / 500 records triggered manually or automatically at 10x
// max_records.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"time"

	timecache "github.com/agilira/go-timecache"
)

const (
	emergencyDaysToKeep = 1
	emergencyMaxRecords = 500
	emergencyMultiplier = 10
)

// RetentionManager runs periodic cleanup against a Persistence instance
// on a ticker, and can be asked to run an out-of-band emergency pass.
type RetentionManager struct {
	persist *Persistence
	cfg     MonitorConfig
	logger  *AuditLogger

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewRetentionManager builds a manager for persist driven by cfg's
// cleanup_interval/days_to_keep/max_records.
func NewRetentionManager(persist *Persistence, cfg MonitorConfig, logger *AuditLogger) *RetentionManager {
	return &RetentionManager{
		persist:   persist,
		cfg:       cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the periodic cleanup loop; it exits when Stop is called.
func (r *RetentionManager) Run() {
	defer close(r.stoppedCh)

	if !r.cfg.AutoCleanupEnabled {
		<-r.stopCh
		return
	}

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runCycle()
		}
	}
}

// Stop halts the cleanup loop and waits for the in-flight cycle, if any,
// to finish.
func (r *RetentionManager) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// runCycle checks both analysis_rows and log_entries against the
// emergency threshold: log_entries always gets a row per observed event
// while analysis can legitimately be skipped (deletions, oversized files,
// timeouts), so it can outgrow analysis_rows on its own and must be
// watched independently.
func (r *RetentionManager) runCycle() {
	if r.cfg.MaxRecords > 0 {
		threshold := int64(r.cfg.MaxRecords * emergencyMultiplier)

		if counts, err := r.persist.CountByRisk(); err == nil {
			total := int64(0)
			for _, c := range counts {
				total += c
			}
			if total > threshold {
				r.EmergencyCleanup()
				return
			}
		}

		if logCount, err := r.persist.CountLogEntries(); err == nil && logCount > threshold {
			r.EmergencyCleanup()
			return
		}
	}
	r.PerformCleanup()
}

// PerformCleanup is the normal-mode pass: age cutoff first, then count
// cutoff, then reclaim.
func (r *RetentionManager) PerformCleanup() {
	now := time.Unix(0, timecache.CachedTimeNano())
	cutoff := now.AddDate(0, 0, -r.cfg.DaysToKeep)

	deletedByAge, err := r.persist.DeleteOlderThan(cutoff)
	if err != nil {
		r.logWarn("retention_age_pass_failed", err)
		return
	}

	deletedByCount, err := r.persist.DeleteBeyondRank(r.cfg.MaxRecords)
	if err != nil {
		r.logWarn("retention_count_pass_failed", err)
		return
	}

	if deletedByAge+deletedByCount > 0 {
		if err := r.persist.Reclaim(); err != nil {
			r.logWarn("retention_reclaim_failed", err)
		}
	}

	if r.logger != nil {
		r.logger.LogInfo("retention_cycle", "", map[string]interface{}{
			"deleted_by_age":   deletedByAge,
			"deleted_by_count": deletedByCount,
		})
	}
}

// EmergencyCleanup applies the tighter 1-day/500-record thresholds,
// triggered manually by an operator or automatically when either table
// exceeds 10x max_records.
func (r *RetentionManager) EmergencyCleanup() {
	now := time.Unix(0, timecache.CachedTimeNano())
	cutoff := now.AddDate(0, 0, -emergencyDaysToKeep)

	deletedByAge, _ := r.persist.DeleteOlderThan(cutoff)
	deletedByCount, _ := r.persist.DeleteBeyondRank(emergencyMaxRecords)
	r.persist.Reclaim()

	if r.logger != nil {
		r.logger.LogWarn("emergency_cleanup", "", map[string]interface{}{
			"deleted_by_age":   deletedByAge,
			"deleted_by_count": deletedByCount,
		})
	}
}

func (r *RetentionManager) logWarn(event string, err error) {
	if r.logger != nil {
		r.logger.LogWarn(event, "", map[string]interface{}{"error": err.Error()})
	}
}
