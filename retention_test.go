// retention_test.go
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"testing"
	"time"
)

func TestPerformCleanupDeletesByAgeAndCount(t *testing.T) {
	p := openTestPersistence(t)
	cfg := DefaultConfig().WithDefaults()
	cfg.DaysToKeep = 1
	cfg.MaxRecords = 2

	old := time.Now().Add(-72 * time.Hour)
	recent := time.Now()

	p.InsertLog(LogEntry{Path: "/old", Root: "/", Kind: "created", DedupKey: "old", Timestamp: old})
	for i := 0; i < 3; i++ {
		p.InsertLog(LogEntry{
			Path: "/new", Root: "/", Kind: "created",
			DedupKey:  time.Duration(i).String(),
			Timestamp: recent.Add(time.Duration(i) * time.Minute),
		})
	}

	rm := NewRetentionManager(p, cfg, nil)
	rm.PerformCleanup()

	entries, err := p.QueryLogs(100, "")
	if err != nil {
		t.Fatalf("QueryLogs failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 rows to survive age+count cleanup, got %d", len(entries))
	}
}

func TestEmergencyCleanupUsesTighterThresholds(t *testing.T) {
	p := openTestPersistence(t)
	cfg := DefaultConfig().WithDefaults()

	for i := 0; i < 10; i++ {
		p.InsertLog(LogEntry{
			Path: "/f", Root: "/", Kind: "created",
			DedupKey:  time.Duration(i).String(),
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	rm := NewRetentionManager(p, cfg, nil)
	rm.EmergencyCleanup()

	entries, err := p.QueryLogs(100, "")
	if err != nil {
		t.Fatalf("QueryLogs failed: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("expected all 10 recent rows to survive emergency cleanup (under the 500 cap), got %d", len(entries))
	}
}

func TestRunCycleTriggersEmergencyFromLogEntriesAlone(t *testing.T) {
	p := openTestPersistence(t)
	cfg := DefaultConfig().WithDefaults()
	cfg.MaxRecords = 1
	cfg.DaysToKeep = 365

	// None of these are ever analyzed, so analysis_rows stays empty while
	// log_entries grows past MaxRecords*emergencyMultiplier on its own.
	for i := 0; i < 15; i++ {
		p.InsertLog(LogEntry{
			Path: "/f", Root: "/", Kind: "deleted",
			DedupKey:  time.Duration(i).String(),
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	counts, err := p.CountByRisk()
	if err != nil {
		t.Fatalf("CountByRisk failed: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected no analysis rows, got %+v", counts)
	}

	rm := NewRetentionManager(p, cfg, nil)
	rm.runCycle()

	// If runCycle correctly escalated to EmergencyCleanup, all 15 recent
	// rows survive (well under the 500-row emergency cap). If it missed
	// the log_entries growth and fell through to PerformCleanup instead,
	// cfg.MaxRecords=1 would have trimmed this down to a single row.
	logCount, err := p.CountLogEntries()
	if err != nil {
		t.Fatalf("CountLogEntries failed: %v", err)
	}
	if logCount != 15 {
		t.Errorf("expected runCycle to escalate to EmergencyCleanup from log_entries growth alone, got %d surviving rows", logCount)
	}
}

func TestRetentionManagerRunNoopWhenAutoCleanupDisabled(t *testing.T) {
	p := openTestPersistence(t)
	cfg := DefaultConfig().WithDefaults()
	cfg.AutoCleanupEnabled = false

	rm := NewRetentionManager(p, cfg, nil)
	done := make(chan struct{})
	go func() {
		rm.Run()
		close(done)
	}()

	rm.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop with AutoCleanupEnabled=false")
	}
}
