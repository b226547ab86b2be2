// Package vigil implements a host-resident file-activity security monitor:
// a polling filesystem watcher, a deduplicating dispatcher, a content-based
// security analyzer, and a retained SQLite-backed log of findings.
//
// # Architecture Overview
//
// vigil is built from nine cooperating pieces:
//
//  1. Config Store — loads/saves the JSON MonitorConfig, layered with
//     VIGIL_* environment overrides and CLI flags.
//  2. State Cache — per-path (mtime, size, content hash), snapshotted to
//     disk as YAML so a restart doesn't re-announce every file as new.
//  3. Root Watcher — one per monitored root, walks the tree on a ticker
//     and emits RawEvents.
//  4. Dispatcher — dedup key + content-hash filter + bounded MPSC queue
//     (adapted from BoreasLite) feeding AnalysisJobs to the worker pool.
//  5. Analyzer — a pure function from file bytes to a Verdict: extension
//     risk, regex pattern categories, binary-format checks, no network,
//     no execution.
//  6. Persistence — SQLite log_entries/analysis_rows with WAL mode and
//     schema migrations.
//  7. Retention Manager — periodic and emergency cleanup by age and count.
//  8. Supervisor — process-wide singleton lifecycle.
//  9. Control API facade — Status/Start/Stop/Restart/UpdateDirectories/
//     RunScan/SetScanInterval/QueryLogs/Statistics.
//
// # Quick start
//
//	cfg := vigil.DefaultConfig()
//	cfg.Roots = []string{"/srv/uploads"}
//
//	sup := vigil.NewSupervisor("/var/run/vigil.pid")
//	if err := sup.Start(cfg); err != nil {
//		log.Fatal(err)
//	}
//	defer sup.Stop(5 * time.Second)
//
// # Thread safety
//
// One goroutine per root watcher, one dispatcher goroutine, a bounded
// worker pool, one retention goroutine. All blocking operations honor a
// shared context.Context; the Supervisor never holds its mutex during
// filesystem or database I/O.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package vigil
