// workerpool.go: bounded analysis worker pool (§5) consuming Dispatcher
// jobs, keyed by path so events for the same file are never reordered
// relative to each other.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"context"
	"hash/fnv"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerPool routes AnalysisJobs to a fixed number of keyed worker
// goroutines: jobs for the same path always land on the same worker, so
// per-path ordering (§5) falls out of the routing rather than needing a
// separate sequencing layer.
type WorkerPool struct {
	workers []chan AnalysisJob
	persist *Persistence
	cfg     MonitorConfig
	logger  *AuditLogger

	dropped int64

	wg sync.WaitGroup
}

// NewWorkerPool creates a pool of size workers (defaulting to
// min(8, GOMAXPROCS) when size <= 0, per §5).
func NewWorkerPool(size int, persist *Persistence, cfg MonitorConfig, logger *AuditLogger) *WorkerPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
		if size > 8 {
			size = 8
		}
		if size < 1 {
			size = 1
		}
	}

	wp := &WorkerPool{
		workers: make([]chan AnalysisJob, size),
		persist: persist,
		cfg:     cfg,
		logger:  logger,
	}
	for i := range wp.workers {
		wp.workers[i] = make(chan AnalysisJob, 64)
	}
	return wp
}

// Start launches one goroutine per worker channel and one router
// goroutine draining jobs from dispatcher into the keyed channels.
func (wp *WorkerPool) Start(ctx context.Context, jobs <-chan AnalysisJob) {
	for i := range wp.workers {
		wp.wg.Add(1)
		go wp.runWorker(ctx, wp.workers[i])
	}

	wp.wg.Add(1)
	go wp.route(ctx, jobs)
}

func (wp *WorkerPool) route(ctx context.Context, jobs <-chan AnalysisJob) {
	defer wp.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			idx := wp.keyFor(job.Path)
			select {
			case wp.workers[idx] <- job:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (wp *WorkerPool) keyFor(path string) int {
	h := fnv.New32a()
	h.Write([]byte(path))
	return int(h.Sum32()) % len(wp.workers)
}

func (wp *WorkerPool) runWorker(ctx context.Context, in chan AnalysisJob) {
	defer wp.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-in:
			if !ok {
				return
			}
			wp.process(job)
		}
	}
}

func (wp *WorkerPool) process(job AnalysisJob) {
	entry := LogEntry{
		Path:      job.Path,
		Root:      job.Root,
		Kind:      job.Kind.String(),
		DedupKey:  job.DedupKey,
		Timestamp: job.ObservedAt,
		FileSize:  job.Size,
	}

	logID, err := wp.persist.InsertLog(entry)
	if err != nil {
		// DedupViolation is swallowed per §7; any other PersistenceIO
		// gets one retry with jitter before the job is dropped.
		logID, err = wp.retryInsertLog(&entry)
		if err != nil {
			wp.dropJob("log_insert_failed", job.Path, err)
			return
		}
	}

	if job.Kind == EventDeleted {
		return
	}

	verdict, err := Analyze(job.Path, AnalyzeOptions{MaxFileSizeBytes: wp.cfg.MaxFileSizeBytes})
	if err != nil {
		if wp.logger != nil {
			wp.logger.LogWarn("analysis_failed", job.Path, map[string]interface{}{"error": err.Error()})
		}
		return
	}

	analysisID, err := wp.persist.UpsertAnalysis(job.Path, verdict)
	if err != nil {
		wp.dropJob("analysis_persist_failed", job.Path, err)
		return
	}
	if err := wp.persist.LinkAnalysis(logID, analysisID); err != nil {
		wp.dropJob("analysis_link_failed", job.Path, err)
		return
	}

	if verdict.RiskLevel == RiskDangerous || verdict.RiskLevel == RiskSuspicious {
		if wp.logger != nil {
			wp.logger.LogSecurity("suspicious_file", job.Path, map[string]interface{}{
				"risk_level": verdict.RiskLevel,
				"score":      verdict.Score,
			})
		}
	}
}

// dropJob records a permanently failed job: it increments the
// dropped-analyses counter surfaced by DroppedAnalyses and logs a warning,
// per §7's "drop the job and increment a dropped-analyses counter".
func (wp *WorkerPool) dropJob(event, path string, cause error) {
	atomic.AddInt64(&wp.dropped, 1)
	if wp.logger != nil {
		wp.logger.LogWarn(event, path, map[string]interface{}{"error": cause.Error()})
	}
}

// DroppedAnalyses returns the number of jobs dropped so far after
// exhausting their retry budget against persistence.
func (wp *WorkerPool) DroppedAnalyses() int64 {
	return atomic.LoadInt64(&wp.dropped)
}

func (wp *WorkerPool) retryInsertLog(entry *LogEntry) (int64, error) {
	time.Sleep(jitter(50 * time.Millisecond))
	return wp.persist.InsertLog(*entry)
}

func jitter(base time.Duration) time.Duration {
	return base + time.Duration(time.Now().UnixNano()%int64(base/2))
}

// Stop waits for all worker and router goroutines to exit; the caller is
// responsible for cancelling the shared context first.
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
}
