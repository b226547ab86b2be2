// ring.go: MPSC ring buffer for the Dispatcher's ingress queue, adapted
// from argus's BoreasLite (boreaslite.go).
//
// BoreasLite packs each event into a fixed [110]byte array
// sized for the handful of short config-file paths a single process
// watches. vigil's roots are whole directory trees with unbounded path
// lengths, so the fixed array is generalized to a *RawEvent slot — same
// atomic writer/reader-cursor design and adaptive batch sizing, just a
// pointer-sized payload instead of an inline byte array.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"runtime"
	"sync/atomic"
	"time"
)

// ingressStrategy mirrors BoreasLite's OptimizationStrategy: batch size
// adapts to how many watcher goroutines are feeding the ring.
type ingressStrategy int

const (
	strategyAuto ingressStrategy = iota
	strategySingleEvent
	strategySmallBatch
	strategyLargeBatch
)

// EventRing is an MPSC ring buffer: any number of Root Watcher goroutines
// write RawEvents, the single Dispatcher goroutine consumes them.
type EventRing struct {
	buffer   []*RawEvent
	capacity int64
	mask     int64

	writerCursor atomic.Int64
	readerCursor atomic.Int64
	_            [48]byte

	availableBuffer []atomic.Int64

	processor func(*RawEvent)

	strategy  ingressStrategy
	batchSize int64

	running atomic.Bool
	processed atomic.Int64
	dropped   atomic.Int64
}

// NewEventRing creates a ring of the given capacity (rounded up to the
// next power of 2) that invokes processor for each event it delivers.
func NewEventRing(capacity int64, processor func(*RawEvent)) *EventRing {
	if capacity <= 0 {
		capacity = 256
	}
	capacity = nextPowerOfTwo(capacity)

	r := &EventRing{
		buffer:          make([]*RawEvent, capacity),
		capacity:        capacity,
		mask:            capacity - 1,
		availableBuffer: make([]atomic.Int64, capacity),
		processor:       processor,
		strategy:        strategyAuto,
		batchSize:       4,
	}
	for i := range r.availableBuffer {
		r.availableBuffer[i].Store(-1)
	}
	r.running.Store(true)
	return r
}

func nextPowerOfTwo(n int64) int64 {
	p := int64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// AdaptStrategy adjusts batch size based on how many watcher roots are
// currently producing, the same heuristic as BoreasLite's AdaptStrategy.
func (r *EventRing) AdaptStrategy(rootCount int) {
	switch {
	case rootCount <= 3:
		r.batchSize = 1
	case rootCount <= 50:
		r.batchSize = 4
	default:
		r.batchSize = 16
	}
}

// Write enqueues event, returning false if the ring is full or stopped; a
// rejected event is counted as dropped and discarded. No shedding policy
// applies at the ring: neither the ring nor its caller (RootWatcher.emit,
// which only logs the overflow) drops an older modified event to make
// room. The Dispatcher's shedOldest works on the job queue, not here.
func (r *EventRing) Write(event *RawEvent) bool {
	if !r.running.Load() {
		r.dropped.Add(1)
		return false
	}

	sequence := r.writerCursor.Add(1) - 1
	if sequence >= r.readerCursor.Load()+r.capacity {
		r.writerCursor.Add(-1)
		r.dropped.Add(1)
		return false
	}

	r.buffer[sequence&r.mask] = event
	r.availableBuffer[sequence&r.mask].Store(sequence)
	return true
}

// ProcessBatch drains whatever is currently available, returning how many
// events were delivered to the processor.
func (r *EventRing) ProcessBatch() int {
	current := r.readerCursor.Load()
	writerPos := r.writerCursor.Load()
	if current >= writerPos {
		return 0
	}

	maxProcess := min64(r.batchSize, writerPos-current)
	available := current - 1
	for seq := current; seq < current+maxProcess; seq++ {
		if r.availableBuffer[seq&r.mask].Load() == seq {
			available = seq
		} else {
			break
		}
	}
	if available < current {
		return 0
	}

	processed := int(available - current + 1)
	for seq := current; seq <= available; seq++ {
		idx := seq & r.mask
		r.processor(r.buffer[idx])
		r.buffer[idx] = nil
		r.availableBuffer[idx].Store(-1)
	}

	r.readerCursor.Store(available + 1)
	r.processed.Add(int64(processed))
	return processed
}

// Run is the consumer loop: spin briefly, then yield, then sleep, exactly
// BoreasLite's progressive backoff but with a single strategy since
// vigil's dispatcher has no latency-critical single-event fast path to
// specialize for.
func (r *EventRing) Run() {
	spins := 0
	for r.running.Load() {
		if r.ProcessBatch() > 0 {
			spins = 0
			continue
		}
		spins++
		switch {
		case spins < 2000:
			continue
		case spins < 8000:
			if spins&7 == 0 {
				runtime.Gosched()
			}
		default:
			time.Sleep(50 * time.Microsecond)
			spins = 0
		}
	}

	drainAttempts := 0
	for r.ProcessBatch() > 0 && drainAttempts < 1000 {
		drainAttempts++
	}
}

// Stop halts the consumer loop after its current batch.
func (r *EventRing) Stop() {
	r.running.Store(false)
}

// Stats reports ring occupancy and throughput counters, used by
// Supervisor.Status's queue_depth and events_dropped_total.
func (r *EventRing) Stats() (depth, processed, dropped int64) {
	writerPos := r.writerCursor.Load()
	readerPos := r.readerCursor.Load()
	return writerPos - readerPos, r.processed.Load(), r.dropped.Load()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
