package vigil

import "time"

// EventKind identifies what happened to a path between two scan passes.
type EventKind uint8

const (
	EventCreated EventKind = iota
	EventModified
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawEvent is what a Root Watcher emits for a single path on a single scan
// pass. It carries no analysis outcome, only what changed on disk. Renames
// are not coalesced (see the open-question decisions in DESIGN.md): a
// rename surfaces as an independent deleted+created pair.
type RawEvent struct {
	Path       string
	Root       string
	Kind       EventKind
	ModTime    time.Time
	Size       int64
	ObservedAt time.Time
}

// AnalysisJob is what the Dispatcher hands to the worker pool once an
// event has survived deduplication and the content-hash filter.
type AnalysisJob struct {
	Path        string
	Root        string
	Kind        EventKind
	Size        int64
	ModTime     time.Time
	ObservedAt  time.Time
	DedupKey    string
	ContentHash uint64 // fast sampled hash, not SHA-256; Dispatcher.Handle leaves it zero
}
