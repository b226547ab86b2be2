// auditlog.go: leveled, tamper-evident structured operational logging,
// adapted from audit.go's AuditLogger/AuditEvent/AuditLevel.
// Fields are repointed from config-change events onto supervisor/watcher/
// retention lifecycle events, per SPEC_FULL.md §2.1.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	timecache "github.com/agilira/go-timecache"
)

// LogLevel is the severity of an operational log line.
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelWarn
	LevelCritical
	LevelSecurity
)

func (l LogLevel) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelCritical:
		return "CRITICAL"
	case LevelSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// LogRecord is one JSON-Lines operational log entry.
type LogRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Event     string                 `json:"event"`
	Component string                 `json:"component"`
	Path      string                 `json:"path,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	ProcessID int                    `json:"process_id"`
	Checksum  string                 `json:"checksum"`
}

// AuditLoggerConfig configures AuditLogger.
type AuditLoggerConfig struct {
	Enabled       bool
	OutputFile    string
	MinLevel      LogLevel
	BufferSize    int
	FlushInterval time.Duration
}

// DefaultAuditLoggerConfig mirrors audit.go's DefaultAuditConfig.
func DefaultAuditLoggerConfig() AuditLoggerConfig {
	return AuditLoggerConfig{
		Enabled:       true,
		OutputFile:    filepath.Join(os.TempDir(), "vigil", "operational.jsonl"),
		MinLevel:      LevelInfo,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger is vigil's structured operational logger: buffered,
// background-flushed, each line carrying a tamper-detection checksum.
type AuditLogger struct {
	config      AuditLoggerConfig
	file        *os.File
	buffer      []LogRecord
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	processID   int
}

// NewAuditLogger creates a logger per cfg. If cfg.Enabled is false, Log
// calls are no-ops.
func NewAuditLogger(cfg AuditLoggerConfig) (*AuditLogger, error) {
	al := &AuditLogger{
		config:    cfg,
		buffer:    make([]LogRecord, 0, cfg.BufferSize),
		stopCh:    make(chan struct{}),
		processID: os.Getpid(),
	}

	if cfg.Enabled && cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("opening operational log file: %w", err)
		}
		al.file = f
	}

	if cfg.FlushInterval > 0 {
		al.flushTicker = time.NewTicker(cfg.FlushInterval)
		go al.flushLoop()
	}

	return al, nil
}

func (al *AuditLogger) log(level LogLevel, event, component, path string, context map[string]interface{}) {
	if al == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	record := LogRecord{
		Timestamp: time.Unix(0, timecache.CachedTimeNano()),
		Level:     level,
		Event:     event,
		Component: component,
		Path:      path,
		Context:   context,
		ProcessID: al.processID,
	}
	record.Checksum = al.checksum(record)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, record)
	if len(al.buffer) >= al.config.BufferSize {
		al.flushUnsafe()
	}
	al.bufferMu.Unlock()
}

// LogInfo/LogWarn/LogCritical/LogSecurity are the component-facing
// entry points. They always record component "vigil"; the event's natural
// source (watcher, dispatcher, retention, supervisor) is carried in the
// event name itself to keep the call sites terse, matching audit.go's own
// LogFileWatch/LogSecurityEvent convenience wrappers.
func (al *AuditLogger) LogInfo(event, path string, context map[string]interface{}) {
	al.log(LevelInfo, event, "vigil", path, context)
}

func (al *AuditLogger) LogWarn(event, path string, context map[string]interface{}) {
	al.log(LevelWarn, event, "vigil", path, context)
}

func (al *AuditLogger) LogCritical(event, path string, context map[string]interface{}) {
	al.log(LevelCritical, event, "vigil", path, context)
}

func (al *AuditLogger) LogSecurity(event, path string, context map[string]interface{}) {
	al.log(LevelSecurity, event, "vigil", path, context)
}

// Flush immediately writes all buffered records.
func (al *AuditLogger) Flush() error {
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushUnsafe()
}

// Close stops the flush loop and writes any remaining buffered records.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	close(al.stopCh)
	if al.flushTicker != nil {
		al.flushTicker.Stop()
	}
	if err := al.Flush(); err != nil {
		return err
	}
	if al.file != nil {
		return al.file.Close()
	}
	return nil
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

func (al *AuditLogger) flushUnsafe() error {
	if len(al.buffer) == 0 || al.file == nil {
		return nil
	}
	for _, r := range al.buffer {
		data, err := json.Marshal(r)
		if err != nil {
			continue
		}
		al.file.Write(data)
		al.file.Write([]byte("\n"))
	}
	al.file.Sync()
	al.buffer = al.buffer[:0]
	return nil
}

func (al *AuditLogger) checksum(r LogRecord) string {
	data := fmt.Sprintf("%s:%s:%s:%s", r.Timestamp.Format(time.RFC3339Nano), r.Event, r.Component, r.Path)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}
