// controlapi.go: Control API facade (C9) — the nine operations named in
// SPEC_FULL.md §4.9/§6, one method per original Django view function
// (file_management/views.py): monitor_status, start_monitor,
// stop_monitor_view, restart_monitor, update_directories, run_scan,
// set_scan_interval, get_statistics, file_change_logs.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vigil

import (
	"time"

	errors "github.com/agilira/go-errors"
)

// ControlAPI adapts a Supervisor and Persistence into the nine plain
// operations an outer transport layer (out of scope per §1) would expose.
type ControlAPI struct {
	sup         *Supervisor
	persist     func() *Persistence
	configPath  string
	stopTimeout time.Duration
}

// NewControlAPI builds a facade over sup. persistAccessor must return the
// currently live Persistence (or nil when the Supervisor isn't running);
// it is a function rather than a stored pointer because Persistence is
// re-opened on every Start/Restart.
func NewControlAPI(sup *Supervisor, configPath string, persistAccessor func() *Persistence) *ControlAPI {
	return &ControlAPI{sup: sup, persist: persistAccessor, configPath: configPath, stopTimeout: 5 * time.Second}
}

// Status mirrors monitor_status.
func (c *ControlAPI) Status() StatusReport {
	return c.sup.Status()
}

// Start mirrors start_monitor.
func (c *ControlAPI) Start(cfg MonitorConfig) error {
	return c.sup.Start(cfg)
}

// Stop mirrors stop_monitor_view.
func (c *ControlAPI) Stop() error {
	return c.sup.Stop(c.stopTimeout)
}

// Restart mirrors restart_monitor.
func (c *ControlAPI) Restart(cfg MonitorConfig) error {
	return c.sup.Restart(c.stopTimeout, cfg)
}

// UpdateDirectories mirrors update_directories: replaces the configured
// roots and restarts the pipeline so the new roots take effect.
func (c *ControlAPI) UpdateDirectories(roots []string) error {
	if !c.sup.IsRunning() {
		return errors.New(ErrCodeNotRunning, "supervisor is not running")
	}

	c.sup.mu.Lock()
	cfg := c.sup.cfg
	c.sup.mu.Unlock()

	cfg.Roots = roots
	if err := SaveConfig(c.configPath, cfg); err != nil {
		return err
	}
	return c.sup.Restart(c.stopTimeout, cfg)
}

// RunScan mirrors run_scan.
func (c *ControlAPI) RunScan() error {
	return c.sup.RunFullScan()
}

// SetScanInterval mirrors set_scan_interval: updates the persisted config
// and restarts so watchers pick up the new ticker interval.
func (c *ControlAPI) SetScanInterval(interval time.Duration) error {
	if !c.sup.IsRunning() {
		return errors.New(ErrCodeNotRunning, "supervisor is not running")
	}

	c.sup.mu.Lock()
	cfg := c.sup.cfg
	c.sup.mu.Unlock()

	cfg.ScanInterval = interval
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := SaveConfig(c.configPath, cfg); err != nil {
		return err
	}
	return c.sup.Restart(c.stopTimeout, cfg)
}

// QueryLogs mirrors file_change_logs: returns up to limit log entries,
// optionally filtered by minRisk ("" for no filter).
func (c *ControlAPI) QueryLogs(limit int, minRisk string) ([]LogEntry, error) {
	p := c.persist()
	if p == nil {
		return nil, errors.New(ErrCodeNotRunning, "supervisor is not running")
	}
	return p.QueryLogs(limit, minRisk)
}

// Statistics mirrors get_statistics: per-risk-level counts.
func (c *ControlAPI) Statistics() (map[string]int64, error) {
	p := c.persist()
	if p == nil {
		return nil, errors.New(ErrCodeNotRunning, "supervisor is not running")
	}
	return p.CountByRisk()
}
