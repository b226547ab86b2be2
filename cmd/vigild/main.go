// main.go: vigild, the vigil daemon entrypoint.
//
// Flag parsing is done directly with flashflags.FlagSet rather than the
// argus's ConfigManager wrapper (integration.go) — that wrapper also
// pulls in a file-watching config layer this daemon doesn't need; see
// DESIGN.md. Layering is flags > environment > config file > defaults,
// matching integration.go's own documented precedence order.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	flashflags "github.com/agilira/flash-flags"

	vigil "github.com/agilira/vigil"
)

func main() {
	flags := flashflags.New("vigild")
	flags.SetDescription("Host-resident file-activity security monitor")
	flags.SetVersion("1.0.0")

	configPath := flags.String("config", "/etc/vigil/config.json", "path to the JSON config file")
	pidfile := flags.String("pidfile", "/var/run/vigild.pid", "exclusive pidfile path")
	listenAddr := flags.String("listen", "127.0.0.1:8733", "control API HTTP listen address")
	roots := flags.StringSlice("roots", nil, "override: comma-separated roots to monitor")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "vigild: %v\n", err)
		os.Exit(2)
	}

	cfg, err := vigil.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vigild: loading config: %v\n", err)
		os.Exit(1)
	}

	cfg, err = vigil.ApplyEnvOverrides(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vigild: applying environment overrides: %v\n", err)
		os.Exit(1)
	}

	if len(*roots) > 0 {
		cfg.Roots = *roots
	}
	cfg = cfg.WithDefaults()

	sup := vigil.NewSupervisor(*pidfile)
	if err := sup.Start(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "vigild: starting pipeline: %v\n", err)
		os.Exit(1)
	}

	api := vigil.NewControlAPI(sup, *configPath, sup.Persistence)

	server := newControlServer(api)
	httpSrv := &http.Server{Addr: *listenAddr, Handler: server}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "vigild: control API server: %v\n", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)

	if err := sup.Stop(10 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "vigild: stopping pipeline: %v\n", err)
		os.Exit(1)
	}
}

// controlServer is a minimal illustrative HTTP binding over the Control
// API facade; a full route table and auth layer are out of scope (§1/§6).
type controlServer struct {
	mux *http.ServeMux
	api *vigil.ControlAPI
}

func newControlServer(api *vigil.ControlAPI) *controlServer {
	s := &controlServer{mux: http.NewServeMux(), api: api}
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/scan", s.handleScan)
	s.mux.HandleFunc("/logs", s.handleLogs)
	s.mux.HandleFunc("/stats", s.handleStats)
	return s
}

func (s *controlServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *controlServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.api.Status())
}

func (s *controlServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.api.RunScan(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *controlServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := s.api.QueryLogs(limit, r.URL.Query().Get("min_risk"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *controlServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.api.Statistics()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
