// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/loganrossus/strongdb/pkg/access"
	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/health"
	"github.com/loganrossus/strongdb/pkg/routing"
	"github.com/loganrossus/strongdb/pkg/store"
)

// Transition listing bounds.
const (
	DefaultTransitionLimit = 100
	MaxTransitionLimit     = 1000
)

// RecordProvider is the read side of the availability cache.
type RecordProvider interface {
	Records() []health.Record
	IsAvailable(id endpoint.Identity) bool
	LastRefresh() time.Time
	Sweeps() int64
}

// LatencySource reports smoothed probe latency per endpoint.
type LatencySource interface {
	Snapshot() []health.LatencyStats
}

// HealthReporter performs a live check of every endpoint.
type HealthReporter interface {
	HealthReport(ctx context.Context) routing.HealthReport
}

// RouteExecutor runs a function against a routed session.
type RouteExecutor interface {
	Do(ctx context.Context, intent routing.Intent, fn access.Func) error
}

// HandlersConfig wires the handlers to the running router.
type HandlersConfig struct {
	Records  RecordProvider
	Reporter HealthReporter
	Executor RouteExecutor

	// Journal is optional; transition endpoints return 404 without it.
	Journal store.Journal
	Latency LatencySource

	Version   string
	StartTime time.Time
	Logger    *slog.Logger
}

// Handlers contains all API endpoint handlers.
type Handlers struct {
	records  RecordProvider
	reporter HealthReporter
	executor RouteExecutor
	journal  store.Journal
	latency  LatencySource
	version  string
	started  time.Time
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg HandlersConfig) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "unknown"
	}
	return &Handlers{
		records:  cfg.Records,
		reporter: cfg.Reporter,
		executor: cfg.Executor,
		journal:  cfg.Journal,
		latency:  cfg.Latency,
		version:  version,
		started:  cfg.StartTime,
		logger:   logger,
	}
}

// Endpoints handles GET /api/v1/endpoints. It reports the cached verdicts
// and never probes.
func (h *Handlers) Endpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	records := h.records.Records()
	if records == nil {
		records = []health.Record{}
	}
	resp := EndpointsResponse{
		Endpoints:   records,
		Sweeps:      h.records.Sweeps(),
		GeneratedAt: time.Now().UTC(),
	}
	if last := h.records.LastRefresh(); !last.IsZero() {
		resp.LastRefresh = &last
	}
	if h.latency != nil {
		resp.Latency = h.latency.Snapshot()
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthDatabases handles GET /api/v1/health/databases. Every endpoint is
// checked live; the response is 503 unless all of them are healthy.
func (h *Handlers) HealthDatabases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report := h.reporter.HealthReport(r.Context())

	status := http.StatusOK
	if report.Status != routing.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, DatabasesHealthResponse{HealthReport: report, Version: h.version})
}

// Route handles GET /api/v1/route?intent=read|write. It acquires a session
// for the intent, pings it and reports which endpoint served.
func (h *Handlers) Route(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := r.URL.Query().Get("intent")
	if raw == "" {
		raw = routing.IntentRead.String()
	}
	intent, err := routing.ParseIntent(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp RouteResponse
	err = h.executor.Do(r.Context(), intent, func(ctx context.Context, s *routing.Session) error {
		start := time.Now()
		if err := s.Conn().Ping(ctx); err != nil {
			return access.Transient(err)
		}
		resp = RouteResponse{
			Intent:    intent.String(),
			Endpoint:  s.Endpoint().String(),
			Degraded:  s.Degraded(),
			SessionID: s.ID(),
			LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
		}
		return nil
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, routing.ErrDatabaseUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Warn("route probe failed", "intent", intent.String(), "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// Transitions handles GET /api/v1/transitions?limit=N.
func (h *Handlers) Transitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "transition journal disabled")
		return
	}

	limit := DefaultTransitionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxTransitionLimit)
	}

	entries, err := h.journal.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list transitions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read transition journal")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}

	writeJSON(w, http.StatusOK, TransitionsResponse{Transitions: entries, Count: len(entries)})
}

// Version handles GET /api/v1/version
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hostname, _ := os.Hostname()
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   h.version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Hostname:  hostname,
	})
}

// Live handles GET /api/v1/live
func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// If we can handle the request, we're alive
	writeJSON(w, http.StatusOK, LiveResponse{Alive: true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Can't do much here, response already started
		return
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  status,
	})
}
