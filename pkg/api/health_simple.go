// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package api

import (
	"net/http"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
)

// Simple health statuses, derived from the cached write chain.
const (
	SimpleHealthy   = "healthy"
	SimpleDegraded  = "degraded"
	SimpleUnhealthy = "unhealthy"
)

// SimpleHealthResponse is the response for GET /api/health.
type SimpleHealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    int64     `json:"uptime_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleHealth handles GET /api/health. It reads the cache only and always
// answers 200 while the process can serve requests.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var uptime int64
	if !h.started.IsZero() {
		uptime = int64(time.Since(h.started).Seconds())
	}

	writeJSON(w, http.StatusOK, SimpleHealthResponse{
		Status:    h.simpleStatus(),
		Version:   h.version,
		Uptime:    uptime,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handlers) simpleStatus() string {
	switch {
	case h.records.IsAvailable(endpoint.Primary):
		return SimpleHealthy
	case h.records.IsAvailable(endpoint.Standby):
		return SimpleDegraded
	default:
		return SimpleUnhealthy
	}
}
