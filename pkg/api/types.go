// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package api provides the diagnostic HTTP API: cached and live endpoint
// health, routing probes and the availability transition journal.
package api

import (
	"time"

	"github.com/loganrossus/strongdb/pkg/health"
	"github.com/loganrossus/strongdb/pkg/routing"
	"github.com/loganrossus/strongdb/pkg/store"
)

// EndpointsResponse is the response for GET /api/v1/endpoints.
type EndpointsResponse struct {
	Endpoints   []health.Record       `json:"endpoints"`
	Latency     []health.LatencyStats `json:"latency,omitempty"`
	LastRefresh *time.Time            `json:"last_refresh,omitempty"`
	Sweeps      int64                 `json:"sweeps"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// DatabasesHealthResponse is the response for GET /api/v1/health/databases.
type DatabasesHealthResponse struct {
	routing.HealthReport
	Version string `json:"version"`
}

// RouteResponse is the response for GET /api/v1/route.
type RouteResponse struct {
	Intent    string  `json:"intent"`
	Endpoint  string  `json:"endpoint"`
	Degraded  bool    `json:"degraded"`
	SessionID string  `json:"session_id"`
	LatencyMs float64 `json:"latency_ms"`
}

// TransitionsResponse is the response for GET /api/v1/transitions.
type TransitionsResponse struct {
	Transitions []store.Entry `json:"transitions"`
	Count       int           `json:"count"`
}

// VersionResponse is the response for GET /api/v1/version.
type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Hostname  string `json:"hostname,omitempty"`
}

// LiveResponse is the response for GET /api/v1/live.
type LiveResponse struct {
	Alive bool `json:"alive"`
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
