// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package routing

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loganrossus/strongdb/pkg/endpoint"
)

// Overall report statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// EndpointReport is the detailed result of checking one endpoint.
type EndpointReport struct {
	Endpoint       endpoint.Identity `json:"endpoint"`
	Healthy        bool              `json:"healthy"`
	ResponseTimeMs float64           `json:"response_time_ms"`
	LastCheck      time.Time         `json:"last_check"`
	Error          string            `json:"error,omitempty"`
	Info           map[string]string `json:"info,omitempty"`
}

// HealthReport is a live check of every endpoint.
type HealthReport struct {
	Status     string           `json:"status"`
	CheckedAt  time.Time        `json:"checked_at"`
	DurationMs float64          `json:"duration_ms"`
	Endpoints  []EndpointReport `json:"endpoints"`
}

// HealthSnapshot probes every endpoint in parallel and returns the verdicts.
// It bypasses the refresh interval and leaves the cache untouched.
func (r *Router) HealthSnapshot(ctx context.Context) map[endpoint.Identity]bool {
	report := r.HealthReport(ctx)

	out := make(map[endpoint.Identity]bool, len(report.Endpoints))
	for _, e := range report.Endpoints {
		out[e.Endpoint] = e.Healthy
	}
	return out
}

// HealthReport probes every endpoint in parallel and returns per-endpoint
// details in topology order. The overall status is healthy only when every
// endpoint is. Like HealthSnapshot it does not touch the cache.
func (r *Router) HealthReport(ctx context.Context) HealthReport {
	start := time.Now()
	descriptors := r.endpoints.All()
	reports := make([]EndpointReport, len(descriptors))

	var g errgroup.Group
	for i, d := range descriptors {
		g.Go(func() error {
			res := r.inspector.Check(ctx, d)
			rep := EndpointReport{
				Endpoint:       d.Identity,
				Healthy:        res.Healthy,
				ResponseTimeMs: float64(res.Latency.Microseconds()) / 1000,
				LastCheck:      res.Timestamp,
				Info:           res.Info,
			}
			if res.Error != nil {
				rep.Error = res.Error.Error()
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()

	status := StatusHealthy
	for _, rep := range reports {
		if !rep.Healthy {
			status = StatusDegraded
			break
		}
	}

	return HealthReport{
		Status:     status,
		CheckedAt:  start,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		Endpoints:  reports,
	}
}
