// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/metrics"
)

// DefaultProbeTimeout bounds a single probe when no timeout is configured.
const DefaultProbeTimeout = 5 * time.Second

// Prober answers whether an endpoint is reachable right now.
type Prober interface {
	// Probe makes a single bounded connection attempt. It never returns an
	// error; every failure is folded into false.
	Probe(ctx context.Context, d endpoint.Descriptor) bool
}

// ProberFunc is a function adapter for Prober.
type ProberFunc func(ctx context.Context, d endpoint.Descriptor) bool

func (f ProberFunc) Probe(ctx context.Context, d endpoint.Descriptor) bool {
	return f(ctx, d)
}

// CheckProber is a Prober backed by a Checker. Each call runs exactly one
// check under its own timeout.
type CheckProber struct {
	checker Checker
	timeout time.Duration
	logger  *slog.Logger
	latency *LatencyTracker
}

// NewProber creates a Prober that runs checker with the given per-probe timeout.
func NewProber(checker Checker, timeout time.Duration, logger *slog.Logger) *CheckProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckProber{
		checker: checker,
		timeout: timeout,
		logger:  logger,
		latency: NewLatencyTracker(DefaultLatencyAlpha),
	}
}

// Latency returns the tracker fed by successful checks.
func (p *CheckProber) Latency() *LatencyTracker {
	return p.latency
}

// Timeout returns the per-probe timeout.
func (p *CheckProber) Timeout() time.Duration {
	return p.timeout
}

// Probe implements Prober.
func (p *CheckProber) Probe(ctx context.Context, d endpoint.Descriptor) bool {
	return p.Check(ctx, d).Healthy
}

// Check runs one check and returns the detailed result.
func (p *CheckProber) Check(ctx context.Context, d endpoint.Descriptor) (result Result) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Endpoint:  d.Identity,
				Error:     fmt.Errorf("checker panic: %v", r),
				Timestamp: start,
				Latency:   time.Since(start),
			}
		}
		p.record(d, result)
	}()

	result = p.checker.Check(ctx, TargetFor(d, p.timeout))
	result.Endpoint = d.Identity
	return result
}

func (p *CheckProber) record(d endpoint.Descriptor, result Result) {
	outcome := "healthy"
	if !result.Healthy {
		outcome = "unhealthy"
	}
	metrics.RecordProbeResult(d.Identity.String(), outcome)
	metrics.RecordProbeDuration(d.Identity.String(), result.Latency.Seconds())

	if result.Healthy {
		p.latency.Observe(d.Identity, result.Latency, result.Timestamp)
		p.logger.Debug("probe succeeded",
			"endpoint", d.Identity.String(),
			"latency", result.Latency,
		)
		return
	}
	p.logger.Warn("probe failed",
		"endpoint", d.Identity.String(),
		"target", d.Redacted(),
		"reason", result.Error,
		"latency", result.Latency,
	)
}
