// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// OpenGSLB is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPLv3)
//    Free forever for open-source and internal use. You may copy, modify,
//    and distribute this software under the terms of the AGPLv3.
//    → https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Commercial licenses are available for proprietary integration,
//    closed-source appliances, SaaS offerings, and dedicated support.
//    Contact: licensing@opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package metrics provides Prometheus metrics for strongdb observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all strongdb metrics.
const namespace = "strongdb"

// Probe metrics
var (
	// ProbeResultsTotal counts probe outcomes per endpoint.
	ProbeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Total number of availability probe results by endpoint and outcome",
		},
		[]string{"endpoint", "result"},
	)

	// ProbeDuration measures probe latency.
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Availability probe duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)
)

// Availability cache metrics
var (
	// CacheRefreshesTotal counts completed probe sweeps.
	CacheRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_refreshes_total",
			Help:      "Total number of availability cache probe sweeps",
		},
	)

	// CacheRefreshDuration measures how long a full sweep took.
	CacheRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_refresh_duration_seconds",
			Help:      "Duration of an availability cache probe sweep in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// EndpointAvailable reports the cached availability of each endpoint.
	EndpointAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_available",
			Help:      "1 if the endpoint is cached as available, 0 otherwise",
		},
		[]string{"endpoint"},
	)

	// EndpointDowngradesTotal counts immediate downgrades after a failed use.
	EndpointDowngradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_downgrades_total",
			Help:      "Total number of endpoints marked unavailable outside a probe sweep",
		},
		[]string{"endpoint"},
	)
)

// Routing metrics
var (
	// RoutingDecisionsTotal counts sessions handed out.
	RoutingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total number of sessions acquired by intent, endpoint and degraded flag",
		},
		[]string{"intent", "endpoint", "degraded"},
	)

	// SessionAcquireFailuresTotal counts failed attempts to open a session on
	// a candidate endpoint.
	SessionAcquireFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_acquire_failures_total",
			Help:      "Total number of failed session attempts by intent and endpoint",
		},
		[]string{"intent", "endpoint"},
	)

	// DatabaseUnavailableTotal counts acquisitions that found no usable endpoint.
	DatabaseUnavailableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_unavailable_total",
			Help:      "Total number of acquisitions that exhausted every candidate endpoint",
		},
		[]string{"intent"},
	)

	// SessionRetriesTotal counts unit-of-work retries after transient errors.
	SessionRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_retries_total",
			Help:      "Total number of retried units of work by intent",
		},
		[]string{"intent"},
	)
)

// Application metrics
var (
	// AppInfo provides build information as labels.
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "app_info",
			Help:      "strongdb application information",
		},
		[]string{"version"},
	)

	// ConfigLoadTimestamp tracks when config was last loaded.
	ConfigLoadTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "config_load_timestamp_seconds",
			Help:      "Unix timestamp of last configuration load",
		},
	)

	// ConfiguredReplicas tracks the number of configured read replicas.
	ConfiguredReplicas = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "configured_replicas",
			Help:      "Number of configured read replicas",
		},
	)

	// ConfigReloadsTotal counts configuration reload attempts.
	ConfigReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total number of configuration reload attempts",
		},
		[]string{"result"}, // "success" or "failure"
	)

	// JournalAppendsTotal counts transition journal writes.
	JournalAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_appends_total",
			Help:      "Total number of availability transitions written to the journal",
		},
		[]string{"result"},
	)
)

// RecordProbeResult records a probe outcome ("healthy" or "unhealthy").
func RecordProbeResult(endpoint, result string) {
	ProbeResultsTotal.WithLabelValues(endpoint, result).Inc()
}

// RecordProbeDuration records probe latency.
func RecordProbeDuration(endpoint string, durationSeconds float64) {
	ProbeDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordRefresh records a completed probe sweep.
func RecordRefresh(durationSeconds float64) {
	CacheRefreshesTotal.Inc()
	CacheRefreshDuration.Observe(durationSeconds)
}

// SetEndpointAvailable sets the availability gauge for an endpoint.
func SetEndpointAvailable(endpoint string, available bool) {
	EndpointAvailable.WithLabelValues(endpoint).Set(boolToFloat(available))
}

// RecordDowngrade records an immediate downgrade of an endpoint.
func RecordDowngrade(endpoint string) {
	EndpointDowngradesTotal.WithLabelValues(endpoint).Inc()
}

// RecordRoutingDecision records a session handed out on endpoint.
func RecordRoutingDecision(intent, endpoint string, degraded bool) {
	d := "false"
	if degraded {
		d = "true"
	}
	RoutingDecisionsTotal.WithLabelValues(intent, endpoint, d).Inc()
}

// RecordAcquireFailure records a failed session attempt on endpoint.
func RecordAcquireFailure(intent, endpoint string) {
	SessionAcquireFailuresTotal.WithLabelValues(intent, endpoint).Inc()
}

// RecordDatabaseUnavailable records an exhausted acquisition.
func RecordDatabaseUnavailable(intent string) {
	DatabaseUnavailableTotal.WithLabelValues(intent).Inc()
}

// RecordSessionRetry records a retried unit of work.
func RecordSessionRetry(intent string) {
	SessionRetriesTotal.WithLabelValues(intent).Inc()
}

// RecordJournalAppend records a transition journal write.
func RecordJournalAppend(success bool) {
	JournalAppendsTotal.WithLabelValues(resultLabel(success)).Inc()
}

// SetAppInfo sets the application info metric.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version).Set(1)
}

// SetConfigMetrics sets configuration-related metrics.
func SetConfigMetrics(replicas int, loadTime float64) {
	ConfiguredReplicas.Set(float64(replicas))
	ConfigLoadTimestamp.Set(loadTime)
}

// RecordReload records a configuration reload attempt.
func RecordReload(success bool) {
	ConfigReloadsTotal.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
