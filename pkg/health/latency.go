// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package health

import (
	"sort"
	"sync"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
)

// DefaultLatencyAlpha weights the newest sample in the moving average.
const DefaultLatencyAlpha = 0.3

// LatencyStats summarizes the probe latency of one endpoint.
type LatencyStats struct {
	Endpoint     endpoint.Identity `json:"endpoint"`
	EWMAMs       float64           `json:"ewma_ms"`
	MinMs        float64           `json:"min_ms"`
	MaxMs        float64           `json:"max_ms"`
	Samples      uint64            `json:"samples"`
	LastObserved time.Time         `json:"last_observed"`
}

type latencyEntry struct {
	ewma, min, max time.Duration
	samples        uint64
	last           time.Time
}

// LatencyTracker keeps an exponentially weighted moving average of
// successful probe latencies per endpoint. Failed probes are not recorded:
// their latency is usually the timeout.
type LatencyTracker struct {
	mu      sync.RWMutex
	alpha   float64
	entries map[endpoint.Identity]*latencyEntry
}

// NewLatencyTracker creates a tracker. An alpha outside (0, 1] uses
// DefaultLatencyAlpha.
func NewLatencyTracker(alpha float64) *LatencyTracker {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultLatencyAlpha
	}
	return &LatencyTracker{
		alpha:   alpha,
		entries: make(map[endpoint.Identity]*latencyEntry),
	}
}

// Observe records one latency sample for id.
func (t *LatencyTracker) Observe(id endpoint.Identity, rtt time.Duration, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		t.entries[id] = &latencyEntry{ewma: rtt, min: rtt, max: rtt, samples: 1, last: at}
		return
	}

	e.ewma = time.Duration(t.alpha*float64(rtt) + (1-t.alpha)*float64(e.ewma))
	e.min = min(e.min, rtt)
	e.max = max(e.max, rtt)
	e.samples++
	e.last = at
}

// Get returns the stats for id.
func (t *LatencyTracker) Get(id endpoint.Identity) (LatencyStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	if !ok {
		return LatencyStats{}, false
	}
	return e.stats(id), true
}

// Snapshot returns the stats of every observed endpoint, primary first,
// then standby, then replicas in order.
func (t *LatencyTracker) Snapshot() []LatencyStats {
	t.mu.RLock()
	out := make([]LatencyStats, 0, len(t.entries))
	for id, e := range t.entries {
		out = append(out, e.stats(id))
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Endpoint, out[j].Endpoint
		if a.Role() != b.Role() {
			return a.Role() < b.Role()
		}
		return a.Index() < b.Index()
	})
	return out
}

func (e *latencyEntry) stats(id endpoint.Identity) LatencyStats {
	return LatencyStats{
		Endpoint:     id,
		EWMAMs:       ms(e.ewma),
		MinMs:        ms(e.min),
		MaxMs:        ms(e.max),
		Samples:      e.samples,
		LastObserved: e.last,
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
