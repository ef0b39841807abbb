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

package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/metrics"
)

// DefaultRefreshInterval is the TTL of the availability cache.
const DefaultRefreshInterval = 30 * time.Second

// CacheConfig configures the availability cache.
type CacheConfig struct {
	// RefreshInterval is the minimum time between probe sweeps.
	RefreshInterval time.Duration

	Logger *slog.Logger
}

// Cache holds the last known availability of every configured endpoint.
// Records are replaced in bulk by probe sweeps, at most once per refresh
// interval, and individually by MarkUnavailable. Unknown endpoints are
// reported unavailable.
type Cache struct {
	endpoints *endpoint.Set
	prober    Prober
	interval  time.Duration
	logger    *slog.Logger

	mu          sync.RWMutex
	records     map[endpoint.Identity]Record
	lastRefresh time.Time
	refreshed   bool
	listeners   []func(Transition)

	sweeps atomic.Int64
	group  singleflight.Group
}

// NewCache creates an empty cache for the endpoints in set. No probing
// happens until the first RefreshIfStale call.
func NewCache(set *endpoint.Set, prober Prober, cfg CacheConfig) *Cache {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		endpoints: set,
		prober:    prober,
		interval:  cfg.RefreshInterval,
		logger:    cfg.Logger,
		records:   make(map[endpoint.Identity]Record, set.Len()),
	}
}

// OnChange registers a callback invoked after a record's status changes,
// including the first observation of each endpoint. Callbacks run outside
// the cache lock on the goroutine that caused the change.
func (c *Cache) OnChange(fn func(Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// RefreshInterval returns the configured TTL.
func (c *Cache) RefreshInterval() time.Duration {
	return c.interval
}

// IsAvailable returns the cached verdict for id. It never probes.
func (c *Cache) IsAvailable(id endpoint.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records[id].Available
}

// Record returns the cached record for id, if one exists.
func (c *Cache) Record(id endpoint.Identity) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	return r, ok
}

// Records returns a copy of every record in topology order: primary,
// standby, then replicas.
func (c *Cache) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Record, 0, len(c.records))
	for _, d := range c.endpoints.All() {
		if r, ok := c.records[d.Identity]; ok {
			out = append(out, r)
		}
	}
	return out
}

// AvailableReplicas returns the replicas currently marked available, in
// configured order.
func (c *Cache) AvailableReplicas() []endpoint.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []endpoint.Identity
	for _, d := range c.endpoints.Replicas() {
		if c.records[d.Identity].Available {
			out = append(out, d.Identity)
		}
	}
	return out
}

// LastRefresh returns when the last sweep completed. The zero time means no
// sweep has completed yet.
func (c *Cache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// Sweeps returns the number of probe sweeps performed so far.
func (c *Cache) Sweeps() int64 {
	return c.sweeps.Load()
}

// IsStale reports whether a sweep is due at now.
func (c *Cache) IsStale(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staleLocked(now)
}

func (c *Cache) staleLocked(now time.Time) bool {
	return !c.refreshed || now.Sub(c.lastRefresh) >= c.interval
}

// RefreshIfStale probes every endpoint concurrently when the cache is older
// than the refresh interval, then replaces every record with the new
// verdicts stamped with now. It reports whether the caller ran or joined a
// sweep.
//
// Concurrent stale callers share one sweep. The sweep itself is detached
// from ctx so that one caller giving up does not abort probes the others are
// waiting on; ctx only bounds how long this caller waits.
func (c *Cache) RefreshIfStale(ctx context.Context, now time.Time) bool {
	if !c.IsStale(now) {
		return false
	}

	sweepCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("sweep", func() (any, error) {
		// Another caller may have completed a sweep between our staleness
		// check and acquiring the flight.
		if !c.IsStale(now) {
			return nil, nil
		}
		c.sweep(sweepCtx, now)
		return nil, nil
	})

	select {
	case <-ch:
	case <-ctx.Done():
	}
	return true
}

// sweep probes every endpoint in parallel and installs the verdicts.
func (c *Cache) sweep(ctx context.Context, now time.Time) {
	start := time.Now()
	descriptors := c.endpoints.All()
	verdicts := make([]bool, len(descriptors))

	var g errgroup.Group
	for i, d := range descriptors {
		g.Go(func() error {
			verdicts[i] = c.prober.Probe(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	var transitions []Transition
	available := 0

	c.mu.Lock()
	for i, d := range descriptors {
		if t, changed := c.setLocked(d.Identity, verdicts[i], now, ReasonRefresh); changed {
			transitions = append(transitions, t)
		}
		if verdicts[i] {
			available++
		}
	}
	if now.After(c.lastRefresh) {
		c.lastRefresh = now
	}
	c.refreshed = true
	listeners := c.listeners
	c.mu.Unlock()

	c.sweeps.Add(1)
	metrics.RecordRefresh(time.Since(start).Seconds())
	for i, d := range descriptors {
		metrics.SetEndpointAvailable(d.Identity.String(), verdicts[i])
	}

	c.logger.Info("availability cache refreshed",
		"available", available,
		"total", len(descriptors),
		"duration", time.Since(start),
	)

	notify(listeners, transitions)
}

// MarkUnavailable downgrades id immediately, without waiting for the next
// sweep. It is a no-op for unknown identities.
func (c *Cache) MarkUnavailable(id endpoint.Identity, now time.Time) {
	if _, ok := c.endpoints.Lookup(id); !ok {
		return
	}

	c.mu.Lock()
	t, changed := c.setLocked(id, false, now, ReasonDowngrade)
	listeners := c.listeners
	c.mu.Unlock()

	if !changed {
		return
	}

	metrics.SetEndpointAvailable(id.String(), false)
	metrics.RecordDowngrade(id.String())
	c.logger.Warn("endpoint marked unavailable", "endpoint", id.String())

	notify(listeners, []Transition{t})
}

// setLocked writes a record, keeping ObservedAt monotonic. It reports the
// transition when the status changed. Caller must hold c.mu.
func (c *Cache) setLocked(id endpoint.Identity, available bool, now time.Time, reason string) (Transition, bool) {
	old, exists := c.records[id]

	observed := now
	if exists && old.ObservedAt.After(now) {
		observed = old.ObservedAt
	}
	c.records[id] = Record{Identity: id, Available: available, ObservedAt: observed}

	from := StatusUnknown
	if exists {
		from = old.Status()
	}
	to := statusOf(available)
	if from == to {
		return Transition{}, false
	}
	return Transition{Endpoint: id, From: from, To: to, At: observed, Reason: reason}, true
}

func notify(listeners []func(Transition), transitions []Transition) {
	for _, t := range transitions {
		for _, fn := range listeners {
			fn(t)
		}
	}
}
