// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCache_FailClosedBeforeFirstRefresh(t *testing.T) {
	set := testSet(t, 2)
	cache := NewCache(set, newFakeProber(map[endpoint.Identity]bool{}), CacheConfig{})

	for _, d := range set.All() {
		if cache.IsAvailable(d.Identity) {
			t.Errorf("%s reported available before any refresh", d.Identity)
		}
	}
	if len(cache.Records()) != 0 {
		t.Errorf("Records() = %v, want none", cache.Records())
	}
	if !cache.IsStale(epoch) {
		t.Error("cache must be stale before first refresh")
	}
}

func TestCache_RefreshPopulatesEveryRecord(t *testing.T) {
	set := testSet(t, 2)
	prober := newFakeProber(map[endpoint.Identity]bool{
		endpoint.Primary:    true,
		endpoint.Standby:    false,
		endpoint.Replica(0): true,
		endpoint.Replica(1): false,
	})
	cache := NewCache(set, prober, CacheConfig{RefreshInterval: 30 * time.Second})

	if !cache.RefreshIfStale(context.Background(), epoch) {
		t.Fatal("first RefreshIfStale should sweep")
	}

	records := cache.Records()
	if len(records) != set.Len() {
		t.Fatalf("got %d records, want %d", len(records), set.Len())
	}
	for _, r := range records {
		if !r.ObservedAt.Equal(epoch) {
			t.Errorf("%s ObservedAt = %v, want %v", r.Identity, r.ObservedAt, epoch)
		}
	}

	if !cache.IsAvailable(endpoint.Primary) || cache.IsAvailable(endpoint.Standby) {
		t.Error("primary/standby verdicts not installed")
	}
	if got := cache.AvailableReplicas(); len(got) != 1 || got[0] != endpoint.Replica(0) {
		t.Errorf("AvailableReplicas() = %v, want [replica-1]", got)
	}
	if !cache.LastRefresh().Equal(epoch) {
		t.Errorf("LastRefresh() = %v, want %v", cache.LastRefresh(), epoch)
	}
}

func TestCache_RefreshRespectsInterval(t *testing.T) {
	set := testSet(t, 1)
	prober := newFakeProber(map[endpoint.Identity]bool{endpoint.Primary: true})
	cache := NewCache(set, prober, CacheConfig{RefreshInterval: 30 * time.Second})
	ctx := context.Background()

	cache.RefreshIfStale(ctx, epoch)
	if cache.RefreshIfStale(ctx, epoch.Add(10*time.Second)) {
		t.Error("refresh within the interval should not sweep")
	}
	if cache.RefreshIfStale(ctx, epoch.Add(29*time.Second)) {
		t.Error("refresh just under the interval should not sweep")
	}
	if cache.Sweeps() != 1 {
		t.Fatalf("Sweeps() = %d, want 1", cache.Sweeps())
	}

	if !cache.RefreshIfStale(ctx, epoch.Add(30*time.Second)) {
		t.Error("refresh at the interval should sweep")
	}
	if cache.Sweeps() != 2 {
		t.Errorf("Sweeps() = %d, want 2", cache.Sweeps())
	}
	if got := prober.calls.Load(); got != int64(2*set.Len()) {
		t.Errorf("probe calls = %d, want %d", got, 2*set.Len())
	}
}

func TestCache_RefreshPicksUpNewVerdicts(t *testing.T) {
	set := testSet(t, 1)
	prober := newFakeProber(map[endpoint.Identity]bool{endpoint.Replica(0): true})
	cache := NewCache(set, prober, CacheConfig{RefreshInterval: time.Second})
	ctx := context.Background()

	cache.RefreshIfStale(ctx, epoch)
	if !cache.IsAvailable(endpoint.Replica(0)) {
		t.Fatal("replica should be available after first sweep")
	}

	prober.set(endpoint.Replica(0), false)
	cache.RefreshIfStale(ctx, epoch.Add(time.Second))
	if cache.IsAvailable(endpoint.Replica(0)) {
		t.Error("replica should be unavailable after second sweep")
	}
}

func TestCache_ProbesRunInParallel(t *testing.T) {
	set := testSet(t, 4)
	prober := newFakeProber(map[endpoint.Identity]bool{})
	prober.delay = 100 * time.Millisecond
	cache := NewCache(set, prober, CacheConfig{})

	start := time.Now()
	cache.RefreshIfStale(context.Background(), epoch)
	elapsed := time.Since(start)

	// Six probes of 100ms each: a serial sweep would take 600ms.
	if elapsed > 400*time.Millisecond {
		t.Errorf("sweep took %v, probes were not run in parallel", elapsed)
	}
	if prober.maxConc.Load() < 2 {
		t.Errorf("max concurrent probes = %d, want > 1", prober.maxConc.Load())
	}
}

func TestCache_ConcurrentStaleCallersShareOneSweep(t *testing.T) {
	set := testSet(t, 2)
	prober := newFakeProber(map[endpoint.Identity]bool{endpoint.Primary: true})
	prober.delay = 50 * time.Millisecond
	cache := NewCache(set, prober, CacheConfig{RefreshInterval: 30 * time.Second})

	const callers = 20
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			cache.RefreshIfStale(context.Background(), epoch)
		}()
	}
	close(start)
	wg.Wait()

	if cache.Sweeps() != 1 {
		t.Errorf("Sweeps() = %d, want 1", cache.Sweeps())
	}
	if got := prober.calls.Load(); got != int64(set.Len()) {
		t.Errorf("probe calls = %d, want %d", got, set.Len())
	}
	if len(cache.Records()) != set.Len() {
		t.Errorf("records = %d, want %d", len(cache.Records()), set.Len())
	}
}

func TestCache_CanceledCallerDoesNotAbortSweep(t *testing.T) {
	set := testSet(t, 1)
	prober := newFakeProber(map[endpoint.Identity]bool{endpoint.Primary: true})
	prober.delay = 100 * time.Millisecond
	cache := NewCache(set, prober, CacheConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	cache.RefreshIfStale(ctx, epoch)
	if time.Since(start) > 80*time.Millisecond {
		t.Error("canceled caller should stop waiting for the sweep")
	}

	// The detached sweep still completes and installs its verdicts.
	deadline := time.Now().Add(2 * time.Second)
	for cache.Sweeps() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !cache.IsAvailable(endpoint.Primary) {
		t.Error("sweep did not complete after caller gave up")
	}
}

func TestCache_MarkUnavailable(t *testing.T) {
	set := testSet(t, 2)
	prober := newFakeProber(map[endpoint.Identity]bool{
		endpoint.Replica(0): true,
		endpoint.Replica(1): true,
	})
	cache := NewCache(set, prober, CacheConfig{})
	cache.RefreshIfStale(context.Background(), epoch)

	cache.MarkUnavailable(endpoint.Replica(0), epoch.Add(time.Second))

	if cache.IsAvailable(endpoint.Replica(0)) {
		t.Error("replica-1 should be unavailable immediately after downgrade")
	}
	if !cache.IsAvailable(endpoint.Replica(1)) {
		t.Error("downgrade must not affect other endpoints")
	}
	if cache.Sweeps() != 1 {
		t.Errorf("downgrade must not trigger a sweep, Sweeps() = %d", cache.Sweeps())
	}

	// Unknown identities are ignored.
	cache.MarkUnavailable(endpoint.Replica(7), epoch)
	if _, ok := cache.Record(endpoint.Replica(7)); ok {
		t.Error("unknown identity should not get a record")
	}
}

func TestCache_ObservedAtIsMonotonic(t *testing.T) {
	set := testSet(t, 1)
	prober := newFakeProber(map[endpoint.Identity]bool{endpoint.Replica(0): true})
	cache := NewCache(set, prober, CacheConfig{})
	cache.RefreshIfStale(context.Background(), epoch)

	// A downgrade stamped earlier than the sweep keeps the newer timestamp.
	cache.MarkUnavailable(endpoint.Replica(0), epoch.Add(-time.Minute))

	r, ok := cache.Record(endpoint.Replica(0))
	if !ok {
		t.Fatal("record missing")
	}
	if r.ObservedAt.Before(epoch) {
		t.Errorf("ObservedAt went backwards: %v < %v", r.ObservedAt, epoch)
	}
	if r.Available {
		t.Error("record should still be downgraded")
	}
}

func TestCache_OnChange(t *testing.T) {
	set := testSet(t, 1)
	prober := newFakeProber(map[endpoint.Identity]bool{
		endpoint.Primary:    true,
		endpoint.Standby:    true,
		endpoint.Replica(0): true,
	})
	cache := NewCache(set, prober, CacheConfig{RefreshInterval: time.Second})

	var mu sync.Mutex
	var got []Transition
	cache.OnChange(func(tr Transition) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, tr)
	})

	ctx := context.Background()
	cache.RefreshIfStale(ctx, epoch)
	if len(got) != 3 {
		t.Fatalf("first sweep produced %d transitions, want 3", len(got))
	}
	for _, tr := range got {
		if tr.From != StatusUnknown || tr.To != StatusAvailable || tr.Reason != ReasonRefresh {
			t.Errorf("unexpected first transition: %+v", tr)
		}
	}

	// Same verdicts: no transitions.
	cache.RefreshIfStale(ctx, epoch.Add(time.Second))
	if len(got) != 3 {
		t.Errorf("unchanged sweep produced transitions: %d", len(got)-3)
	}

	cache.MarkUnavailable(endpoint.Replica(0), epoch.Add(2*time.Second))
	if len(got) != 4 {
		t.Fatalf("downgrade produced %d transitions, want 1", len(got)-3)
	}
	last := got[3]
	if last.Endpoint != endpoint.Replica(0) || last.From != StatusAvailable || last.To != StatusUnavailable || last.Reason != ReasonDowngrade {
		t.Errorf("unexpected downgrade transition: %+v", last)
	}

	// Downgrading an already-unavailable endpoint is silent.
	cache.MarkUnavailable(endpoint.Replica(0), epoch.Add(3*time.Second))
	if len(got) != 4 {
		t.Error("repeated downgrade should not notify")
	}
}
