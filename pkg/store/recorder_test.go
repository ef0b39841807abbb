// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/health"
)

// blockingJournal holds every Append until release is closed.
type blockingJournal struct {
	mu      sync.Mutex
	entries []Entry
	release chan struct{}
}

func (b *blockingJournal) Append(ctx context.Context, tr health.Transition) (Entry, error) {
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e := Entry{Seq: uint64(len(b.entries) + 1), Transition: tr}
	b.entries = append(b.entries, e)
	return e, nil
}

func (b *blockingJournal) List(ctx context.Context, limit int) ([]Entry, error) { return nil, nil }
func (b *blockingJournal) Len() (int, error)                                  { return b.count(), nil }
func (b *blockingJournal) Close() error                                       { return nil }

func (b *blockingJournal) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func TestRecorder_AppendsInOrder(t *testing.T) {
	j, _ := newTestJournal(t, 0)
	rec := NewRecorder(j, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)

	for i := 0; i < 3; i++ {
		rec.Record(transition(endpoint.Replica(i), health.StatusUnavailable, epoch))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := j.Len(); n == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-rec.Done()

	entries, _ := j.List(context.Background(), 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Endpoint != endpoint.Replica(2) || entries[2].Endpoint != endpoint.Replica(0) {
		t.Errorf("entries out of order: %s ... %s", entries[0].Endpoint, entries[2].Endpoint)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	j := &blockingJournal{release: make(chan struct{})}
	rec := NewRecorder(j, 2, nil)

	// Without Run nothing drains, so the third Record must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			rec.Record(transition(endpoint.Primary, health.StatusUnavailable, epoch))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
	if len(rec.queue) != 2 {
		t.Errorf("expected 2 queued transitions, got %d", len(rec.queue))
	}
}

func TestRecorder_FlushesOnCancel(t *testing.T) {
	j := &blockingJournal{}
	rec := NewRecorder(j, 8, nil)
	for i := 0; i < 4; i++ {
		rec.Record(transition(endpoint.Replica(i), health.StatusAvailable, epoch))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	select {
	case <-rec.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}
	if j.count() != 4 {
		t.Errorf("expected 4 flushed transitions, got %d", j.count())
	}
}
