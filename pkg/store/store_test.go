// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/health"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestJournal(t *testing.T, maxEntries int) (*BboltJournal, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewBboltJournal(dbPath, maxEntries)
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, dbPath
}

func transition(id endpoint.Identity, to health.Status, at time.Time) health.Transition {
	from := health.StatusAvailable
	if to == health.StatusAvailable {
		from = health.StatusUnavailable
	}
	return health.Transition{Endpoint: id, From: from, To: to, At: at, Reason: health.ReasonRefresh}
}

func TestBboltJournal_AppendList(t *testing.T) {
	j, _ := newTestJournal(t, 0)
	ctx := context.Background()

	first, err := j.Append(ctx, transition(endpoint.Primary, health.StatusUnavailable, epoch))
	if err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	second, err := j.Append(ctx, transition(endpoint.Replica(1), health.StatusAvailable, epoch.Add(time.Second)))
	if err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	if second.Seq <= first.Seq {
		t.Errorf("sequence did not increase: %d then %d", first.Seq, second.Seq)
	}

	entries, err := j.List(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	got := entries[0]
	if got.Seq != second.Seq || got.Endpoint != endpoint.Replica(1) {
		t.Errorf("unexpected newest entry: %+v", got)
	}
	if got.From != health.StatusUnavailable || got.To != health.StatusAvailable {
		t.Errorf("statuses not preserved: %+v", got)
	}
	if !got.At.Equal(epoch.Add(time.Second)) || got.Reason != health.ReasonRefresh {
		t.Errorf("timestamp or reason not preserved: %+v", got)
	}
	if entries[1].Endpoint != endpoint.Primary {
		t.Errorf("expected primary as oldest entry, got %s", entries[1].Endpoint)
	}
}

func TestBboltJournal_ListLimit(t *testing.T) {
	j, _ := newTestJournal(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := j.Append(ctx, transition(endpoint.Replica(i), health.StatusUnavailable, epoch)); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}

	entries, err := j.List(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Endpoint != endpoint.Replica(4) || entries[1].Endpoint != endpoint.Replica(3) {
		t.Errorf("expected the two newest entries, got %s and %s", entries[0].Endpoint, entries[1].Endpoint)
	}
}

func TestBboltJournal_Prune(t *testing.T) {
	j, _ := newTestJournal(t, 3)
	ctx := context.Background()

	var last Entry
	for i := 0; i < 10; i++ {
		e, err := j.Append(ctx, transition(endpoint.Replica(i), health.StatusUnavailable, epoch))
		if err != nil {
			t.Fatalf("failed to append: %v", err)
		}
		last = e
	}

	n, err := j.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 retained entries, got %d", n)
	}

	entries, _ := j.List(ctx, 0)
	if entries[0].Seq != last.Seq {
		t.Errorf("newest entry pruned: got seq %d, want %d", entries[0].Seq, last.Seq)
	}
	if entries[2].Endpoint != endpoint.Replica(7) {
		t.Errorf("oldest retained = %s, want replica-8", entries[2].Endpoint)
	}
}

func TestBboltJournal_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := NewBboltJournal(dbPath, 0)
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	first, _ := j.Append(ctx, transition(endpoint.Standby, health.StatusUnavailable, epoch))
	j.Close()

	j, err = NewBboltJournal(dbPath, 0)
	if err != nil {
		t.Fatalf("failed to reopen journal: %v", err)
	}
	defer j.Close()

	entries, err := j.List(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(entries) != 1 || entries[0].Endpoint != endpoint.Standby {
		t.Fatalf("entry not persisted: %+v", entries)
	}

	// Sequence numbers continue across reopen.
	next, _ := j.Append(ctx, transition(endpoint.Standby, health.StatusAvailable, epoch.Add(time.Minute)))
	if next.Seq <= first.Seq {
		t.Errorf("sequence restarted after reopen: %d <= %d", next.Seq, first.Seq)
	}
}

func TestBboltJournal_Closed(t *testing.T) {
	j, _ := newTestJournal(t, 0)
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := j.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, err := j.Append(context.Background(), transition(endpoint.Primary, health.StatusAvailable, epoch)); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after close = %v, want ErrClosed", err)
	}
	if _, err := j.List(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("List after close = %v, want ErrClosed", err)
	}
}

func TestBboltJournal_CanceledContext(t *testing.T) {
	j, _ := newTestJournal(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := j.Append(ctx, transition(endpoint.Primary, health.StatusAvailable, epoch)); !errors.Is(err, context.Canceled) {
		t.Errorf("Append = %v, want context.Canceled", err)
	}
	if n, _ := j.Len(); n != 0 {
		t.Errorf("canceled append stored %d entries", n)
	}
}

func TestBboltJournal_ConcurrentAppend(t *testing.T) {
	j, _ := newTestJournal(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := j.Append(ctx, transition(endpoint.Replica(i), health.StatusUnavailable, epoch)); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	entries, _ := j.List(ctx, 0)
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(entries))
	}
	seen := make(map[uint64]bool)
	for _, e := range entries {
		if seen[e.Seq] {
			t.Errorf("duplicate sequence %d", e.Seq)
		}
		seen[e.Seq] = true
	}
}

func TestFactory_BBolt(t *testing.T) {
	j, err := New(Config{Type: JournalBBolt, Path: filepath.Join(t.TempDir(), "journal.db")})
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	defer j.Close()

	if _, ok := j.(*BboltJournal); !ok {
		t.Errorf("expected *BboltJournal, got %T", j)
	}
}

func TestFactory_DefaultToBBolt(t *testing.T) {
	j, err := New(Config{Path: filepath.Join(t.TempDir(), "journal.db")})
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	defer j.Close()

	if bj, ok := j.(*BboltJournal); !ok || bj.maxEntries != DefaultMaxEntries {
		t.Errorf("expected bbolt journal with default retention, got %T", j)
	}
}

func TestFactory_UnsupportedType(t *testing.T) {
	_, err := New(Config{Type: "raft", Path: "/tmp/test"})
	if err == nil {
		t.Error("expected error for unsupported journal type")
	}
}

func TestBboltJournal_FilePermissions(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping permission test when running as root")
	}

	tmpDir := t.TempDir()

	// Make directory read-only
	err := os.Chmod(tmpDir, 0444)
	if err != nil {
		t.Fatalf("failed to change permissions: %v", err)
	}
	defer os.Chmod(tmpDir, 0755)

	_, err = NewBboltJournal(filepath.Join(tmpDir, "journal.db"), 0)
	if err == nil {
		t.Error("expected error creating journal in read-only directory")
	}
}
