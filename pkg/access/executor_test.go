// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package access

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/routing"
)

type countingConn struct {
	closes *atomic.Int64
}

func (c countingConn) Ping(context.Context) error { return nil }

func (c countingConn) Close(context.Context) error {
	c.closes.Add(1)
	return nil
}

// fakeAcquirer hands out sessions on a fixed endpoint per intent.
type fakeAcquirer struct {
	acquires atomic.Int64
	closes   atomic.Int64
	err      error
	intents  []routing.Intent
}

func (a *fakeAcquirer) Acquire(ctx context.Context, intent routing.Intent) (*routing.Session, error) {
	a.acquires.Add(1)
	a.intents = append(a.intents, intent)
	if a.err != nil {
		return nil, a.err
	}
	id := endpoint.Replica(0)
	if intent == routing.IntentWrite {
		id = endpoint.Primary
	}
	return routing.NewSession(id, intent, countingConn{closes: &a.closes}, time.Now()), nil
}

func newTestExecutor(acq Acquirer, retries int) *Executor {
	return NewExecutor(acq, Options{RetryCount: retries, RetryDelay: time.Millisecond})
}

func TestExecutor_ReadAndWriteUseIntent(t *testing.T) {
	acq := &fakeAcquirer{}
	ex := newTestExecutor(acq, 0)

	var readOn, writeOn endpoint.Identity
	if err := ex.Read(context.Background(), func(ctx context.Context, s *routing.Session) error {
		readOn = s.Endpoint()
		return nil
	}); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := ex.Write(context.Background(), func(ctx context.Context, s *routing.Session) error {
		writeOn = s.Endpoint()
		return nil
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if readOn != endpoint.Replica(0) || writeOn != endpoint.Primary {
		t.Errorf("read on %s, write on %s", readOn, writeOn)
	}
	if len(acq.intents) != 2 || acq.intents[0] != routing.IntentRead || acq.intents[1] != routing.IntentWrite {
		t.Errorf("intents = %v", acq.intents)
	}
	if acq.closes.Load() != 2 {
		t.Errorf("closes = %d, want 2", acq.closes.Load())
	}
}

func TestExecutor_ClosesSessionOnError(t *testing.T) {
	acq := &fakeAcquirer{}
	ex := newTestExecutor(acq, 2)
	boom := errors.New("constraint violated")

	err := ex.Write(context.Background(), func(ctx context.Context, s *routing.Session) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if acq.acquires.Load() != 1 {
		t.Errorf("non-transient error was retried: %d acquisitions", acq.acquires.Load())
	}
	if acq.closes.Load() != 1 {
		t.Errorf("closes = %d, want 1", acq.closes.Load())
	}
}

func TestExecutor_ClosesSessionOnPanic(t *testing.T) {
	acq := &fakeAcquirer{}
	ex := newTestExecutor(acq, 0)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate")
			}
		}()
		_ = ex.Read(context.Background(), func(ctx context.Context, s *routing.Session) error {
			panic("handler bug")
		})
	}()

	if acq.closes.Load() != 1 {
		t.Errorf("closes = %d, want 1 after panic", acq.closes.Load())
	}
}

func TestExecutor_RetriesTransientErrors(t *testing.T) {
	acq := &fakeAcquirer{}
	ex := newTestExecutor(acq, 2)

	calls := 0
	err := ex.Read(context.Background(), func(ctx context.Context, s *routing.Session) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if acq.acquires.Load() != 3 || acq.closes.Load() != 3 {
		t.Errorf("acquires = %d, closes = %d, want 3 each", acq.acquires.Load(), acq.closes.Load())
	}
}

func TestExecutor_GivesUpAfterRetryCount(t *testing.T) {
	acq := &fakeAcquirer{}
	ex := newTestExecutor(acq, 2)
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}

	calls := 0
	err := ex.Write(context.Background(), func(ctx context.Context, s *routing.Session) error {
		calls++
		return serialization
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 1 attempt + 2 retries", calls)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "40001" {
		t.Errorf("err = %v, want the last serialization failure", err)
	}
}

func TestExecutor_DoesNotRetryUnavailable(t *testing.T) {
	unavailable := fmt.Errorf("acquire for read: %w", routing.ErrDatabaseUnavailable)
	acq := &fakeAcquirer{err: unavailable}
	ex := newTestExecutor(acq, 2)

	called := false
	err := ex.Read(context.Background(), func(ctx context.Context, s *routing.Session) error {
		called = true
		return nil
	})
	if !errors.Is(err, routing.ErrDatabaseUnavailable) {
		t.Fatalf("err = %v, want ErrDatabaseUnavailable", err)
	}
	if called {
		t.Error("fn must not run without a session")
	}
	if acq.acquires.Load() != 1 {
		t.Errorf("acquires = %d, want 1", acq.acquires.Load())
	}
}

func TestExecutor_DefaultsAndNegativeRetries(t *testing.T) {
	ex := NewExecutor(&fakeAcquirer{}, Options{RetryCount: -1})
	if ex.retries != 0 {
		t.Errorf("retries = %d, want 0", ex.retries)
	}
	if ex.maxDelay != DefaultRetryDelay {
		t.Errorf("maxDelay = %v, want %v", ex.maxDelay, DefaultRetryDelay)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"marked", Transient(errors.New("x")), true},
		{"wrapped marker", fmt.Errorf("query: %w", Transient(errors.New("x"))), true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("%s: IsTransient = %v, want %v", tt.name, got, tt.want)
		}
	}
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
}
