// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package access runs units of work against router sessions. A session is
// acquired for each attempt and always released, and transient failures are
// retried with capped exponential backoff.
package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loganrossus/strongdb/pkg/metrics"
	"github.com/loganrossus/strongdb/pkg/postgres"
	"github.com/loganrossus/strongdb/pkg/routing"
)

// Defaults matching the router configuration defaults.
const (
	DefaultRetryCount = 2
	DefaultRetryDelay = 3 * time.Second
)

// Acquirer hands out sessions. *routing.Router satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context, intent routing.Intent) (*routing.Session, error)
}

// Func is a unit of work run against one session.
type Func func(ctx context.Context, s *routing.Session) error

// Options configure an Executor.
type Options struct {
	// RetryCount is the number of retries after the first attempt.
	RetryCount int

	// RetryDelay caps the wait between attempts.
	RetryDelay time.Duration

	// IsTransient decides which errors are retried. Defaults to IsTransient.
	IsTransient func(error) bool

	Logger *slog.Logger
}

// Executor runs units of work with scoped session acquisition.
type Executor struct {
	acquirer    Acquirer
	retries     int
	maxDelay    time.Duration
	isTransient func(error) bool
	logger      *slog.Logger
}

// NewExecutor creates an executor. Negative RetryCount disables retries; a
// non-positive RetryDelay uses DefaultRetryDelay.
func NewExecutor(acq Acquirer, opts Options) *Executor {
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.IsTransient == nil {
		opts.IsTransient = IsTransient
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Executor{
		acquirer:    acq,
		retries:     opts.RetryCount,
		maxDelay:    opts.RetryDelay,
		isTransient: opts.IsTransient,
		logger:      opts.Logger.With("component", "access"),
	}
}

// Read runs fn on a read session.
func (e *Executor) Read(ctx context.Context, fn Func) error {
	return e.Do(ctx, routing.IntentRead, fn)
}

// Write runs fn on a write session.
func (e *Executor) Write(ctx context.Context, fn Func) error {
	return e.Do(ctx, routing.IntentWrite, fn)
}

// Do runs fn on a session acquired for intent. Every attempt gets a fresh
// session, which is closed when fn returns or panics. Only errors from fn
// that classify as transient are retried; acquisition failures are
// returned as is.
func (e *Executor) Do(ctx context.Context, intent routing.Intent, fn Func) error {
	attempt := 0
	op := func() error {
		attempt++
		s, err := e.acquirer.Acquire(ctx, intent)
		if err != nil {
			return backoff.Permanent(err)
		}
		err = run(ctx, s, fn)
		if err != nil && !e.isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.RecordSessionRetry(intent.String())
		e.logger.Warn("transient failure, retrying",
			"intent", intent.String(),
			"attempt", attempt,
			"max_retries", e.retries,
			"backoff", wait,
			"error", err,
		)
	}

	return backoff.RetryNotify(op, e.policy(ctx), notify)
}

func (e *Executor) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(100*time.Millisecond, e.maxDelay)
	b.MaxInterval = e.maxDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.retries)), ctx)
}

// run executes fn and releases the session on every exit path.
func run(ctx context.Context, s *routing.Session, fn Func) error {
	defer func() {
		_ = s.Close(context.WithoutCancel(ctx))
	}()
	return fn(ctx, s)
}

type transientError struct {
	err error
}

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient or is a
// PostgreSQL error that is safe to retry.
func IsTransient(err error) bool {
	var t *transientError
	if errors.As(err, &t) {
		return true
	}
	return postgres.IsTransient(err)
}
