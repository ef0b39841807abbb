// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package routing decides which physical database endpoint serves each
// logical operation. Writes go to the primary, falling back to the standby.
// Reads rotate across available replicas, falling back to the standby and
// then the primary.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/health"
	"github.com/loganrossus/strongdb/pkg/metrics"
)

// ErrDatabaseUnavailable is returned when every candidate endpoint for an
// operation is unavailable or failed at use time.
var ErrDatabaseUnavailable = errors.New("database unavailable")

// Intent is the kind of logical operation a session is acquired for.
type Intent int

const (
	IntentRead Intent = iota
	IntentWrite
)

func (i Intent) String() string {
	if i == IntentWrite {
		return "write"
	}
	return "read"
}

// ParseIntent parses "read" or "write".
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "":
		return IntentRead, nil
	case "write":
		return IntentWrite, nil
	default:
		return IntentRead, fmt.Errorf("unknown intent %q", s)
	}
}

// Conn is a live connection to one endpoint.
type Conn interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Connector opens connections to endpoints.
type Connector interface {
	Connect(ctx context.Context, d endpoint.Descriptor) (Conn, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, d endpoint.Descriptor) (Conn, error)

// Connect calls f(ctx, d).
func (f ConnectorFunc) Connect(ctx context.Context, d endpoint.Descriptor) (Conn, error) {
	return f(ctx, d)
}

// Inspector runs a single detailed check against an endpoint.
// *health.CheckProber satisfies it.
type Inspector interface {
	Check(ctx context.Context, d endpoint.Descriptor) health.Result
}

// Config holds the router's collaborators.
type Config struct {
	Endpoints *endpoint.Set
	Cache     *health.Cache
	Inspector Inspector
	Connector Connector

	// SessionTimeout bounds connect plus ping when materializing a session.
	// Defaults to health.DefaultProbeTimeout.
	SessionTimeout time.Duration

	Logger *slog.Logger

	// Now is the clock used for cache refreshes and downgrades.
	Now func() time.Time
}

// Router hands out sessions bound to the endpoint chosen for each intent.
// It is safe for concurrent use.
type Router struct {
	endpoints *endpoint.Set
	cache     *health.Cache
	inspector Inspector
	connector Connector
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	rotation *RoundRobin
}

// NewRouter creates a router from cfg.
func NewRouter(cfg Config) (*Router, error) {
	switch {
	case cfg.Endpoints == nil:
		return nil, errors.New("routing: endpoint set is required")
	case cfg.Cache == nil:
		return nil, errors.New("routing: availability cache is required")
	case cfg.Inspector == nil:
		return nil, errors.New("routing: inspector is required")
	case cfg.Connector == nil:
		return nil, errors.New("routing: connector is required")
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = health.DefaultProbeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Router{
		endpoints: cfg.Endpoints,
		cache:     cfg.Cache,
		inspector: cfg.Inspector,
		connector: cfg.Connector,
		timeout:   cfg.SessionTimeout,
		logger:    cfg.Logger.With("component", "router"),
		now:       cfg.Now,
		rotation:  NewRoundRobin(cfg.Endpoints.ReplicaCount()),
	}, nil
}

// Endpoints returns the configured endpoint set.
func (r *Router) Endpoints() *endpoint.Set {
	return r.endpoints
}

// Cache returns the availability cache backing the router.
func (r *Router) Cache() *health.Cache {
	return r.cache
}

// Acquire dispatches to AcquireForRead or AcquireForWrite.
func (r *Router) Acquire(ctx context.Context, intent Intent) (*Session, error) {
	if intent == IntentWrite {
		return r.AcquireForWrite(ctx)
	}
	return r.AcquireForRead(ctx)
}

// AcquireForWrite returns a session on the primary, or on the standby when
// the primary is unavailable. A standby session is marked degraded.
// Replicas are never used for writes, and failures here never downgrade the
// cache.
func (r *Router) AcquireForWrite(ctx context.Context) (*Session, error) {
	r.cache.RefreshIfStale(ctx, r.now())
	if ctx.Err() != nil {
		return nil, fmt.Errorf("acquire for write: %w", ctx.Err())
	}

	for _, d := range WriteChain(r.endpoints) {
		if !r.cache.IsAvailable(d.Identity) {
			continue
		}
		s, err := r.open(ctx, IntentWrite, d)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire for write: %w", ctx.Err())
		}
	}
	return nil, r.exhausted(IntentWrite)
}

// AcquireForRead returns a session on the next available replica in
// rotation. A replica that fails at use time is marked unavailable at once
// and the next one is tried. With no usable replica the standby and then the
// primary serve the read, both marked degraded.
func (r *Router) AcquireForRead(ctx context.Context) (*Session, error) {
	r.cache.RefreshIfStale(ctx, r.now())
	if ctx.Err() != nil {
		return nil, fmt.Errorf("acquire for read: %w", ctx.Err())
	}

	attempts := len(r.cache.AvailableReplicas())
	for i := 0; i < attempts; i++ {
		id, ok := r.nextReplica()
		if !ok {
			break
		}
		d, _ := r.endpoints.Lookup(id)

		s, err := r.open(ctx, IntentRead, d)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			r.releaseReplica(id)
			return nil, fmt.Errorf("acquire for read: %w", ctx.Err())
		}
		r.cache.MarkUnavailable(id, r.now())
	}

	for _, d := range []endpoint.Descriptor{r.endpoints.Standby(), r.endpoints.Primary()} {
		if !r.cache.IsAvailable(d.Identity) {
			continue
		}
		s, err := r.open(ctx, IntentRead, d)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire for read: %w", ctx.Err())
		}
	}
	return nil, r.exhausted(IntentRead)
}

// nextReplica claims the next available replica. The available set is
// snapshotted under the same lock that advances the cursor.
func (r *Router) nextReplica() (endpoint.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotation.Next(r.cache.AvailableReplicas())
}

// releaseReplica hands back a claim that was abandoned because the caller
// gave up, so the replica keeps its turn.
func (r *Router) releaseReplica(id endpoint.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotation.Release(id)
}

// open connects to d and pings it, bounded by the session timeout.
func (r *Router) open(ctx context.Context, intent Intent, d endpoint.Descriptor) (*Session, error) {
	vctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.connector.Connect(vctx, d)
	if err == nil {
		if err = conn.Ping(vctx); err != nil {
			closeQuietly(ctx, conn)
		}
	}
	if err != nil {
		metrics.RecordAcquireFailure(intent.String(), d.Identity.String())
		r.logger.Warn("session acquisition failed",
			"intent", intent.String(),
			"endpoint", d.Identity.String(),
			"error", err,
		)
		return nil, err
	}

	s := NewSession(d.Identity, intent, conn, r.now())
	metrics.RecordRoutingDecision(intent.String(), d.Identity.String(), s.Degraded())

	if s.Degraded() {
		r.logger.Warn("routing to fallback endpoint",
			"intent", intent.String(),
			"endpoint", d.Identity.String(),
			"session", s.ID(),
		)
	} else {
		r.logger.Info("routing decision",
			"intent", intent.String(),
			"endpoint", d.Identity.String(),
			"session", s.ID(),
		)
	}
	return s, nil
}

func (r *Router) exhausted(intent Intent) error {
	metrics.RecordDatabaseUnavailable(intent.String())
	r.logger.Error("no database endpoint available", "intent", intent.String())
	return fmt.Errorf("acquire for %s: %w", intent, ErrDatabaseUnavailable)
}

func closeQuietly(ctx context.Context, conn Conn) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	_ = conn.Close(cctx)
}
