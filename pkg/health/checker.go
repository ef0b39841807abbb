// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package health

import (
	"context"
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
)

// Target is a single endpoint to check.
type Target struct {
	Endpoint endpoint.Identity

	// Address is the connection target as configured: a PostgreSQL URL or
	// DSN, or a tcp://host:port address.
	Address string

	// Scheme selects the checker ("postgres" or "tcp").
	Scheme string

	Timeout time.Duration
}

// TargetFor builds the check target for an endpoint descriptor.
func TargetFor(d endpoint.Descriptor, timeout time.Duration) Target {
	return Target{
		Endpoint: d.Identity,
		Address:  d.Target,
		Scheme:   d.Scheme(),
		Timeout:  timeout,
	}
}

// Checker performs health checks against targets.
type Checker interface {
	// Check performs a single health check against the target.
	// The context carries the check deadline.
	Check(ctx context.Context, target Target) Result

	// Type returns the health check type (e.g., "postgres", "tcp").
	Type() string
}

// CheckerFunc is a function adapter for Checker interface.
type CheckerFunc func(ctx context.Context, target Target) Result

func (f CheckerFunc) Check(ctx context.Context, target Target) Result {
	return f(ctx, target)
}

func (f CheckerFunc) Type() string {
	return "func"
}
