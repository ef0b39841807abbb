// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package health

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// CompositeChecker dispatches health checks to the appropriate checker based on
// the target's scheme. This lets one Prober handle mixed topologies.
type CompositeChecker struct {
	checkers map[string]Checker
}

// NewCompositeChecker creates a checker that can handle multiple check types.
func NewCompositeChecker() *CompositeChecker {
	return &CompositeChecker{
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker for a specific type (e.g., "postgres", "tcp").
// Register is not safe for concurrent use with Check; call it during setup.
func (c *CompositeChecker) Register(checkType string, checker Checker) {
	c.checkers[checkType] = checker
}

// Type returns "composite".
func (c *CompositeChecker) Type() string {
	return "composite"
}

// Check dispatches to the appropriate checker based on the target's Scheme field.
//
// Scheme mapping:
//   - "postgres", "postgresql", "" -> postgres checker
//   - "tcp" -> TCP checker
//
// If no matching checker is found, returns an error result.
func (c *CompositeChecker) Check(ctx context.Context, target Target) Result {
	start := time.Now()

	checkType := target.Scheme
	switch checkType {
	case "", "postgres", "postgresql":
		checkType = "postgres"
	}

	checker, ok := c.checkers[checkType]
	if !ok {
		return Result{
			Endpoint:  target.Endpoint,
			Healthy:   false,
			Error:     fmt.Errorf("no checker registered for type: %s", target.Scheme),
			Timestamp: start,
			Latency:   time.Since(start),
		}
	}

	return checker.Check(ctx, target)
}

// HasChecker returns true if a checker is registered for the given type.
func (c *CompositeChecker) HasChecker(checkType string) bool {
	_, ok := c.checkers[checkType]
	return ok
}

// RegisteredTypes returns the registered checker types in sorted order.
func (c *CompositeChecker) RegisteredTypes() []string {
	types := make([]string, 0, len(c.checkers))
	for t := range c.checkers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
