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
	"fmt"
	"net"
	"strings"
	"time"
)

// TCPChecker checks reachability by opening and immediately closing a TCP
// connection. It does not speak the database protocol.
type TCPChecker struct {
	dialer *net.Dialer
}

// TCPCheckerOption configures a TCPChecker.
type TCPCheckerOption func(*TCPChecker)

// WithDialer sets a custom net.Dialer for the TCP checker.
func WithDialer(d *net.Dialer) TCPCheckerOption {
	return func(c *TCPChecker) {
		c.dialer = d
	}
}

// NewTCPChecker creates a new TCP health checker.
func NewTCPChecker(opts ...TCPCheckerOption) *TCPChecker {
	c := &TCPChecker{
		dialer: &net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: -1, // Disable keep-alive for health checks
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Type returns "tcp".
func (c *TCPChecker) Type() string {
	return "tcp"
}

// Check dials the target address. Addresses may be written as
// tcp://host:port or host:port.
func (c *TCPChecker) Check(ctx context.Context, target Target) Result {
	start := time.Now()

	result := Result{
		Endpoint:  target.Endpoint,
		Timestamp: start,
	}

	address := strings.TrimPrefix(target.Address, "tcp://")
	if _, _, err := net.SplitHostPort(address); err != nil {
		result.Error = fmt.Errorf("invalid tcp address %q: %w", target.Address, err)
		result.Latency = time.Since(start)
		return result
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", address)
	result.Latency = time.Since(start)

	if err != nil {
		result.Error = fmt.Errorf("tcp connect failed: %w", err)
		return result
	}

	conn.Close()
	result.Healthy = true

	return result
}
