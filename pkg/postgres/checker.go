// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/loganrossus/strongdb/pkg/health"
)

const serverInfoQuery = `SELECT version(), current_database(), current_user,
	coalesce(host(inet_server_addr()), ''), coalesce(inet_server_port(), 0)`

// Checker verifies a PostgreSQL endpoint by connecting, reading basic
// server information and disconnecting.
type Checker struct {
	opts Options
}

// NewChecker creates a PostgreSQL health checker.
func NewChecker(opts Options) *Checker {
	return &Checker{opts: opts}
}

// Type returns "postgres".
func (c *Checker) Type() string {
	return "postgres"
}

// Check implements health.Checker.
func (c *Checker) Check(ctx context.Context, target health.Target) health.Result {
	start := time.Now()
	result := health.Result{Endpoint: target.Endpoint, Timestamp: start}

	cfg, err := ParseConfig(target.Address, c.opts)
	if err != nil {
		result.Error = err
		result.Latency = time.Since(start)
		return result
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		result.Error = err
		result.Latency = time.Since(start)
		return result
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var (
		version, database, user, addr string
		port                          int32
	)
	err = conn.QueryRow(ctx, serverInfoQuery).Scan(&version, &database, &user, &addr, &port)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}

	result.Healthy = true
	result.Info = map[string]string{
		"version":  version,
		"database": database,
		"user":     user,
	}
	if addr != "" {
		result.Info["server_address"] = addr
		result.Info["server_port"] = itoa(port)
	}
	return result
}

func itoa(n int32) string {
	return strconv.FormatInt(int64(n), 10)
}
