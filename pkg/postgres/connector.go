// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loganrossus/strongdb/pkg/endpoint"
	"github.com/loganrossus/strongdb/pkg/routing"
)

// Connector opens single pgx connections for router sessions.
type Connector struct {
	opts   Options
	logger *slog.Logger
}

// NewConnector creates a connector. A nil logger uses slog.Default().
func NewConnector(opts Options, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{opts: opts, logger: logger}
}

// Connect implements routing.Connector.
func (c *Connector) Connect(ctx context.Context, d endpoint.Descriptor) (routing.Conn, error) {
	cfg, err := ParseConfig(d.Target, c.opts)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("connection opened",
		"endpoint", d.Identity.String(),
		"backend_pid", conn.PgConn().PID(),
	)
	return &Conn{conn: conn}, nil
}

// Conn wraps a *pgx.Conn as a routing.Conn.
type Conn struct {
	conn *pgx.Conn
}

// Ping implements routing.Conn.
func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close implements routing.Conn.
func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Pgx returns the underlying connection.
func (c *Conn) Pgx() *pgx.Conn {
	return c.conn
}

// Unwrap returns the pgx connection behind a session's Conn.
func Unwrap(conn routing.Conn) (*pgx.Conn, bool) {
	c, ok := conn.(*Conn)
	if !ok || c == nil {
		return nil, false
	}
	return c.conn, true
}

// IsTransient reports whether err is safe to retry on a fresh session:
// the statement provably never reached the server, or the server asked the
// client to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "57P01", "57P03", "08006", "08003", "08001":
			return true
		}
	}
	return false
}
