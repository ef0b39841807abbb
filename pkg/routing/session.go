// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package routing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loganrossus/strongdb/pkg/endpoint"
)

// Session is a verified connection bound to one endpoint for the duration
// of a unit of work.
type Session struct {
	id       string
	endpoint endpoint.Identity
	intent   Intent
	degraded bool
	conn     Conn
	opened   time.Time

	closeOnce sync.Once
	closeErr  error
}

// NewSession binds conn to endpoint id. Degraded is derived from intent and
// id.
func NewSession(id endpoint.Identity, intent Intent, conn Conn, opened time.Time) *Session {
	return &Session{
		id:       uuid.NewString(),
		endpoint: id,
		intent:   intent,
		degraded: IsDegraded(intent, id),
		conn:     conn,
		opened:   opened,
	}
}

// ID returns a unique identifier for logging and correlation.
func (s *Session) ID() string { return s.id }

// Endpoint returns the endpoint serving the session.
func (s *Session) Endpoint() endpoint.Identity { return s.endpoint }

// Intent returns the intent the session was acquired for.
func (s *Session) Intent() Intent { return s.intent }

// Degraded reports whether the session was served by a fallback endpoint.
func (s *Session) Degraded() bool { return s.degraded }

// Conn returns the underlying connection.
func (s *Session) Conn() Conn { return s.conn }

// OpenedAt returns when the session was handed out.
func (s *Session) OpenedAt() time.Time { return s.opened }

// Close releases the connection. Only the first call closes; later calls
// return the first result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close(ctx)
	})
	return s.closeErr
}
