// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package health probes database endpoints and keeps the TTL-bounded
// availability cache that routing decisions read from.
package health

import (
	"time"

	"github.com/loganrossus/strongdb/pkg/endpoint"
)

// Status represents the availability of an endpoint as seen by the cache.
// StatusUnknown is only used internally for endpoints that have not been
// observed yet; IsAvailable treats it as unavailable.
type Status int

const (
	StatusUnknown Status = iota
	StatusAvailable
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "available":
		*s = StatusAvailable
	case "unavailable":
		*s = StatusUnavailable
	default:
		*s = StatusUnknown
	}
	return nil
}

func statusOf(available bool) Status {
	if available {
		return StatusAvailable
	}
	return StatusUnavailable
}

// Result represents the outcome of a single health check.
type Result struct {
	Endpoint  endpoint.Identity
	Healthy   bool
	Latency   time.Duration
	Error     error
	Timestamp time.Time

	// Info carries optional server details reported by the checker, such as
	// the server version or database name.
	Info map[string]string
}

// Record is the last known availability verdict for one endpoint.
type Record struct {
	Identity   endpoint.Identity `json:"endpoint"`
	Available  bool              `json:"available"`
	ObservedAt time.Time         `json:"observed_at"`
}

// Status returns the record's availability as a Status.
func (r Record) Status() Status {
	return statusOf(r.Available)
}

// Reason values for Transition.
const (
	ReasonRefresh   = "refresh"
	ReasonDowngrade = "downgrade"
)

// Transition describes a change in an endpoint's cached availability.
type Transition struct {
	Endpoint endpoint.Identity `json:"endpoint"`
	From     Status            `json:"from"`
	To       Status            `json:"to"`
	At       time.Time         `json:"at"`
	Reason   string            `json:"reason"`
}
