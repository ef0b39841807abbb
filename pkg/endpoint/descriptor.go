// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrEmptyTarget is returned when an endpoint is configured without a target.
var ErrEmptyTarget = errors.New("endpoint target cannot be empty")

// Descriptor binds an identity to its connection target. The target is an
// opaque connection string: a PostgreSQL URL or keyword/value DSN, or a
// tcp://host:port address for plain reachability checks.
type Descriptor struct {
	Identity Identity
	Target   string
}

// Scheme returns the connection scheme of the target: "postgres" for
// PostgreSQL URLs and keyword/value DSNs, "tcp" for tcp:// targets, or the
// URL scheme as written for anything else.
func (d Descriptor) Scheme() string {
	u, err := url.Parse(d.Target)
	if err != nil || u.Scheme == "" || !strings.Contains(d.Target, "://") {
		// Keyword/value DSN such as "host=db1 port=5432 dbname=app".
		return "postgres"
	}
	switch s := strings.ToLower(u.Scheme); s {
	case "postgres", "postgresql":
		return "postgres"
	default:
		return s
	}
}

var dsnPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// Redacted returns the target with any password removed, suitable for logs.
func (d Descriptor) Redacted() string {
	if strings.Contains(d.Target, "://") {
		u, err := url.Parse(d.Target)
		if err == nil {
			return u.Redacted()
		}
	}
	return dsnPassword.ReplaceAllString(d.Target, "${1}xxxxx")
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s)", d.Identity, d.Redacted())
}

// Set is the static endpoint topology: one primary, one standby and an
// ordered list of replicas. It is immutable after construction.
type Set struct {
	primary  Descriptor
	standby  Descriptor
	replicas []Descriptor
}

// NewSet builds a Set from connection targets. Replica identities follow the
// order of replicaTargets.
func NewSet(primaryTarget, standbyTarget string, replicaTargets []string) (*Set, error) {
	if strings.TrimSpace(primaryTarget) == "" {
		return nil, fmt.Errorf("primary: %w", ErrEmptyTarget)
	}
	if strings.TrimSpace(standbyTarget) == "" {
		return nil, fmt.Errorf("standby: %w", ErrEmptyTarget)
	}

	s := &Set{
		primary:  Descriptor{Identity: Primary, Target: primaryTarget},
		standby:  Descriptor{Identity: Standby, Target: standbyTarget},
		replicas: make([]Descriptor, 0, len(replicaTargets)),
	}
	for i, target := range replicaTargets {
		if strings.TrimSpace(target) == "" {
			return nil, fmt.Errorf("%s: %w", Replica(i), ErrEmptyTarget)
		}
		s.replicas = append(s.replicas, Descriptor{Identity: Replica(i), Target: target})
	}
	return s, nil
}

// Primary returns the primary descriptor.
func (s *Set) Primary() Descriptor {
	return s.primary
}

// Standby returns the standby descriptor.
func (s *Set) Standby() Descriptor {
	return s.standby
}

// Replicas returns a copy of the replica descriptors in configured order.
func (s *Set) Replicas() []Descriptor {
	out := make([]Descriptor, len(s.replicas))
	copy(out, s.replicas)
	return out
}

// ReplicaCount returns the number of configured replicas.
func (s *Set) ReplicaCount() int {
	return len(s.replicas)
}

// All returns every descriptor: primary, standby, then replicas in order.
func (s *Set) All() []Descriptor {
	out := make([]Descriptor, 0, 2+len(s.replicas))
	out = append(out, s.primary, s.standby)
	return append(out, s.replicas...)
}

// Len returns the total number of configured endpoints.
func (s *Set) Len() int {
	return 2 + len(s.replicas)
}

// Lookup returns the descriptor for id.
func (s *Set) Lookup(id Identity) (Descriptor, bool) {
	switch id.Role() {
	case RolePrimary:
		return s.primary, true
	case RoleStandby:
		return s.standby, true
	case RoleReplica:
		if id.Index() >= 0 && id.Index() < len(s.replicas) {
			return s.replicas[id.Index()], true
		}
	}
	return Descriptor{}, false
}
