// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package endpoint describes the database endpoints known to the router:
// one primary, one standby and an ordered list of read replicas.
package endpoint

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the replication role an endpoint plays in the topology.
type Role int

const (
	RoleUnknown Role = iota
	RolePrimary
	RoleStandby
	RoleReplica
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleStandby:
		return "standby"
	case RoleReplica:
		return "replica"
	default:
		return "unknown"
	}
}

// Identity names one configured endpoint. It is comparable and safe to use
// as a map key. The zero value is not a valid identity.
type Identity struct {
	role  Role
	index int
}

var (
	// Primary is the sole endpoint authoritative for writes.
	Primary = Identity{role: RolePrimary}
	// Standby is the warm secondary used for emergency reads and writes.
	Standby = Identity{role: RoleStandby}
)

// Replica returns the identity of the i-th configured replica (0-based).
func Replica(i int) Identity {
	return Identity{role: RoleReplica, index: i}
}

// Role returns the replication role.
func (id Identity) Role() Role {
	return id.role
}

// Index returns the replica ordinal. It is 0 for primary and standby.
func (id Identity) Index() int {
	return id.index
}

// IsReplica reports whether id names a read replica.
func (id Identity) IsReplica() bool {
	return id.role == RoleReplica
}

// IsZero reports whether id is the zero (unset) identity.
func (id Identity) IsZero() bool {
	return id.role == RoleUnknown
}

// String returns "primary", "standby" or "replica-N" where N is 1-based.
func (id Identity) String() string {
	if id.role == RoleReplica {
		return "replica-" + strconv.Itoa(id.index+1)
	}
	return id.role.String()
}

// MarshalText implements encoding.TextMarshaler so identities can be used
// as JSON object keys.
func (id Identity) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero endpoint identity")
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity parses the form produced by Identity.String. "replica1" and
// "Replica1" are accepted as well.
func ParseIdentity(s string) (Identity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "primary":
		return Primary, nil
	case "standby":
		return Standby, nil
	}

	if rest, ok := strings.CutPrefix(v, "replica"); ok {
		rest = strings.TrimPrefix(rest, "-")
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return Identity{}, fmt.Errorf("invalid replica identity %q", s)
		}
		return Replica(n - 1), nil
	}

	return Identity{}, fmt.Errorf("unknown endpoint identity %q", s)
}
