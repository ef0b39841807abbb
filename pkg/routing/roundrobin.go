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

package routing

import "github.com/loganrossus/strongdb/pkg/endpoint"

// RoundRobin rotates over replicas by their configured ordinal. The cursor
// is the ordinal to start searching from; the next candidate is the first
// available replica at or after it, wrapping around. Claiming a replica
// moves the cursor just past it, so each available replica is served once
// per cycle regardless of which others come and go. A claim whose session
// fails advances the cursor as well; the failed replica is downgraded by the
// Router. A claim abandoned on cancellation is handed back with Release.
//
// RoundRobin is not safe for concurrent use; the Router serializes access.
type RoundRobin struct {
	cursor int
	size   int
}

// NewRoundRobin creates a rotation over size replica ordinals.
func NewRoundRobin(size int) *RoundRobin {
	return &RoundRobin{size: size}
}

// Cursor returns the ordinal the next search starts from.
func (rr *RoundRobin) Cursor() int {
	return rr.cursor
}

// Next claims the next replica from available, which must be in ordinal
// order. It returns false when available is empty.
func (rr *RoundRobin) Next(available []endpoint.Identity) (endpoint.Identity, bool) {
	if len(available) == 0 || rr.size == 0 {
		return endpoint.Identity{}, false
	}

	chosen := available[0]
	for _, id := range available {
		if id.Index() >= rr.cursor {
			chosen = id
			break
		}
	}
	rr.cursor = (chosen.Index() + 1) % rr.size
	return chosen, true
}

// Release returns the turn of an unused claim on id, provided no later claim
// has moved the cursor since.
func (rr *RoundRobin) Release(id endpoint.Identity) {
	if rr.size == 0 {
		return
	}
	if rr.cursor == (id.Index()+1)%rr.size {
		rr.cursor = id.Index()
	}
}
