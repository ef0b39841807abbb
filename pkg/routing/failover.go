// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package routing

import "github.com/loganrossus/strongdb/pkg/endpoint"

// WriteChain returns the ordered candidates for writes: the primary, then
// the standby. The first available candidate that accepts a connection
// serves the write; replicas never appear in the chain.
func WriteChain(set *endpoint.Set) []endpoint.Descriptor {
	return []endpoint.Descriptor{set.Primary(), set.Standby()}
}

// IsDegraded reports whether serving intent on id is a fallback: a write on
// anything other than the primary, or a read on anything other than a
// replica.
func IsDegraded(intent Intent, id endpoint.Identity) bool {
	if intent == IntentWrite {
		return id != endpoint.Primary
	}
	return !id.IsReplica()
}
