// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

// Package store persists the availability transition journal: every change
// the health cache makes to an endpoint's verdict, in the order it happened.
package store

import (
	"context"

	"github.com/loganrossus/strongdb/pkg/health"
)

// Entry is one journaled transition. Seq increases monotonically for the
// lifetime of the journal file and survives pruning.
type Entry struct {
	Seq uint64 `json:"seq"`
	health.Transition
}

// Journal defines the interface for transition storage.
type Journal interface {
	// Append stores a transition and returns the entry it was stored as.
	Append(ctx context.Context, tr health.Transition) (Entry, error)

	// List returns up to limit entries, newest first. A limit <= 0
	// returns every entry.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Len returns the number of retained entries.
	Len() (int, error)

	// Close closes the journal and releases resources.
	Close() error
}

// Common errors
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrClosed  = Error("journal closed")
	ErrCorrupt = Error("journal entry corrupt")
)
