// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package store

import (
	"fmt"
)

// JournalType identifies the type of journal backend.
type JournalType string

const (
	// JournalBBolt uses embedded bbolt for local persistence.
	JournalBBolt JournalType = "bbolt"
)

// DefaultMaxEntries bounds a journal created without an explicit limit.
const DefaultMaxEntries = 10000

// Config holds configuration for creating a journal.
type Config struct {
	// Type specifies the journal backend type. Only "bbolt" is supported.
	Type JournalType

	// Path is the file path for bbolt database.
	Path string

	// MaxEntries bounds the number of retained entries.
	MaxEntries int
}

// New creates a new journal based on the provided configuration.
func New(cfg Config) (Journal, error) {
	switch cfg.Type {
	case JournalBBolt, "": // Empty defaults to bbolt
		return NewBboltJournal(cfg.Path, cfg.MaxEntries)
	default:
		return nil, fmt.Errorf("unsupported journal type: %s (only 'bbolt' is supported)", cfg.Type)
	}
}
