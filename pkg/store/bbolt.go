// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/loganrossus/strongdb/pkg/health"
	"github.com/loganrossus/strongdb/pkg/metrics"
)

var (
	bucketName = []byte("transitions")
)

// BboltJournal implements Journal using BoltDB. Keys are big-endian
// sequence numbers so a cursor walks entries in append order.
type BboltJournal struct {
	db         *bolt.DB
	maxEntries int

	mu     sync.RWMutex
	closed bool
}

// NewBboltJournal opens (or creates) the journal at path. A maxEntries
// <= 0 uses DefaultMaxEntries.
func NewBboltJournal(path string, maxEntries int) (*BboltJournal, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	// Initialize bucket
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BboltJournal{
		db:         db,
		maxEntries: maxEntries,
	}, nil
}

// Append stores tr under the next sequence number and prunes the oldest
// entries beyond the retention limit in the same transaction.
func (j *BboltJournal) Append(ctx context.Context, tr health.Transition) (Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return Entry{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	var entry Entry
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry = Entry{Seq: seq, Transition: tr}

		val, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), val); err != nil {
			return err
		}
		return prune(b, seq, j.maxEntries)
	})
	metrics.RecordJournalAppend(err == nil)
	if err != nil {
		return Entry{}, fmt.Errorf("append transition: %w", err)
	}
	return entry, nil
}

// prune deletes every entry at or below newest-max. Entries are only ever
// removed from the oldest end, so the retained keys stay contiguous.
func prune(b *bolt.Bucket, newest uint64, max int) error {
	if newest <= uint64(max) {
		return nil
	}
	floor := newest - uint64(max)
	c := b.Cursor()
	for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= floor; k, _ = c.First() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

// List returns up to limit entries, newest first.
func (j *BboltJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("%w: seq %d: %v", ErrCorrupt, binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// Len returns the number of retained entries.
func (j *BboltJournal) Len() (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}

	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the journal.
func (j *BboltJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
