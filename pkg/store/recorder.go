// Copyright (C) 2025 Logan Ross
//
// This file is part of OpenGSLB – https://opengslb.org
//
// SPDX-License-Identifier: AGPL-3.0-or-later OR LicenseRef-OpenGSLB-Commercial

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/loganrossus/strongdb/pkg/health"
	"github.com/loganrossus/strongdb/pkg/metrics"
)

// DefaultRecorderBuffer is the number of transitions a Recorder queues
// before it starts dropping.
const DefaultRecorderBuffer = 256

const appendTimeout = 2 * time.Second

// Recorder appends transitions to a journal on its own goroutine. Record
// never blocks, so it is safe to register as a health.Cache listener.
type Recorder struct {
	journal Journal
	queue   chan health.Transition
	done    chan struct{}
	logger  *slog.Logger
}

// NewRecorder creates a recorder for j. A buffer <= 0 uses
// DefaultRecorderBuffer.
func NewRecorder(j Journal, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		journal: j,
		queue:   make(chan health.Transition, buffer),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Record queues tr, dropping it when the queue is full.
func (r *Recorder) Record(tr health.Transition) {
	select {
	case r.queue <- tr:
	default:
		metrics.RecordJournalAppend(false)
		r.logger.Warn("transition journal queue full, dropping transition",
			"endpoint", tr.Endpoint.String(),
			"to", tr.To.String(),
		)
	}
}

// Run appends queued transitions until ctx is canceled, then flushes what
// is still queued and closes Done.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	appendCtx := context.WithoutCancel(ctx)
	for {
		select {
		case tr := <-r.queue:
			r.append(appendCtx, tr)
		case <-ctx.Done():
			r.flush(appendCtx)
			return
		}
	}
}

// Done is closed when Run has returned.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) flush(ctx context.Context) {
	for {
		select {
		case tr := <-r.queue:
			r.append(ctx, tr)
		default:
			return
		}
	}
}

func (r *Recorder) append(ctx context.Context, tr health.Transition) {
	ctx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()

	entry, err := r.journal.Append(ctx, tr)
	if err != nil {
		r.logger.Error("failed to journal transition",
			"endpoint", tr.Endpoint.String(),
			"error", err,
		)
		return
	}
	r.logger.Debug("transition journaled",
		"seq", entry.Seq,
		"endpoint", tr.Endpoint.String(),
		"from", tr.From.String(),
		"to", tr.To.String(),
		"reason", tr.Reason,
	)
}
