// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/askr/internal/logging"
)

// DefaultInterval is the delay between revealed runs.
const DefaultInterval = 30 * time.Millisecond

// Sink appends one revealed run to a message.
type Sink func(id, run string)

// Revealer schedules text runs per message.
type Revealer struct {
	sink Sink

	mu       sync.Mutex
	interval time.Duration
	queues   map[string]*queue
}

type queue struct {
	id      string
	runs    []string
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// emit is held across the cancel check and the sink call.
	emit sync.Mutex
}

// New creates a Revealer that writes runs to sink. A negative interval means
// DefaultInterval; zero disables pacing.
func New(sink Sink, interval time.Duration) *Revealer {
	if interval < 0 {
		interval = DefaultInterval
	}
	return &Revealer{
		sink:     sink,
		interval: interval,
		queues:   make(map[string]*queue),
	}
}

func limitFor(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

// Enqueue schedules fragment for message id and returns immediately.
func (r *Revealer) Enqueue(id, fragment string) {
	runs := Split(fragment)
	if len(runs) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if q, ok := r.queues[id]; ok {
		q.runs = append(q.runs, runs...)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &queue{
		id:      id,
		runs:    runs,
		limiter: rate.NewLimiter(limitFor(r.interval), 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.queues[id] = q
	logging.L.Debug("reveal queue started", "message_id", id, "runes", runeCount(runs))
	go r.drain(q)
}

// drain reveals runs until the queue is empty or cancelled.
func (r *Revealer) drain(q *queue) {
	defer close(q.done)

	for {
		run, ok := r.next(q)
		if !ok {
			return
		}
		if err := q.limiter.Wait(q.ctx); err != nil {
			r.forget(q)
			return
		}
		if !r.emit(q, run) {
			r.forget(q)
			return
		}
	}
}

// emit writes run to the sink unless q was cancelled first.
func (r *Revealer) emit(q *queue, run string) bool {
	q.emit.Lock()
	defer q.emit.Unlock()
	if q.ctx.Err() != nil {
		return false
	}
	r.sink(q.id, run)
	return true
}

// next pops the head run. An empty queue is removed from the map under the
// same lock so a concurrent Enqueue starts a fresh queue.
func (r *Revealer) next(q *queue) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q.ctx.Err() != nil || len(q.runs) == 0 {
		if r.queues[q.id] == q {
			delete(r.queues, q.id)
		}
		q.cancel()
		return "", false
	}
	run := q.runs[0]
	q.runs[0] = ""
	q.runs = q.runs[1:]
	return run, true
}

func (r *Revealer) forget(q *queue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queues[q.id] == q {
		delete(r.queues, q.id)
	}
}

// Wait blocks until every run queued for id has been revealed or cancelled,
// or until ctx is done.
func (r *Revealer) Wait(ctx context.Context, id string) error {
	r.mu.Lock()
	q, ok := r.queues[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel drops every pending run for id. A sink call already in progress
// finishes before Cancel returns and none follows it. The sink must not call
// Cancel or CancelAll.
func (r *Revealer) Cancel(id string) {
	r.mu.Lock()
	q, ok := r.queues[id]
	if ok {
		q.cancel()
		q.runs = nil
		delete(r.queues, id)
	}
	r.mu.Unlock()

	if ok {
		settle(q)
		logging.L.Debug("reveal queue cancelled", "message_id", id)
	}
}

// CancelAll drops every pending run for every message, with the same
// guarantee as Cancel.
func (r *Revealer) CancelAll() {
	r.mu.Lock()
	cancelled := make([]*queue, 0, len(r.queues))
	for id, q := range r.queues {
		q.cancel()
		q.runs = nil
		delete(r.queues, id)
		cancelled = append(cancelled, q)
	}
	r.mu.Unlock()

	for _, q := range cancelled {
		settle(q)
	}
}

// settle waits out a sink call that started before q was cancelled.
func settle(q *queue) {
	q.emit.Lock()
	q.emit.Unlock()
}

// SetInterval changes the pacing for current and future queues.
func (r *Revealer) SetInterval(d time.Duration) {
	if d < 0 {
		d = DefaultInterval
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interval = d
	for _, q := range r.queues {
		q.limiter.SetLimit(limitFor(d))
	}
}

// Interval returns the current pacing interval.
func (r *Revealer) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// Pending returns the number of runs still queued for id.
func (r *Revealer) Pending(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q, ok := r.queues[id]; ok {
		return len(q.runs)
	}
	return 0
}
