package emit

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Queue.Publish after Close.
var ErrQueueClosed = errors.New("queue closed")

// DefaultQueueSize is the capacity used when NewQueue is given a
// non-positive size.
const DefaultQueueSize = 256

// Queue is a bounded FIFO between the emitter and the consuming pipeline.
//
// Publish blocks while the queue is full, which is the backpressure the
// emitter passes on to the cycle. Records are delivered in publish order.
//
// Once the sink fails (see Fail) the failure is sticky: Publish and Flush
// return it, so a cycle cannot advance past records that were never
// delivered.
//
// Thread-safety: Publish, Flush and Close may be called from any goroutine;
// a single consumer reads from Records.
type Queue struct {
	mu     sync.RWMutex
	ch     chan Record
	done   chan struct{}
	once   sync.Once
	closed bool

	// pmu guards the delivery accounting below.
	pmu      sync.Mutex
	pending  int
	err      error
	failed   chan struct{}
	flushers []chan struct{}
}

// NewQueue creates a queue holding up to size records.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:     make(chan Record, size),
		done:   make(chan struct{}),
		failed: make(chan struct{}),
	}
}

// Publish enqueues r, waiting for space if the queue is full.
func (q *Queue) Publish(ctx context.Context, r Record) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if err := q.Err(); err != nil {
		return err
	}

	q.track(1)
	select {
	case q.ch <- r:
		return nil
	case <-q.done:
		q.track(-1)
		return ErrQueueClosed
	case <-ctx.Done():
		q.track(-1)
		return ctx.Err()
	}
}

// Flush waits until every published record has been handed to the sink and
// returns the sink failure, if any.
func (q *Queue) Flush(ctx context.Context) error {
	q.pmu.Lock()
	if q.err != nil || q.pending == 0 {
		err := q.err
		q.pmu.Unlock()
		return err
	}
	wait := make(chan struct{})
	q.flushers = append(q.flushers, wait)
	q.pmu.Unlock()

	select {
	case <-wait:
		return q.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail records err as the sink failure. Only the first failure is kept.
func (q *Queue) Fail(err error) {
	q.pmu.Lock()
	defer q.pmu.Unlock()
	if q.err != nil || err == nil {
		return
	}
	q.err = err
	close(q.failed)
	q.wake()
}

// Err returns the sink failure, or nil.
func (q *Queue) Err() error {
	q.pmu.Lock()
	defer q.pmu.Unlock()
	return q.err
}

// Failed is closed when the sink fails.
func (q *Queue) Failed() <-chan struct{} {
	return q.failed
}

func (q *Queue) track(delta int) {
	q.pmu.Lock()
	defer q.pmu.Unlock()
	q.pending += delta
	if q.pending == 0 {
		q.wake()
	}
}

// wake releases waiting flushers. Must hold pmu.
func (q *Queue) wake() {
	for _, w := range q.flushers {
		close(w)
	}
	q.flushers = nil
}

// Records returns the consumer side of the queue. The channel is closed by
// Close once every pending Publish has returned; records already queued
// remain readable.
func (q *Queue) Records() <-chan Record {
	return q.ch
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting records. Publishers blocked on a full queue return
// ErrQueueClosed. Close is idempotent.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)

		q.mu.Lock()
		defer q.mu.Unlock()
		q.closed = true
		close(q.ch)
	})
}

// Drain forwards queued records to p until the queue is closed and empty.
// The first error from p fails the queue and is returned; records after a
// failure are discarded so that publishers are never left blocked.
func Drain(ctx context.Context, q *Queue, p Publisher) error {
	for r := range q.Records() {
		if q.Err() == nil {
			if err := p.Publish(ctx, r); err != nil {
				q.Fail(err)
			}
		}
		q.track(-1)
	}
	return q.Err()
}
