package testutil

import (
	"context"
	"sync"

	"github.com/roach88/sqlpoll/internal/emit"
	"github.com/roach88/sqlpoll/internal/value"
)

// RecordingPublisher collects published records in memory.
//
// FailAt, when positive, makes the FailAt-th Publish call return Err
// without recording. Block, when set, is received from before every
// Publish so tests can hold a cycle in flight.
//
// Thread-safety: safe for concurrent use.
type RecordingPublisher struct {
	FailAt int
	Err    error
	Block  chan struct{}

	mu      sync.Mutex
	calls   int
	records []emit.Record
}

// Publish records r.
func (p *RecordingPublisher) Publish(ctx context.Context, r emit.Record) error {
	if p.Block != nil {
		select {
		case <-p.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.FailAt > 0 && p.calls == p.FailAt {
		return p.Err
	}
	p.records = append(p.records, r)
	return nil
}

// Records returns a copy of everything published so far.
func (p *RecordingPublisher) Records() []emit.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]emit.Record(nil), p.records...)
}

// Fields returns the field maps of everything published so far.
func (p *RecordingPublisher) Fields() []value.Row {
	records := p.Records()
	out := make([]value.Row, len(records))
	for i, r := range records {
		out[i] = r.Fields
	}
	return out
}

// Len returns the number of records published.
func (p *RecordingPublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}
