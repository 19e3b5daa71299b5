package emit

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/sqlpoll/internal/ident"
	"github.com/roach88/sqlpoll/internal/value"
)

// Publisher hands records to the consuming pipeline.
type Publisher interface {
	Publish(ctx context.Context, r Record) error
}

// Flusher is implemented by publishers that deliver asynchronously. Flush
// returns once every accepted record has been delivered, or the delivery
// failure.
type Flusher interface {
	Flush(ctx context.Context) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, r Record) error

// Publish calls f(ctx, r).
func (f PublisherFunc) Publish(ctx context.Context, r Record) error {
	return f(ctx, r)
}

// PublishError reports a record the publisher did not accept.
type PublishError struct {
	RecordID string
	Cause    error
}

func (e *PublishError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("deliver records: %v", e.Cause)
	}
	return fmt.Sprintf("publish record %s: %v", e.RecordID, e.Cause)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// Cycle identifies the cycle a row belongs to.
type Cycle struct {
	ID string
}

// Emitter turns rows into published records.
type Emitter struct {
	publisher Publisher
	decorator Decorator
	ids       ident.Generator
	now       func() time.Time
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithDecorator sets the decorator applied to every record.
func WithDecorator(d Decorator) Option {
	return func(e *Emitter) {
		e.decorator = d
	}
}

// WithIDs sets the record ID generator. Defaults to ident.UUIDv7.
func WithIDs(g ident.Generator) Option {
	return func(e *Emitter) {
		e.ids = g
	}
}

// WithNow sets the clock used for record timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Emitter) {
		e.now = now
	}
}

// NewEmitter creates an Emitter publishing to p.
func NewEmitter(p Publisher, opts ...Option) *Emitter {
	e := &Emitter{
		publisher: p,
		ids:       ident.UUIDv7{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit wraps row in a record, decorates it and publishes it. seq is the row's
// position in the cycle. A publisher failure is returned as *PublishError.
func (e *Emitter) Emit(ctx context.Context, cycle Cycle, seq int64, row value.Row) error {
	r := Record{
		ID:        e.ids.Generate(),
		CycleID:   cycle.ID,
		Seq:       seq,
		Timestamp: e.now(),
		Fields:    row,
	}
	if e.decorator != nil {
		e.decorator.Decorate(&r)
	}

	if err := e.publisher.Publish(ctx, r); err != nil {
		return &PublishError{RecordID: r.ID, Cause: err}
	}
	return nil
}

// Flush waits for the publisher to deliver every record emitted so far. It
// returns nil at once for synchronous publishers. A delivery failure is
// returned as *PublishError.
func (e *Emitter) Flush(ctx context.Context) error {
	f, ok := e.publisher.(Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(ctx); err != nil {
		return &PublishError{Cause: err}
	}
	return nil
}
