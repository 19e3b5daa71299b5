package schedule

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall-clock time for sql_last_start and cycle reports.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sequence is a monotonic logical counter numbering cycles.
//
// Unlike wall-clock time it never goes backwards, so cycle history can be
// ordered by seq even across clock adjustments.
//
// Thread-safety: Sequence is safe for concurrent use.
type Sequence struct {
	seq atomic.Int64
}

// NewSequenceAt creates a sequence whose next value is start+1. Used to
// resume numbering from persisted history.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next increments the sequence and returns the new value.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
