package emit

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// LineWriter publishes each record as one line of JSON to an io.Writer.
type LineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineWriter creates a LineWriter writing to w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// Publish implements Publisher.
func (lw *LineWriter) Publish(_ context.Context, r Record) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')

	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err = lw.w.Write(data)
	return err
}
