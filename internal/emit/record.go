package emit

import (
	"time"

	"github.com/roach88/sqlpoll/internal/value"
)

// Record is the output form of one row.
type Record struct {
	// ID uniquely identifies the record.
	ID string

	// CycleID identifies the cycle that produced the record.
	CycleID string

	// Seq is the position of the record within its cycle, starting at 1.
	Seq int64

	// Timestamp is when the record was created.
	Timestamp time.Time

	// Fields holds the row's columns.
	Fields value.Row

	// Type, Tags and Metadata are attached by decorators.
	Type     string
	Tags     []string
	Metadata map[string]string
}

// MarshalJSON encodes the record deterministically: keys sorted, no HTML
// escaping, NFC-normalized strings. Empty decoration fields are omitted.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := map[string]any{
		"id":        r.ID,
		"cycle_id":  r.CycleID,
		"seq":       r.Seq,
		"timestamp": r.Timestamp,
		"fields":    r.Fields,
	}
	if r.Type != "" {
		obj["type"] = r.Type
	}
	if len(r.Tags) > 0 {
		obj["tags"] = r.Tags
	}
	if len(r.Metadata) > 0 {
		obj["metadata"] = r.Metadata
	}
	return value.MarshalJSON(obj)
}
