package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Cycle status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Cycle is one entry of an instance's execution history.
type Cycle struct {
	ID         string
	Instance   string
	Seq        int64
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       int64
	Status     string
	ErrorCode  string
	Error      string
}

// Duration returns how long the cycle ran.
func (c Cycle) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// RecordCycle appends c to the history. Recording the same cycle ID twice is
// a no-op.
func (s *Store) RecordCycle(ctx context.Context, c Cycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
		(id, instance, seq, started_at, finished_at, rows, status, error_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.Instance,
		c.Seq,
		c.StartedAt.UTC().Format(time.RFC3339Nano),
		c.FinishedAt.UTC().Format(time.RFC3339Nano),
		c.Rows,
		c.Status,
		c.ErrorCode,
		c.Error,
	)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	return nil
}

// ListCycles returns the most recent cycles of instance, newest first.
// A non-positive limit returns the whole history.
func (s *Store) ListCycles(ctx context.Context, instance string, limit int) ([]Cycle, error) {
	q := `
		SELECT id, instance, seq, started_at, finished_at, rows, status, error_code, error
		FROM cycles
		WHERE instance = ?
		ORDER BY seq DESC, id ASC
	`
	args := []any{instance}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var (
			c                 Cycle
			started, finished string
		)
		if err := rows.Scan(&c.ID, &c.Instance, &c.Seq, &started, &finished, &c.Rows, &c.Status, &c.ErrorCode, &c.Error); err != nil {
			return nil, fmt.Errorf("list cycles: scan: %w", err)
		}
		if c.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("list cycles: started_at: %w", err)
		}
		if c.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("list cycles: finished_at: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LastSeq returns the highest recorded sequence number of instance, or 0.
func (s *Store) LastSeq(ctx context.Context, instance string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM cycles WHERE instance = ?`, instance).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
