package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/sqlpoll/internal/value"
)

// SaveParams replaces the persisted parameters of instance with params.
// The replacement is atomic: readers see either the old or the new set.
func (s *Store) SaveParams(ctx context.Context, instance string, params value.Params) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save params: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM parameters WHERE instance = ?`, instance); err != nil {
		return fmt.Errorf("save params: clear: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, name := range params.SortedKeys() {
		kind, text := value.EncodeText(params[name])
		_, err := tx.ExecContext(ctx, `
			INSERT INTO parameters (instance, name, kind, value, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, instance, name, string(kind), text, now)
		if err != nil {
			return fmt.Errorf("save params: insert %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save params: commit: %w", err)
	}
	return nil
}

// LoadParams returns the persisted parameters of instance. An instance with
// no saved state yields an empty, non-nil map.
func (s *Store) LoadParams(ctx context.Context, instance string) (value.Params, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, value FROM parameters
		WHERE instance = ?
		ORDER BY name ASC
	`, instance)
	if err != nil {
		return nil, fmt.Errorf("load params: %w", err)
	}
	defer rows.Close()

	params := value.Params{}
	for rows.Next() {
		var name, kind, text string
		if err := rows.Scan(&name, &kind, &text); err != nil {
			return nil, fmt.Errorf("load params: scan: %w", err)
		}
		v, err := value.DecodeText(value.Kind(kind), text)
		if err != nil {
			return nil, fmt.Errorf("load params: %q: %w", name, err)
		}
		params[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load params: %w", err)
	}
	return params, nil
}

// ClearParams deletes the persisted parameters of instance.
func (s *Store) ClearParams(ctx context.Context, instance string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parameters WHERE instance = ?`, instance); err != nil {
		return fmt.Errorf("clear params: %w", err)
	}
	return nil
}
