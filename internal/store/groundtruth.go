package store

import (
	"context"
	"fmt"

	"dublette/internal/match"
)

// Label is a ground-truth annotation for one unordered pair.
type Label struct {
	EventA string
	EventB string
	Label  string // same, different, ambiguous
}

// UpsertLabels stores ground-truth pairs, normalizing id order.
func (s *Store) UpsertLabels(ctx context.Context, labels []Label) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		for _, l := range labels {
			a, b := match.OrderPair(l.EventA, l.EventB)
			if a == b {
				return fmt.Errorf("%w: label pair with identical ids %s", ErrInvalidInput, a)
			}
			if _, err := tx.tx.ExecContext(ctx, `
				INSERT INTO ground_truth_pairs (event_id_a, event_id_b, label)
				VALUES (?,?,?)
				ON CONFLICT(event_id_a, event_id_b) DO UPDATE SET
					label=excluded.label,
					created_at=CURRENT_TIMESTAMP`,
				a, b, l.Label); err != nil {
				return fmt.Errorf("%w: upsert label %s/%s: %v", ErrInternal, a, b, err)
			}
		}
		return nil
	})
}

// ListLabels returns all ground-truth pairs in canonical pair order.
func (s *Store) ListLabels(ctx context.Context) ([]Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id_a, event_id_b, label
		FROM ground_truth_pairs ORDER BY event_id_a, event_id_b`)
	if err != nil {
		return nil, fmt.Errorf("%w: list labels: %v", ErrInternal, err)
	}
	defer rows.Close()
	var out []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.EventA, &l.EventB, &l.Label); err != nil {
			return nil, fmt.Errorf("%w: scan label: %v", ErrInternal, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
