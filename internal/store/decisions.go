package store

import (
	"context"
	"fmt"

	"dublette/internal/match"
)

func (t *Tx) insertDecision(ctx context.Context, d *match.DecisionRecord) error {
	if d.EventA >= d.EventB {
		return fmt.Errorf("%w: decision pair %s/%s not in canonical order", ErrInvalidInput, d.EventA, d.EventB)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO match_decisions (
			event_id_a, event_id_b, date_score, geo_score, title_score,
			description_score, combined_score, decision, tier
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		d.EventA, d.EventB, d.DateScore, d.GeoScore, d.TitleScore,
		d.DescriptionScore, d.CombinedScore, string(d.Decision), string(d.Tier))
	if err != nil {
		return fmt.Errorf("%w: insert decision %s/%s: %v", ErrInternal, d.EventA, d.EventB, err)
	}
	return nil
}

// ListDecisions returns all stored decisions in (event_id_a, event_id_b)
// order, the order they were produced in.
func (s *Store) ListDecisions(ctx context.Context) ([]match.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id_a, event_id_b, date_score, geo_score, title_score,
			description_score, combined_score, decision, tier
		FROM match_decisions ORDER BY event_id_a, event_id_b`)
	if err != nil {
		return nil, fmt.Errorf("%w: list decisions: %v", ErrInternal, err)
	}
	defer rows.Close()

	var decisions []match.DecisionRecord
	for rows.Next() {
		var d match.DecisionRecord
		var decision, tier string
		if err := rows.Scan(&d.EventA, &d.EventB, &d.DateScore, &d.GeoScore,
			&d.TitleScore, &d.DescriptionScore, &d.CombinedScore, &decision, &tier); err != nil {
			return nil, fmt.Errorf("%w: scan decision: %v", ErrInternal, err)
		}
		d.Decision = match.Decision(decision)
		d.Tier = match.Tier(tier)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list decisions: %v", ErrInternal, err)
	}
	return decisions, nil
}
