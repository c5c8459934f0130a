package store

import (
	"context"
	"database/sql"
	"fmt"

	"dublette/internal/resolver"
)

// GetVerdict implements resolver.Cache. A miss returns (nil, nil).
func (s *Store) GetVerdict(ctx context.Context, pairHash string) (*resolver.CacheEntry, error) {
	var e resolver.CacheEntry
	var reasoning sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT pair_hash, model, verdict, confidence, reasoning,
			input_tokens, output_tokens, created_at
		FROM ai_match_cache WHERE pair_hash=?`, pairHash).
		Scan(&e.PairHash, &e.Model, &e.Verdict, &e.Confidence, &reasoning,
			&e.InputTokens, &e.OutputTokens, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cache lookup %s: %v", ErrInternal, pairHash, err)
	}
	e.Reasoning = reasoning.String
	return &e, nil
}

// PutVerdict implements resolver.Cache. The model may change between runs,
// so a newer verdict for the same hash replaces the stale one.
func (s *Store) PutVerdict(ctx context.Context, entry *resolver.CacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_match_cache (
			pair_hash, model, verdict, confidence, reasoning,
			input_tokens, output_tokens
		) VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(pair_hash) DO UPDATE SET
			model=excluded.model,
			verdict=excluded.verdict,
			confidence=excluded.confidence,
			reasoning=excluded.reasoning,
			input_tokens=excluded.input_tokens,
			output_tokens=excluded.output_tokens,
			created_at=CURRENT_TIMESTAMP`,
		entry.PairHash, entry.Model, entry.Verdict, entry.Confidence,
		nullString(entry.Reasoning), entry.InputTokens, entry.OutputTokens)
	if err != nil {
		return fmt.Errorf("%w: cache write %s: %v", ErrInternal, entry.PairHash, err)
	}
	return nil
}
