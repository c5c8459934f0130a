package store

import (
	"context"
	"fmt"

	"dublette/internal/resolver"
)

// LogUsage implements resolver.UsageLogger.
func (s *Store) LogUsage(ctx context.Context, entry *resolver.UsageEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_usage_log (
			batch_id, pair_hash, model, tokens_in, tokens_out,
			cost_usd, was_cached
		) VALUES (?,?,?,?,?,?,?)`,
		entry.BatchID, entry.PairHash, nullString(entry.Model),
		entry.InputTokens, entry.OutputTokens, entry.CostUSD, entry.WasCached)
	if err != nil {
		return fmt.Errorf("%w: usage log write: %v", ErrInternal, err)
	}
	return nil
}

// UsageSummary aggregates the cost ledger for display.
type UsageSummary struct {
	Calls        int
	CacheHits    int
	TokensIn     int
	TokensOut    int
	TotalCostUSD float64
}

// SummarizeUsage totals the ledger, optionally scoped to one batch.
func (s *Store) SummarizeUsage(ctx context.Context, batchID string) (*UsageSummary, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(was_cached), 0),
			COALESCE(SUM(tokens_in), 0),
			COALESCE(SUM(tokens_out), 0),
			COALESCE(SUM(cost_usd), 0)
		FROM ai_usage_log`
	args := []interface{}{}
	if batchID != "" {
		query += ` WHERE batch_id=?`
		args = append(args, batchID)
	}
	var sum UsageSummary
	if err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&sum.Calls, &sum.CacheHits, &sum.TokensIn, &sum.TokensOut, &sum.TotalCostUSD); err != nil {
		return nil, fmt.Errorf("%w: summarize usage: %v", ErrInternal, err)
	}
	return &sum, nil
}
