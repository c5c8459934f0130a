package store

import (
	"context"
	"fmt"

	"dublette/internal/canonical"
	"dublette/internal/logging"
	"dublette/internal/match"
)

// CanonicalResult pairs a synthesized canonical with the source ids backing
// it.
type CanonicalResult struct {
	Canonical canonical.Canonical
	SourceIDs []string
}

// ReplaceResults atomically swaps in a pipeline run's output: existing match
// decisions, source links, and canonical events are deleted before the new
// set is inserted. Source events, cache, ledger, and audit log are untouched.
func (s *Store) ReplaceResults(ctx context.Context, decisions []match.DecisionRecord, canonicals []CanonicalResult) error {
	timer := logging.StartTimer(logging.CategoryStore, "ReplaceResults")
	defer timer.Stop()

	err := s.WithTx(ctx, func(tx *Tx) error {
		for _, table := range []string{"match_decisions", "canonical_event_sources", "canonical_events"} {
			if _, err := tx.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("%w: clear %s: %v", ErrInternal, table, err)
			}
		}
		for i := range decisions {
			if err := tx.insertDecision(ctx, &decisions[i]); err != nil {
				return err
			}
		}
		for i := range canonicals {
			if err := tx.insertCanonical(ctx, &canonicals[i].Canonical, canonicals[i].SourceIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.Store("replaced results: %d decisions, %d canonicals", len(decisions), len(canonicals))
	return nil
}
