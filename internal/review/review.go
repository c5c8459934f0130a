// Package review implements the manual curation operations: splitting a
// source out of a canonical, merging two canonicals, and dismissing a review
// flag. Every operation is one transaction with an audit row; none re-runs
// scoring or clustering.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dublette/internal/canonical"
	"dublette/internal/logging"
	"dublette/internal/store"
)

// Service executes review operations against the store.
type Service struct {
	store    *store.Store
	operator string
}

// New binds a reviewer identity to the audit trail.
func New(s *store.Store, operator string) *Service {
	return &Service{store: s, operator: operator}
}

// Split detaches sourceID from canonicalID. The detached source joins
// targetID when given, otherwise it becomes a new singleton canonical. Both
// affected canonicals are re-synthesized with downgrade prevention and leave
// the review queue.
func (s *Service) Split(ctx context.Context, canonicalID, sourceID, targetID string) error {
	timer := logging.StartTimer(logging.CategoryReview, "Split")
	defer timer.Stop()

	if canonicalID == "" || sourceID == "" {
		return fmt.Errorf("%w: split requires canonical and source ids", store.ErrInvalidInput)
	}
	if targetID == canonicalID {
		return fmt.Errorf("%w: split target equals the canonical being split", store.ErrInvalidInput)
	}

	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		existing, err := tx.GetCanonical(ctx, canonicalID)
		if err != nil {
			return err
		}
		if err := tx.DeleteLink(ctx, canonicalID, sourceID); err != nil {
			return err
		}

		remaining, err := tx.ListLinks(ctx, canonicalID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := tx.DeleteCanonical(ctx, canonicalID); err != nil {
				return err
			}
		} else {
			if err := resynthesize(ctx, tx, existing, remaining); err != nil {
				return err
			}
		}

		if targetID != "" {
			if err := attachToTarget(ctx, tx, targetID, sourceID); err != nil {
				return err
			}
		} else {
			if err := createSingleton(ctx, tx, sourceID); err != nil {
				return err
			}
		}

		return tx.AppendAudit(ctx, store.AuditSplit, canonicalID, sourceID, s.operator,
			map[string]interface{}{
				"target":                 targetID,
				"remaining_source_count": len(remaining),
			})
	})
	if err != nil {
		return err
	}
	logging.Review("split %s off %s (target=%q)", sourceID, canonicalID, targetID)
	return nil
}

// Merge moves every source of sourceCanonicalID onto targetCanonicalID,
// deletes the source canonical, and re-synthesizes the target.
func (s *Service) Merge(ctx context.Context, sourceCanonicalID, targetCanonicalID string) error {
	timer := logging.StartTimer(logging.CategoryReview, "Merge")
	defer timer.Stop()

	if sourceCanonicalID == "" || targetCanonicalID == "" || sourceCanonicalID == targetCanonicalID {
		return fmt.Errorf("%w: merge requires two distinct canonical ids", store.ErrInvalidInput)
	}

	var newCount int
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetCanonical(ctx, sourceCanonicalID); err != nil {
			return err
		}
		target, err := tx.GetCanonical(ctx, targetCanonicalID)
		if err != nil {
			return err
		}

		links, err := tx.ListLinks(ctx, sourceCanonicalID)
		if err != nil {
			return err
		}
		for _, sid := range links {
			err := tx.InsertLink(ctx, targetCanonicalID, sid)
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			if err != nil {
				return err
			}
		}
		if err := tx.DeleteCanonical(ctx, sourceCanonicalID); err != nil {
			return err
		}

		merged, err := tx.ListLinks(ctx, targetCanonicalID)
		if err != nil {
			return err
		}
		newCount = len(merged)
		if err := resynthesize(ctx, tx, target, merged); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, store.AuditMerge, targetCanonicalID, "", s.operator,
			map[string]interface{}{
				"deleted_id":       sourceCanonicalID,
				"new_source_count": newCount,
			})
	})
	if err != nil {
		return err
	}
	logging.Review("merged %s into %s (%d sources)", sourceCanonicalID, targetCanonicalID, newCount)
	return nil
}

// Dismiss clears the review flag. A low match confidence is bumped to 1.0 so
// the canonical leaves the low-confidence queue; the original value lands in
// the audit details.
func (s *Service) Dismiss(ctx context.Context, canonicalID, reason string) error {
	timer := logging.StartTimer(logging.CategoryReview, "Dismiss")
	defer timer.Stop()

	if canonicalID == "" {
		return fmt.Errorf("%w: dismiss requires a canonical id", store.ErrInvalidInput)
	}

	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		c, err := tx.GetCanonical(ctx, canonicalID)
		if err != nil {
			return err
		}

		details := map[string]interface{}{"reason": reason}
		conf := c.MatchConfidence
		if conf != nil && *conf < 0.8 {
			details["original_match_confidence"] = *conf
			bumped := 1.0
			conf = &bumped
		}
		if err := tx.SetReviewState(ctx, canonicalID, false, conf); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, store.AuditReviewDismiss, canonicalID, "", s.operator, details)
	})
	if err != nil {
		return err
	}
	logging.Review("dismissed review flag on %s", canonicalID)
	return nil
}

// resynthesize rebuilds a canonical from its current sources via enrichment
// and clears the review flag, since the operator has looked at it.
func resynthesize(ctx context.Context, tx *store.Tx, existing *canonical.Canonical, sourceIDs []string) error {
	records, err := tx.GetEventsByIDs(ctx, sourceIDs)
	if err != nil {
		return err
	}
	enriched := canonical.Enrich(existing, records)
	enriched.NeedsReview = false
	return tx.UpdateCanonical(ctx, &enriched)
}

func attachToTarget(ctx context.Context, tx *store.Tx, targetID, sourceID string) error {
	target, err := tx.GetCanonical(ctx, targetID)
	if err != nil {
		return err
	}
	err = tx.InsertLink(ctx, targetID, sourceID)
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return err
	}
	links, err := tx.ListLinks(ctx, targetID)
	if err != nil {
		return err
	}
	return resynthesize(ctx, tx, target, links)
}

func createSingleton(ctx context.Context, tx *store.Tx, sourceID string) error {
	records, err := tx.GetEventsByIDs(ctx, []string{sourceID})
	if err != nil {
		return err
	}
	c := canonical.Synthesize(records)
	c.ID = uuid.NewString()
	c.Version = 1
	return tx.InsertCanonical(ctx, &c, []string{sourceID})
}
