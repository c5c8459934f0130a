// Package pipeline orchestrates a full deduplication run: candidate
// generation, scoring, optional LLM resolution, clustering, synthesis, and
// the atomic write-replace into the store.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"dublette/internal/canonical"
	"dublette/internal/cluster"
	"dublette/internal/config"
	"dublette/internal/event"
	"dublette/internal/logging"
	"dublette/internal/match"
	"dublette/internal/resolver"
	"dublette/internal/store"
)

// Pipeline runs deduplication over the events in the store.
type Pipeline struct {
	cfg      *config.Config
	store    *store.Store
	resolver *resolver.Resolver // nil when AI resolution is disabled
}

// New assembles a pipeline. Pass a nil resolver to run deterministically.
func New(cfg *config.Config, s *store.Store, res *resolver.Resolver) *Pipeline {
	return &Pipeline{cfg: cfg, store: s, resolver: res}
}

// RunStats summarizes one pipeline run.
type RunStats struct {
	Events     int
	Blocking   match.BlockingStats
	Decisions  int
	Matches    int
	Ambiguous  int
	NoMatches  int
	Resolved   int
	Clusters   int
	Singletons int
	Flagged    int
	Canonicals int
}

// Run scores every candidate pair, resolves ambiguities when a resolver is
// wired, clusters, synthesizes, and write-replaces the results.
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Run")
	defer timer.Stop()

	records, err := p.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	stats := &RunStats{Events: len(records)}

	byID := make(map[string]*event.Record, len(records))
	ids := make([]string, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
		ids[i] = records[i].ID
	}

	pairs, blockingStats := match.GeneratePairs(records)
	stats.Blocking = blockingStats

	decisions := make([]match.DecisionRecord, len(pairs))
	for i, pr := range pairs {
		decisions[i] = match.ScorePair(byID[pr.A], byID[pr.B], p.cfg)
	}
	stats.Decisions = len(decisions)

	if p.resolver != nil {
		resolved, err := p.resolveAmbiguous(ctx, decisions, byID)
		if err != nil {
			return nil, err
		}
		stats.Resolved = resolved
	}

	for i := range decisions {
		switch decisions[i].Decision {
		case match.DecisionMatch:
			stats.Matches++
		case match.DecisionNoMatch:
			stats.NoMatches++
		default:
			stats.Ambiguous++
		}
	}

	result, canonicals := p.assemble(ids, decisions, byID)
	stats.Clusters = len(result.Clusters)
	stats.Singletons = result.Singletons
	stats.Flagged = result.Flagged
	stats.Canonicals = len(canonicals)

	if err := p.store.ReplaceResults(ctx, decisions, canonicals); err != nil {
		return nil, err
	}
	logging.Pipeline("run complete: %d events, %d pairs, %d matches, %d canonicals (%d flagged)",
		stats.Events, stats.Decisions, stats.Matches, stats.Canonicals, stats.Flagged)
	return stats, nil
}

// Rebuild re-clusters and re-synthesizes from the stored decision set
// without rescoring. Used after LLM resolution or decision overrides.
func (p *Pipeline) Rebuild(ctx context.Context) (*RunStats, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Rebuild")
	defer timer.Stop()

	records, err := p.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	decisions, err := p.store.ListDecisions(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*event.Record, len(records))
	ids := make([]string, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
		ids[i] = records[i].ID
	}

	stats := &RunStats{Events: len(records), Decisions: len(decisions)}
	result, canonicals := p.assemble(ids, decisions, byID)
	stats.Clusters = len(result.Clusters)
	stats.Singletons = result.Singletons
	stats.Flagged = result.Flagged
	stats.Canonicals = len(canonicals)

	if err := p.store.ReplaceResults(ctx, decisions, canonicals); err != nil {
		return nil, err
	}
	return stats, nil
}

// resolveAmbiguous escalates ambiguous decisions to the LLM. The resolver
// bounds concurrency internally; outcomes are applied back in decision order
// so the run stays deterministic given the same verdicts.
func (p *Pipeline) resolveAmbiguous(ctx context.Context, decisions []match.DecisionRecord, byID map[string]*event.Record) (int, error) {
	var pending []int
	for i := range decisions {
		if decisions[i].Decision == match.DecisionAmbiguous {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}
	logging.Pipeline("resolving %d ambiguous pairs via LLM (batch %s)", len(pending), p.resolver.BatchID())

	outcomes := make([]*resolver.Outcome, len(pending))
	errs := make([]error, len(pending))
	var wg sync.WaitGroup
	for n, idx := range pending {
		wg.Add(1)
		go func(n, idx int) {
			defer wg.Done()
			d := &decisions[idx]
			outcomes[n], errs[n] = p.resolver.Resolve(ctx, byID[d.EventA], byID[d.EventB])
		}(n, idx)
	}
	wg.Wait()

	resolved := 0
	for n, idx := range pending {
		if errs[n] != nil {
			return resolved, errs[n]
		}
		out := outcomes[n]
		decisions[idx].Decision = out.Decision
		decisions[idx].Tier = out.Tier
		if out.Decision != match.DecisionAmbiguous {
			resolved++
		}
	}
	return resolved, nil
}

// assemble clusters the decision set and synthesizes one canonical per
// cluster, stamping review state and confidence from the cluster.
func (p *Pipeline) assemble(ids []string, decisions []match.DecisionRecord, byID map[string]*event.Record) (cluster.Result, []store.CanonicalResult) {
	result := cluster.Build(ids, decisions, byID, cluster.Options{
		MaxClusterSize:        p.cfg.Cluster.MaxClusterSize,
		MinInternalSimilarity: p.cfg.Cluster.MinInternalSimilarity,
	})

	canonicals := make([]store.CanonicalResult, 0, len(result.Clusters))
	for i := range result.Clusters {
		cl := &result.Clusters[i]
		members := make([]event.Record, 0, len(cl.Members))
		for _, id := range cl.Members {
			if r, ok := byID[id]; ok {
				members = append(members, *r)
			}
		}
		if len(members) == 0 {
			continue
		}
		c := canonical.Synthesize(members)
		c.ID = uuid.NewString()
		c.Version = 1
		c.NeedsReview = cl.Flagged
		c.AIAssisted = cl.AIAssisted()
		if conf, ok := cl.MatchConfidence(); ok {
			c.MatchConfidence = &conf
		}
		canonicals = append(canonicals, store.CanonicalResult{Canonical: c, SourceIDs: cl.Members})
	}
	return result, canonicals
}
