package resolver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"dublette/internal/config"
	"dublette/internal/event"
	"dublette/internal/logging"
	"dublette/internal/match"
)

// memoryCacheSize bounds the in-process LRU sitting in front of sqlite.
const memoryCacheSize = 4096

// VerdictSame and VerdictDifferent are the only literals the model may
// answer with; anything else is recorded but never acted on.
const (
	VerdictSame      = "same"
	VerdictDifferent = "different"
)

// CacheEntry is one cached LLM verdict, keyed by content hash. Entries are
// reusable only when their model matches the current resolver model.
type CacheEntry struct {
	PairHash     string
	Model        string
	Verdict      string
	Confidence   float64
	Reasoning    string
	InputTokens  int
	OutputTokens int
	CreatedAt    time.Time
}

// UsageEntry is one cost-ledger row. Cache hits appear with WasCached=true
// and zero cost.
type UsageEntry struct {
	BatchID      string
	PairHash     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	WasCached    bool
	CreatedAt    time.Time
}

// Cache is the persistent verdict store. Get returns (nil, nil) on miss.
// Put must tolerate concurrent duplicate writes for the same hash.
type Cache interface {
	GetVerdict(ctx context.Context, pairHash string) (*CacheEntry, error)
	PutVerdict(ctx context.Context, entry *CacheEntry) error
}

// UsageLogger appends cost-ledger rows.
type UsageLogger interface {
	LogUsage(ctx context.Context, entry *UsageEntry) error
}

// Outcome is what a resolved pair contributes back to its decision record.
// Signal scores are never touched; callers apply Decision and Tier only.
type Outcome struct {
	Decision   match.Decision
	Tier       match.Tier
	Verdict    string
	Confidence float64
	Reasoning  string
	Cached     bool
}

// Resolver escalates ambiguous pairs to the LLM with bounded concurrency.
type Resolver struct {
	client       Client
	cache        Cache
	usage        UsageLogger
	mem          *lru.Cache[string, *CacheEntry]
	sem          *semaphore.Weighted
	model        string
	confidence   float64
	cacheEnabled bool
	costPerMIn   float64
	costPerMOut  float64
	batchID      string
}

// New wires a resolver for one pipeline run. Each run gets its own batch id
// so the ledger can be summed per run.
func New(client Client, cache Cache, usage UsageLogger, cfg config.AIConfig) (*Resolver, error) {
	mem, err := lru.New[string, *CacheEntry](memoryCacheSize)
	if err != nil {
		return nil, err
	}
	workers := cfg.MaxConcurrentRequests
	if workers < 1 {
		workers = 1
	}
	return &Resolver{
		client:       client,
		cache:        cache,
		usage:        usage,
		mem:          mem,
		sem:          semaphore.NewWeighted(int64(workers)),
		model:        cfg.Model,
		confidence:   cfg.ConfidenceThreshold,
		cacheEnabled: cfg.CacheEnabled,
		costPerMIn:   cfg.CostPer1MInputTokens,
		costPerMOut:  cfg.CostPer1MOutputTokens,
		batchID:      uuid.NewString(),
	}, nil
}

// BatchID identifies this resolver's rows in the usage ledger.
func (r *Resolver) BatchID() string { return r.batchID }

// Resolve produces an outcome for one ambiguous pair. Transport errors and
// malformed model output fail open: the pair stays ambiguous at tier
// deterministic and no error is returned. Only context cancellation aborts.
func (r *Resolver) Resolve(ctx context.Context, a, b *event.Record) (*Outcome, error) {
	hash := PairHash(a, b)

	if r.cacheEnabled {
		if entry := r.lookup(ctx, hash); entry != nil {
			logging.ResolverDebug("cache hit for %s/%s", a.ID, b.ID)
			if err := r.usage.LogUsage(ctx, &UsageEntry{
				BatchID:   r.batchID,
				PairHash:  hash,
				Model:     entry.Model,
				WasCached: true,
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				logging.Get(logging.CategoryResolver).Warn("usage log write failed: %v", err)
			}
			return r.apply(entry, true), nil
		}
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	resp, err := r.client.Generate(ctx, BuildPrompt(a, b))
	r.sem.Release(1)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Get(logging.CategoryResolver).Warn("LLM call failed for %s/%s, keeping ambiguous: %v", a.ID, b.ID, err)
		return failOpen(), nil
	}

	verdict, ok := parseVerdict(resp.Text)
	if !ok {
		logging.Get(logging.CategoryResolver).Warn("unparseable LLM output for %s/%s, keeping ambiguous", a.ID, b.ID)
		return failOpen(), nil
	}

	entry := &CacheEntry{
		PairHash:     hash,
		Model:        r.model,
		Verdict:      verdict.Decision,
		Confidence:   verdict.Confidence,
		Reasoning:    verdict.Reasoning,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CreatedAt:    time.Now().UTC(),
	}
	if r.cacheEnabled {
		r.mem.Add(hash, entry)
		if err := r.cache.PutVerdict(ctx, entry); err != nil {
			logging.Get(logging.CategoryResolver).Warn("cache write failed for %s: %v", hash, err)
		}
	}

	cost := float64(resp.InputTokens)*r.costPerMIn/1e6 + float64(resp.OutputTokens)*r.costPerMOut/1e6
	if err := r.usage.LogUsage(ctx, &UsageEntry{
		BatchID:      r.batchID,
		PairHash:     hash,
		Model:        r.model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      cost,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		logging.Get(logging.CategoryResolver).Warn("usage log write failed: %v", err)
	}

	logging.Resolver("resolved %s/%s: %s (%.2f) cost $%.6f",
		a.ID, b.ID, verdict.Decision, verdict.Confidence, cost)
	return r.apply(entry, false), nil
}

// lookup consults the in-process LRU first, then sqlite. Stale-model entries
// count as misses either way.
func (r *Resolver) lookup(ctx context.Context, hash string) *CacheEntry {
	if entry, ok := r.mem.Get(hash); ok && entry.Model == r.model {
		return entry
	}
	entry, err := r.cache.GetVerdict(ctx, hash)
	if err != nil {
		logging.Get(logging.CategoryResolver).Warn("cache read failed for %s: %v", hash, err)
		return nil
	}
	if entry == nil || entry.Model != r.model {
		return nil
	}
	r.mem.Add(hash, entry)
	return entry
}

// apply maps a verdict onto decision and tier per the confidence threshold.
func (r *Resolver) apply(entry *CacheEntry, cached bool) *Outcome {
	out := &Outcome{
		Verdict:    entry.Verdict,
		Confidence: entry.Confidence,
		Reasoning:  entry.Reasoning,
		Cached:     cached,
	}
	switch entry.Verdict {
	case VerdictSame, VerdictDifferent:
		if entry.Confidence < r.confidence {
			out.Decision = match.DecisionAmbiguous
			out.Tier = match.TierAILowConfidence
			return out
		}
		out.Tier = match.TierAI
		if entry.Verdict == VerdictSame {
			out.Decision = match.DecisionMatch
		} else {
			out.Decision = match.DecisionNoMatch
		}
	default:
		out.Decision = match.DecisionAmbiguous
		out.Tier = match.TierAIUnexpected
	}
	return out
}

func failOpen() *Outcome {
	return &Outcome{Decision: match.DecisionAmbiguous, Tier: match.TierDeterministic}
}

// modelVerdict mirrors the JSON schema the prompt demands.
type modelVerdict struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// parseVerdict tolerates surrounding whitespace and markdown fences, which
// some models emit despite the JSON MIME request.
func parseVerdict(text string) (*modelVerdict, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var v modelVerdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if v.Decision == "" || v.Confidence < 0 || v.Confidence > 1 {
		return nil, false
	}
	return &v, true
}
