package match

import (
	"sort"

	"dublette/internal/event"
	"dublette/internal/logging"
)

// Pair is one unordered candidate pair in canonical order (A < B).
type Pair struct {
	A string
	B string
}

// BlockingStats reports how much work blocking saved over the naive
// cross-source Cartesian product.
type BlockingStats struct {
	TotalEvents      int
	NaivePairs       int
	BlockedPairs     int
	ReductionPercent float64
}

// GeneratePairs builds the blocking index and enumerates every unordered
// cross-source pair sharing at least one key. A pair sharing several keys is
// emitted once. Output order is deterministic: sorted by (A, B).
func GeneratePairs(records []event.Record) ([]Pair, BlockingStats) {
	timer := logging.StartTimer(logging.CategoryBlocking, "GeneratePairs")
	defer timer.Stop()

	index := make(map[string][]int)
	for i := range records {
		for _, key := range records[i].BlockingKeys {
			index[key] = append(index[key], i)
		}
	}

	seen := make(map[Pair]struct{})
	for _, bucket := range index {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				a := &records[bucket[i]]
				b := &records[bucket[j]]
				if a.SourceCode == b.SourceCode {
					continue
				}
				pa, pb := OrderPair(a.ID, b.ID)
				seen[Pair{A: pa, B: pb}] = struct{}{}
			}
		}
	}

	pairs := make([]Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	stats := BlockingStats{
		TotalEvents:  len(records),
		NaivePairs:   naiveCrossSourcePairs(records),
		BlockedPairs: len(pairs),
	}
	if stats.NaivePairs > 0 {
		stats.ReductionPercent = 100 * (1 - float64(stats.BlockedPairs)/float64(stats.NaivePairs))
	}
	logging.Blocking("%d events: %d candidate pairs (naive %d, reduction %.1f%%)",
		stats.TotalEvents, stats.BlockedPairs, stats.NaivePairs, stats.ReductionPercent)
	return pairs, stats
}

// naiveCrossSourcePairs is the pair count without blocking: all unordered
// pairs minus the same-source ones.
func naiveCrossSourcePairs(records []event.Record) int {
	perSource := make(map[string]int)
	for i := range records {
		perSource[records[i].SourceCode]++
	}
	n := len(records)
	total := n * (n - 1) / 2
	for _, c := range perSource {
		total -= c * (c - 1) / 2
	}
	return total
}
