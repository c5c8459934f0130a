// Package cluster groups events into connected components over match edges
// and validates each component's coherence.
package cluster

import (
	"sort"

	"dublette/internal/event"
	"dublette/internal/logging"
	"dublette/internal/match"
)

// Edge is one accepted match between two events, weighted by its combined
// score.
type Edge struct {
	A      string
	B      string
	Weight float64
	Tier   match.Tier
}

// Cluster is one connected component. Members are sorted by id; Edges holds
// the induced match edges.
type Cluster struct {
	Members []string
	Edges   []Edge
	Flagged bool
	Reasons []string
}

// Result is the full clustering output.
type Result struct {
	Clusters   []Cluster
	Flagged    int
	Singletons int
}

// MatchConfidence is the mean weight of the cluster's internal match edges.
// Singletons have no internal edges and report ok=false.
func (c *Cluster) MatchConfidence() (float64, bool) {
	if len(c.Edges) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, e := range c.Edges {
		sum += e.Weight
	}
	return sum / float64(len(c.Edges)), true
}

// AIAssisted reports whether any internal edge came from the LLM resolver.
func (c *Cluster) AIAssisted() bool {
	for _, e := range c.Edges {
		if e.Tier.IsAI() {
			return true
		}
	}
	return false
}

// Options carries the coherence limits.
type Options struct {
	MaxClusterSize        int
	MinInternalSimilarity float64
}

// maxClusterDateSpread caps how many distinct calendar days one cluster's
// records may cover before it is flagged.
const maxClusterDateSpread = 3

// Build computes connected components over the match edges. Every known
// event id becomes a node, so events without any match edge come out as
// singleton clusters. Cluster order is deterministic: sorted by the smallest
// member id.
func Build(ids []string, decisions []match.DecisionRecord, records map[string]*event.Record, opts Options) Result {
	timer := logging.StartTimer(logging.CategoryCluster, "Build")
	defer timer.Stop()

	uf := newUnionFind(ids)
	var edges []Edge
	for _, d := range decisions {
		if d.Decision != match.DecisionMatch {
			continue
		}
		uf.union(d.EventA, d.EventB)
		edges = append(edges, Edge{A: d.EventA, B: d.EventB, Weight: d.CombinedScore, Tier: d.Tier})
	}

	members := make(map[string][]string)
	for _, id := range ids {
		root := uf.find(id)
		members[root] = append(members[root], id)
	}
	edgesByRoot := make(map[string][]Edge)
	for _, e := range edges {
		root := uf.find(e.A)
		edgesByRoot[root] = append(edgesByRoot[root], e)
	}

	roots := make([]string, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return minMember(members[roots[i]]) < minMember(members[roots[j]])
	})

	var res Result
	for _, root := range roots {
		c := Cluster{Members: members[root], Edges: edgesByRoot[root]}
		sort.Strings(c.Members)
		sortEdges(c.Edges)
		if len(c.Members) == 1 {
			res.Singletons++
		} else {
			validate(&c, records, opts)
			if c.Flagged {
				res.Flagged++
			}
		}
		res.Clusters = append(res.Clusters, c)
	}
	logging.Cluster("%d events -> %d clusters (%d singletons, %d flagged)",
		len(ids), len(res.Clusters), res.Singletons, res.Flagged)
	return res
}

// validate runs the coherence checks cheapest-first and short-circuits on the
// first failure.
func validate(c *Cluster, records map[string]*event.Record, opts Options) {
	if len(c.Members) > opts.MaxClusterSize {
		c.Flagged = true
		c.Reasons = append(c.Reasons, "cluster_too_large")
		return
	}
	if conf, ok := c.MatchConfidence(); ok && conf < opts.MinInternalSimilarity {
		c.Flagged = true
		c.Reasons = append(c.Reasons, "low_internal_similarity")
		return
	}
	days := make(map[string]struct{})
	for _, id := range c.Members {
		r, ok := records[id]
		if !ok {
			continue
		}
		for _, day := range event.ExpandDates(r.Dates) {
			days[day] = struct{}{}
		}
	}
	if len(days) > maxClusterDateSpread {
		c.Flagged = true
		c.Reasons = append(c.Reasons, "date_spread_too_wide")
	}
}

func minMember(members []string) string {
	min := members[0]
	for _, m := range members[1:] {
		if m < min {
			min = m
		}
	}
	return min
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
}

// unionFind is path-compressing union-by-size over string ids.
type unionFind struct {
	parent map[string]string
	size   map[string]int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(ids)),
		size:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	if _, ok := uf.parent[id]; !ok {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	root := id
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[id] != root {
		uf.parent[id], id = root, uf.parent[id]
	}
	return root
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}
