// Package evaluate measures matcher quality against labeled pairs and
// replays stored scores through alternate thresholds.
package evaluate

import (
	"sort"

	"dublette/internal/event"
	"dublette/internal/logging"
	"dublette/internal/match"
)

// Ground-truth labels. Ambiguous pairs stay in the set but never count
// toward metrics.
const (
	LabelSame      = "same"
	LabelDifferent = "different"
	LabelAmbiguous = "ambiguous"
)

// LabeledPair is one annotated unordered pair.
type LabeledPair struct {
	A     string
	B     string
	Label string
}

// Metrics is a precision/recall summary over the non-ambiguous labels.
type Metrics struct {
	Labeled        int
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	TrueNegatives  int
	Precision      float64
	Recall         float64
	F1             float64
}

// Evaluate compares predicted matches against same-labels. Labeled pairs
// without a stored decision count as predicted no-match.
func Evaluate(decisions []match.DecisionRecord, labels []LabeledPair) Metrics {
	timer := logging.StartTimer(logging.CategoryEval, "Evaluate")
	defer timer.Stop()

	predicted := make(map[[2]string]bool, len(decisions))
	for i := range decisions {
		key := [2]string{decisions[i].EventA, decisions[i].EventB}
		predicted[key] = decisions[i].Decision == match.DecisionMatch
	}
	m := tally(labels, func(a, b string) bool {
		return predicted[[2]string{a, b}]
	})
	logging.Eval("evaluated %d labeled pairs: P=%.4f R=%.4f F1=%.4f", m.Labeled, m.Precision, m.Recall, m.F1)
	return m
}

// SweepPoint is the outcome of re-classifying at one high threshold.
type SweepPoint struct {
	Threshold float64
	Metrics   Metrics
}

// Sweep replays stored signal scores through each candidate high threshold,
// keeping the title veto in force. Decisions are re-derived from scores
// alone, so LLM-tier outcomes do not leak into the sweep.
func Sweep(decisions []match.DecisionRecord, labels []LabeledPair, thresholds []float64, titleVeto float64) []SweepPoint {
	timer := logging.StartTimer(logging.CategoryEval, "Sweep")
	defer timer.Stop()

	scores := make(map[[2]string]*match.DecisionRecord, len(decisions))
	for i := range decisions {
		scores[[2]string{decisions[i].EventA, decisions[i].EventB}] = &decisions[i]
	}

	sorted := append([]float64(nil), thresholds...)
	sort.Float64s(sorted)

	points := make([]SweepPoint, 0, len(sorted))
	for _, th := range sorted {
		m := tally(labels, func(a, b string) bool {
			d, ok := scores[[2]string{a, b}]
			if !ok {
				return false
			}
			return d.CombinedScore >= th && d.TitleScore >= titleVeto
		})
		points = append(points, SweepPoint{Threshold: th, Metrics: m})
	}
	return points
}

// FilterByCategory keeps labeled pairs where either event carries the
// category. Pairs referencing unknown events are dropped.
func FilterByCategory(labels []LabeledPair, records map[string]*event.Record, category string) []LabeledPair {
	if category == "" {
		return labels
	}
	var out []LabeledPair
	for _, l := range labels {
		a, okA := records[l.A]
		b, okB := records[l.B]
		if !okA || !okB {
			continue
		}
		if a.HasCategory(category) || b.HasCategory(category) {
			out = append(out, l)
		}
	}
	return out
}

func tally(labels []LabeledPair, predict func(a, b string) bool) Metrics {
	var m Metrics
	for _, l := range labels {
		if l.Label == LabelAmbiguous {
			continue
		}
		m.Labeled++
		a, b := match.OrderPair(l.A, l.B)
		got := predict(a, b)
		want := l.Label == LabelSame
		switch {
		case got && want:
			m.TruePositives++
		case got && !want:
			m.FalsePositives++
		case !got && want:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
		}
	}
	if m.TruePositives+m.FalsePositives > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if m.TruePositives+m.FalseNegatives > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
