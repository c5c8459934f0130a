package evaluate

import (
	"math"
	"testing"

	"dublette/internal/event"
	"dublette/internal/match"
)

func decision(a, b string, d match.Decision, combined, title float64) match.DecisionRecord {
	a, b = match.OrderPair(a, b)
	return match.DecisionRecord{
		EventA: a, EventB: b,
		CombinedScore: combined, TitleScore: title,
		Decision: d, Tier: match.TierDeterministic,
	}
}

func TestEvaluate(t *testing.T) {
	decisions := []match.DecisionRecord{
		decision("a1", "b1", match.DecisionMatch, 0.90, 0.95),   // TP
		decision("a2", "b2", match.DecisionMatch, 0.80, 0.90),   // FP
		decision("a3", "b3", match.DecisionNoMatch, 0.20, 0.10), // FN
		decision("a4", "b4", match.DecisionNoMatch, 0.10, 0.05), // TN
		decision("a6", "b6", match.DecisionMatch, 0.85, 0.90),   // unlabeled, ignored
	}
	labels := []LabeledPair{
		{A: "b1", B: "a1", Label: LabelSame}, // reversed order still resolves
		{A: "a2", B: "b2", Label: LabelDifferent},
		{A: "a3", B: "b3", Label: LabelSame},
		{A: "a4", B: "b4", Label: LabelDifferent},
		{A: "a5", B: "b5", Label: LabelSame},      // no decision: predicted no-match, FN
		{A: "a7", B: "b7", Label: LabelAmbiguous}, // excluded
	}

	m := Evaluate(decisions, labels)

	if m.Labeled != 5 {
		t.Errorf("Labeled = %d", m.Labeled)
	}
	if m.TruePositives != 1 || m.FalsePositives != 1 || m.FalseNegatives != 2 || m.TrueNegatives != 1 {
		t.Errorf("confusion = %d/%d/%d/%d", m.TruePositives, m.FalsePositives, m.FalseNegatives, m.TrueNegatives)
	}
	if math.Abs(m.Precision-0.5) > 1e-9 {
		t.Errorf("Precision = %v", m.Precision)
	}
	if math.Abs(m.Recall-1.0/3.0) > 1e-9 {
		t.Errorf("Recall = %v", m.Recall)
	}
	if math.Abs(m.F1-0.4) > 1e-9 {
		t.Errorf("F1 = %v", m.F1)
	}
}

func TestEvaluateEmptyLabels(t *testing.T) {
	m := Evaluate(nil, nil)
	if m.Labeled != 0 || m.Precision != 0 || m.Recall != 0 || m.F1 != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestSweep(t *testing.T) {
	decisions := []match.DecisionRecord{
		decision("a1", "b1", match.DecisionMatch, 0.90, 0.95),
		decision("a2", "b2", match.DecisionAmbiguous, 0.60, 0.80),
		decision("a3", "b3", match.DecisionAmbiguous, 0.85, 0.10), // veto holds at every threshold
	}
	labels := []LabeledPair{
		{A: "a1", B: "b1", Label: LabelSame},
		{A: "a2", B: "b2", Label: LabelSame},
		{A: "a3", B: "b3", Label: LabelDifferent},
	}

	points := Sweep(decisions, labels, []float64{0.75, 0.50}, 0.30)

	if len(points) != 2 {
		t.Fatalf("points = %v", points)
	}
	// Returned ascending regardless of input order.
	if points[0].Threshold != 0.50 || points[1].Threshold != 0.75 {
		t.Errorf("thresholds = %v, %v", points[0].Threshold, points[1].Threshold)
	}

	// At 0.50 both labeled-same pairs clear the bar; the vetoed pair stays
	// out despite its 0.85 combined score.
	low := points[0].Metrics
	if low.TruePositives != 2 || low.FalsePositives != 0 || low.TrueNegatives != 1 {
		t.Errorf("low point = %+v", low)
	}
	if low.Recall != 1.0 {
		t.Errorf("low recall = %v", low.Recall)
	}

	// At 0.75 the 0.60 pair drops to a false negative.
	high := points[1].Metrics
	if high.TruePositives != 1 || high.FalseNegatives != 1 || high.TrueNegatives != 1 {
		t.Errorf("high point = %+v", high)
	}
}

func TestFilterByCategory(t *testing.T) {
	records := map[string]*event.Record{
		"a1": {ID: "a1", Categories: []string{"fastnacht"}},
		"b1": {ID: "b1"},
		"a2": {ID: "a2", Categories: []string{"markt"}},
		"b2": {ID: "b2", Categories: []string{"markt"}},
	}
	labels := []LabeledPair{
		{A: "a1", B: "b1", Label: LabelSame},
		{A: "a2", B: "b2", Label: LabelDifferent},
		{A: "a3", B: "b3", Label: LabelSame}, // unknown events dropped
	}

	got := FilterByCategory(labels, records, "fastnacht")
	if len(got) != 1 || got[0].A != "a1" {
		t.Errorf("filtered = %v", got)
	}

	if got := FilterByCategory(labels, records, ""); len(got) != 3 {
		t.Errorf("empty category filtered = %v", got)
	}
}
