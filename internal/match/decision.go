// Package match scores record pairs and classifies them into match,
// no_match, or ambiguous. It owns the decision record type consumed by
// clustering, resolution, and persistence.
package match

import "strings"

// Decision is the classification of a scored pair.
type Decision string

const (
	DecisionMatch     Decision = "match"
	DecisionNoMatch   Decision = "no_match"
	DecisionAmbiguous Decision = "ambiguous"
)

// Tier records how a decision was produced.
type Tier string

const (
	TierDeterministic   Tier = "deterministic"
	TierAI              Tier = "ai"
	TierAILowConfidence Tier = "ai_low_confidence"
	TierAIUnexpected    Tier = "ai_unexpected"
)

// IsAI reports whether the decision came out of the LLM resolver, in any of
// its confidence states.
func (t Tier) IsAI() bool {
	return strings.HasPrefix(string(t), "ai")
}

// DecisionRecord is the persisted quadruple for one unordered pair. EventA
// and EventB are always in canonical order (EventA < EventB by byte
// comparison); OrderPair enforces this at construction.
type DecisionRecord struct {
	EventA string
	EventB string

	DateScore        float64
	GeoScore         float64
	TitleScore       float64
	DescriptionScore float64
	CombinedScore    float64

	Decision Decision
	Tier     Tier
}

// OrderPair returns the two ids in canonical storage order.
func OrderPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}
