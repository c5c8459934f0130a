package match

import (
	"dublette/internal/config"
	"dublette/internal/event"
)

// ResolveWeights walks the category priority list and returns the override of
// the first category both records carry, falling back to the default vector.
// The result is always normalized to sum to 1.
func ResolveWeights(a, b *event.Record, cfg *config.Config) config.Weights {
	w := cfg.Scoring.Weights
	for _, cat := range cfg.CategoryWeights.Priority {
		if a.HasCategory(cat) && b.HasCategory(cat) {
			if ov, ok := cfg.CategoryWeights.Overrides[cat]; ok {
				w = ov
			}
			break
		}
	}
	return normalizeWeights(w)
}

func normalizeWeights(w config.Weights) config.Weights {
	sum := w.Sum()
	if sum <= 0 {
		return w
	}
	return config.Weights{
		Date:        w.Date / sum,
		Geo:         w.Geo / sum,
		Title:       w.Title / sum,
		Description: w.Description / sum,
	}
}

// Combine is the weighted arithmetic mean of the four signal scores.
func Combine(date, geo, title, description float64, w config.Weights) float64 {
	return date*w.Date + geo*w.Geo + title*w.Title + description*w.Description
}

// Classify thresholds the combined score. The title veto caps the decision at
// ambiguous: identical venue/date/description templates (different films at
// one cinema) must never auto-merge on combined score alone.
func Classify(combined, titleScore float64, th *config.ThresholdsConfig) Decision {
	if combined >= th.High {
		if titleScore < th.TitleVeto {
			return DecisionAmbiguous
		}
		return DecisionMatch
	}
	if combined <= th.Low {
		return DecisionNoMatch
	}
	return DecisionAmbiguous
}

// ScorePair runs all four scorers over a pair and returns the deterministic
// decision record in canonical id order.
func ScorePair(a, b *event.Record, cfg *config.Config) DecisionRecord {
	if b.ID < a.ID {
		a, b = b, a
	}

	dateScore := DateScore(a, b, &cfg.Date)
	geoScore := GeoScore(a, b, &cfg.Geo)
	titleScore := TitleScore(a, b, &cfg.Title)
	descScore := DescriptionScore(a, b)

	w := ResolveWeights(a, b, cfg)
	combined := Combine(dateScore, geoScore, titleScore, descScore, w)

	return DecisionRecord{
		EventA:           a.ID,
		EventB:           b.ID,
		DateScore:        dateScore,
		GeoScore:         geoScore,
		TitleScore:       titleScore,
		DescriptionScore: descScore,
		CombinedScore:    combined,
		Decision:         Classify(combined, titleScore, &cfg.Thresholds),
		Tier:             TierDeterministic,
	}
}
