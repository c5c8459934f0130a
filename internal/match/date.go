package match

import (
	"dublette/internal/config"
	"dublette/internal/event"
)

// DateScore is the Jaccard overlap of the two expanded day sets, scaled by a
// time-proximity factor from the first-date start times. Records without any
// parseable dates get the benefit of the doubt.
func DateScore(a, b *event.Record, cfg *config.DateConfig) float64 {
	daysA := event.ExpandDates(a.Dates)
	daysB := event.ExpandDates(b.Dates)

	jac := 1.0
	if len(daysA) > 0 && len(daysB) > 0 {
		setA := make(map[string]struct{}, len(daysA))
		for _, d := range daysA {
			setA[d] = struct{}{}
		}
		inter := 0
		for _, d := range daysB {
			if _, ok := setA[d]; ok {
				inter++
			}
		}
		union := len(daysA) + len(daysB) - inter
		jac = float64(inter) / float64(union)
	}

	return jac * timeProximity(event.FirstStartTime(a.Dates), event.FirstStartTime(b.Dates), cfg)
}

// timeProximity compares the first start times of both events. Missing or
// unparseable times never penalize.
func timeProximity(ta, tb string, cfg *config.DateConfig) float64 {
	if ta == "" || tb == "" {
		return 1.0
	}
	minutes, ok := event.MinutesBetween(ta, tb)
	if !ok {
		return 1.0
	}
	switch {
	case minutes <= cfg.TimeToleranceMinutes:
		return 1.0
	case minutes <= cfg.TimeCloseMinutes:
		return cfg.CloseFactor
	case float64(minutes) <= cfg.TimeGapPenaltyHours*60:
		return cfg.FarFactor
	default:
		return cfg.TimeGapPenaltyFactor
	}
}
