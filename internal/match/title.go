package match

import (
	"strings"

	"dublette/internal/config"
	"dublette/internal/event"
)

// TitleScore blends a token-sort ratio (primary) with a token-set ratio
// (secondary) over the normalized titles. Outside the blend window the
// primary stands alone: a clearly-different or clearly-equal title needs no
// help from set semantics.
//
// City names embedded in titles ("Fasnet-Eröffnung Waldkirch" vs the bare
// "Fasnachteröffnung") are dropped before comparison when they match either
// record's normalized city. The drop is skipped when the two records name
// different cities: for geocell-blocked pairs across a municipality border
// the city token may be the only thing telling the titles apart.
func TitleScore(a, b *event.Record, cfg *config.TitleConfig) float64 {
	blend := cfg.TitleBlend
	if crossSourceOverride(a, b, cfg) {
		blend = cfg.CrossSourceType
	}

	cityTokens := map[string]bool{}
	if a.LocationCityNormalized == b.LocationCityNormalized ||
		a.LocationCityNormalized == "" || b.LocationCityNormalized == "" {
		for _, city := range []string{a.LocationCityNormalized, b.LocationCityNormalized} {
			for _, t := range tokenize(city) {
				cityTokens[t] = true
			}
		}
	}
	ta := dropTokens(a.TitleNormalized, cityTokens)
	tb := dropTokens(b.TitleNormalized, cityTokens)

	p := TokenSortRatio(ta, tb)
	if p < blend.BlendLower || p > blend.BlendUpper {
		return p
	}
	s := TokenSetRatio(ta, tb)
	return blend.PrimaryWeight*p + blend.SecondaryWeight*s
}

// crossSourceOverride applies when the two records come from different source
// types and both types are listed in the override set (article and listing by
// default; ads can be opted in via config).
func crossSourceOverride(a, b *event.Record, cfg *config.TitleConfig) bool {
	if a.SourceType == b.SourceType {
		return false
	}
	return typeListed(a.SourceType, cfg.CrossSourceTypes) && typeListed(b.SourceType, cfg.CrossSourceTypes)
}

func typeListed(t event.SourceType, listed []string) bool {
	for _, l := range listed {
		if string(t) == l {
			return true
		}
	}
	return false
}

// dropTokens removes the given tokens from the title. A title that would end
// up empty keeps its original tokens; some events are simply named after
// their town.
func dropTokens(title string, drop map[string]bool) string {
	if len(drop) == 0 {
		return title
	}
	tokens := tokenize(title)
	kept := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !drop[t] {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return title
	}
	return strings.Join(kept, " ")
}
