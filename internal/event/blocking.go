package event

import (
	"fmt"
	"math"
	"sort"
)

// Blocking key grammar:
//
//	dc|YYYY-MM-DD|<city_normalized>
//	dg|YYYY-MM-DD|<cell_lat>|<cell_lon>
//
// Two events sharing any key become a candidate pair. Geocell keys are only
// emitted for confident geocodes inside the coverage rectangle, so a sloppy
// geocoder cannot pull unrelated events into one bucket.
const (
	// GeocellMinConfidence gates geocell key emission.
	GeocellMinConfidence = 0.85

	// Coverage rectangle (upper Rhine / Black Forest).
	regionLatMin = 47.5
	regionLatMax = 48.5
	regionLonMin = 7.3
	regionLonMax = 8.5

	// Cell sizes, roughly 10 km at this latitude.
	cellLatSize = 0.09
	cellLonSize = 0.13
)

// ComputeBlockingKeys derives the record's blocking keys from its dates,
// normalized city, and gated geocell. The result is sorted and deduplicated.
func ComputeBlockingKeys(r *Record) []string {
	days := ExpandDates(r.Dates)
	if len(days) == 0 {
		return nil
	}

	emitGeo := r.HasCoordinates() &&
		r.Confidence() >= GeocellMinConfidence &&
		*r.GeoLatitude >= regionLatMin && *r.GeoLatitude <= regionLatMax &&
		*r.GeoLongitude >= regionLonMin && *r.GeoLongitude <= regionLonMax

	seen := make(map[string]struct{})
	for _, day := range days {
		if r.LocationCityNormalized != "" {
			seen[fmt.Sprintf("dc|%s|%s", day, r.LocationCityNormalized)] = struct{}{}
		}
		if emitGeo {
			cellLat := math.Round(*r.GeoLatitude/cellLatSize) * cellLatSize
			cellLon := math.Round(*r.GeoLongitude/cellLonSize) * cellLonSize
			seen[fmt.Sprintf("dg|%s|%.2f|%.2f", day, cellLat, cellLon)] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
