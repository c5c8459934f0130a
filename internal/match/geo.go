package match

import (
	"math"

	"dublette/internal/config"
	"dublette/internal/event"
	"dublette/internal/textnorm"
)

const earthRadiusKM = 6371.0

// coordEpsilon treats geocodes as identical. Identical coordinates almost
// always mean both sources resolved the same venue through the same geocoder,
// so the confidence gate is bypassed.
const coordEpsilon = 1e-6

// GeoScore scores geographic proximity. Missing coordinates or a
// low-confidence geocode yield the neutral score rather than a penalty.
func GeoScore(a, b *event.Record, cfg *config.GeoConfig) float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return cfg.NeutralScore
	}

	identical := math.Abs(*a.GeoLatitude-*b.GeoLatitude) < coordEpsilon &&
		math.Abs(*a.GeoLongitude-*b.GeoLongitude) < coordEpsilon
	if !identical {
		if a.Confidence() < cfg.MinConfidence || b.Confidence() < cfg.MinConfidence {
			return cfg.NeutralScore
		}
	}

	distKM := 0.0
	if !identical {
		distKM = haversineKM(*a.GeoLatitude, *a.GeoLongitude, *b.GeoLatitude, *b.GeoLongitude)
	}

	score := math.Max(0, 1.0-distKM/cfg.MaxDistanceKM)

	// Two different venues can sit within the same city block; a strong name
	// disagreement at near-identical coordinates halves the score.
	if distKM < cfg.VenueMatchDistanceKM && a.LocationName != "" && b.LocationName != "" {
		nameRatio := TokenSortRatio(textnorm.Fold(a.LocationName), textnorm.Fold(b.LocationName))
		if nameRatio < 0.5 {
			score *= cfg.VenueMismatchFactor
		}
	}
	return score
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1*rad)*math.Cos(lat2*rad)*sinLon*sinLon
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
