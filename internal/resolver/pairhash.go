// Package resolver escalates ambiguous candidate pairs to an LLM, caching
// verdicts by content hash and recording token spend per call.
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"dublette/internal/event"
)

// PairHash returns a hex SHA-256 over the matching-relevant content of both
// records, serialized in id order so hash(a,b) == hash(b,a). Editing any
// field that feeds the prompt changes the hash and forces a fresh verdict.
func PairHash(a, b *event.Record) string {
	if b.ID < a.ID {
		a, b = b, a
	}
	h := sha256.New()
	writeRecord(h, a)
	h.Write([]byte{0x1e})
	writeRecord(h, b)
	return hex.EncodeToString(h.Sum(nil))
}

func writeRecord(h interface{ Write([]byte) (int, error) }, r *event.Record) {
	var sb strings.Builder
	sb.WriteString(r.Title)
	sb.WriteByte('\x1f')
	sb.WriteString(r.TitleNormalized)
	sb.WriteByte('\x1f')
	sb.WriteString(r.ShortDescription)
	sb.WriteByte('\x1f')
	sb.WriteString(r.Description)
	sb.WriteByte('\x1f')
	sb.WriteString(string(r.SourceType))
	sb.WriteByte('\x1f')
	sb.WriteString(r.LocationCityNormalized)
	sb.WriteByte('\x1f')
	sb.WriteString(r.LocationName)
	sb.WriteByte('\x1f')

	days := event.ExpandDates(r.Dates)
	sb.WriteString(strings.Join(days, ","))
	sb.WriteByte('\x1f')

	if r.HasCoordinates() {
		// Rounded so sub-meter geocoder jitter does not bust the cache.
		sb.WriteString(fmt.Sprintf("%.4f,%.4f", *r.GeoLatitude, *r.GeoLongitude))
	}
	sb.WriteByte('\x1f')

	cats := append([]string(nil), r.Categories...)
	sort.Strings(cats)
	sb.WriteString(strings.Join(cats, ","))

	h.Write([]byte(sb.String()))
}
