// Package canonical synthesizes one canonical event per cluster, tracking
// per-field provenance, and re-synthesizes with downgrade prevention after
// manual edits.
package canonical

import (
	"time"

	"dublette/internal/event"
)

// ProvenanceUnionAllSources marks fields aggregated from every source rather
// than picked from one.
const ProvenanceUnionAllSources = "union_all_sources"

// Canonical is the deduplicated output event. Every populated non-aggregate
// field has an entry in Provenance naming the contributing source-event id.
type Canonical struct {
	ID string

	Title            string
	ShortDescription string
	Description      string
	Highlights       []string

	LocationName     string
	LocationCity     string
	LocationDistrict string
	LocationStreet   string
	LocationZipcode  string

	GeoLatitude   *float64
	GeoLongitude  *float64
	GeoConfidence *float64

	Categories []string

	IsFamilyEvent  *bool
	IsChildFocused *bool
	AdmissionFree  *bool

	Dates []event.EventDate

	SourceCount     int
	MatchConfidence *float64
	NeedsReview     bool
	AIAssisted      bool
	FirstDate       string
	LastDate        string

	Provenance map[string]string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
