// Package event defines the source-event record model shared by ingestion,
// scoring, clustering, and synthesis.
package event

// SourceType classifies the publisher format a record came from.
type SourceType string

const (
	SourceArticle SourceType = "article"
	SourceListing SourceType = "listing"
	SourceAd      SourceType = "ad"
)

// EventDate is one scheduled occurrence. EndDate, when set, denotes an
// inclusive multi-day range. Times are "HH:MM" and optional.
type EventDate struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// Record is one event entry from one publisher. IDs are opaque
// provider-assigned strings; ordering between ids is plain byte comparison.
type Record struct {
	ID         string     `json:"id"`
	SourceCode string     `json:"source_code"`
	SourceType SourceType `json:"source_type"`

	Title            string `json:"title"`
	TitleNormalized  string `json:"title_normalized"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`

	Highlights []string `json:"highlights,omitempty"`

	LocationName           string `json:"location_name"`
	LocationCity           string `json:"location_city"`
	LocationCityNormalized string `json:"location_city_normalized"`
	LocationDistrict       string `json:"location_district"`
	LocationStreet         string `json:"location_street"`
	LocationZipcode        string `json:"location_zipcode"`

	GeoLatitude   *float64 `json:"geo_latitude,omitempty"`
	GeoLongitude  *float64 `json:"geo_longitude,omitempty"`
	GeoConfidence *float64 `json:"geo_confidence,omitempty"`

	Categories []string `json:"categories,omitempty"`

	IsFamilyEvent  *bool `json:"is_family_event,omitempty"`
	IsChildFocused *bool `json:"is_child_focused,omitempty"`
	AdmissionFree  *bool `json:"admission_free,omitempty"`

	Dates []EventDate `json:"dates"`

	BlockingKeys []string `json:"blocking_keys,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r *Record) HasCoordinates() bool {
	return r.GeoLatitude != nil && r.GeoLongitude != nil
}

// Confidence returns the geocode confidence, or 0 when absent.
func (r *Record) Confidence() float64 {
	if r.GeoConfidence == nil {
		return 0
	}
	return *r.GeoConfidence
}

// BestDescription returns the long description, falling back to the short one.
func (r *Record) BestDescription() string {
	if r.Description != "" {
		return r.Description
	}
	return r.ShortDescription
}

// HasCategory reports whether the record carries the given category.
func (r *Record) HasCategory(cat string) bool {
	for _, c := range r.Categories {
		if c == cat {
			return true
		}
	}
	return false
}
