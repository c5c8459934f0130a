package canonical

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dublette/internal/event"
)

func f64(v float64) *float64 { return &v }
func b(v bool) *bool         { return &v }

func clusterRecords() []event.Record {
	return []event.Record{
		{
			ID:               "bz-7",
			Title:            "Weinfest", // generic, loses
			ShortDescription: "Weinfest in Emmendingen",
			Description:      "Das grosse Weinfest mit Festumzug durch die Innenstadt.",
			Highlights:       []string{"Festumzug", "Weinprobe"},
			LocationName:     "Marktplatz",
			LocationCity:     "Emmendingen",
			GeoLatitude:      f64(48.1213),
			GeoLongitude:     f64(7.8493),
			GeoConfidence:    f64(0.92),
			Categories:       []string{"fest"},
			AdmissionFree:    b(false),
			Dates:            []event.EventDate{{Date: "2026-09-12", StartTime: "14:00"}},
		},
		{
			ID:             "veo-3",
			Title:          "Grosses Weinfest mit Festumzug",
			Highlights:     []string{"Weinprobe", "Kinderprogramm"},
			LocationName:   "Marktplatz Emmendingen",
			LocationCity:   "Emmendingen",
			LocationStreet: "Marktplatz 1",
			GeoLatitude:    f64(48.1214),
			GeoLongitude:   f64(7.8490),
			GeoConfidence:  f64(0.97),
			Categories:     []string{"fest", "familie"},
			IsFamilyEvent:  b(true),
			AdmissionFree:  b(true),
			Dates: []event.EventDate{
				{Date: "2026-09-12", StartTime: "14:00"},
				{Date: "2026-09-13"},
			},
		},
		{
			ID:           "szo-9",
			Title:        "Weinfest Emmendingen",
			LocationCity: "Waldkirch", // outvoted 2:1
			Dates:        []event.EventDate{{Date: "2026-09-13"}},
		},
	}
}

func TestSynthesize(t *testing.T) {
	c := Synthesize(clusterRecords())

	if c.SourceCount != 3 {
		t.Errorf("SourceCount = %d", c.SourceCount)
	}

	// longest_non_generic: "Weinfest" is under the generic cutoff.
	if c.Title != "Grosses Weinfest mit Festumzug" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Provenance["title"] != "veo-3" {
		t.Errorf("title provenance = %q", c.Provenance["title"])
	}

	if c.Description == "" || c.Provenance["description"] != "bz-7" {
		t.Errorf("description provenance = %q", c.Provenance["description"])
	}
	if c.ShortDescription != "Weinfest in Emmendingen" {
		t.Errorf("ShortDescription = %q", c.ShortDescription)
	}

	// most_complete: longest wins.
	if c.LocationName != "Marktplatz Emmendingen" || c.Provenance["location_name"] != "veo-3" {
		t.Errorf("LocationName = %q from %q", c.LocationName, c.Provenance["location_name"])
	}
	if c.LocationStreet != "Marktplatz 1" {
		t.Errorf("LocationStreet = %q", c.LocationStreet)
	}

	// most_frequent: plurality vote, 2:1 for Emmendingen.
	if c.LocationCity != "Emmendingen" || c.Provenance["location_city"] != "bz-7" {
		t.Errorf("LocationCity = %q from %q", c.LocationCity, c.Provenance["location_city"])
	}

	// highest_confidence geo triple moves as one unit.
	if c.GeoConfidence == nil || *c.GeoConfidence != 0.97 || *c.GeoLatitude != 48.1214 {
		t.Errorf("geo = %v / %v", c.GeoLatitude, c.GeoConfidence)
	}
	if c.Provenance["geo"] != "veo-3" {
		t.Errorf("geo provenance = %q", c.Provenance["geo"])
	}

	// union: first-seen order, deduplicated.
	wantHighlights := []string{"Festumzug", "Weinprobe", "Kinderprogramm"}
	if diff := cmp.Diff(wantHighlights, c.Highlights); diff != "" {
		t.Errorf("Highlights mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"fest", "familie"}, c.Categories); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
	if c.Provenance["highlights"] != ProvenanceUnionAllSources {
		t.Errorf("highlights provenance = %q", c.Provenance["highlights"])
	}

	// any_true: true wins over the earlier false.
	if c.AdmissionFree == nil || !*c.AdmissionFree || c.Provenance["admission_free"] != "veo-3" {
		t.Errorf("AdmissionFree = %v from %q", c.AdmissionFree, c.Provenance["admission_free"])
	}
	if c.IsFamilyEvent == nil || !*c.IsFamilyEvent {
		t.Errorf("IsFamilyEvent = %v", c.IsFamilyEvent)
	}
	if c.IsChildFocused != nil {
		t.Errorf("IsChildFocused = %v, want nil", c.IsChildFocused)
	}

	// dates: union on the full tuple; the 09-12 entry and the bare 09-13 each
	// appear once despite being published twice.
	if len(c.Dates) != 2 {
		t.Fatalf("Dates = %v", c.Dates)
	}
	if c.FirstDate != "2026-09-12" || c.LastDate != "2026-09-13" {
		t.Errorf("span = %s .. %s", c.FirstDate, c.LastDate)
	}
}

func TestSynthesizeGenericFallback(t *testing.T) {
	c := Synthesize([]event.Record{
		{ID: "a", Title: "Konzert"},
		{ID: "b", Title: "Kino"},
	})
	// All titles generic: longest of them still wins.
	if c.Title != "Konzert" || c.Provenance["title"] != "a" {
		t.Errorf("Title = %q from %q", c.Title, c.Provenance["title"])
	}
}

func TestSynthesizeFirstOccurrenceTieBreak(t *testing.T) {
	c := Synthesize([]event.Record{
		{ID: "a", LocationCity: "Elzach"},
		{ID: "b", LocationCity: "Winden"},
	})
	// 1:1 vote falls to the first record.
	if c.LocationCity != "Elzach" || c.Provenance["location_city"] != "a" {
		t.Errorf("LocationCity = %q from %q", c.LocationCity, c.Provenance["location_city"])
	}
}

func TestSynthesizeEmptyFieldsGetNoProvenance(t *testing.T) {
	c := Synthesize([]event.Record{{ID: "a", Title: "Herbstausstellung"}})
	for _, key := range []string{"description", "location_city", "geo", "dates"} {
		if _, ok := c.Provenance[key]; ok {
			t.Errorf("unexpected provenance entry %q", key)
		}
	}
	if c.Provenance["title"] != "a" {
		t.Errorf("title provenance = %q", c.Provenance["title"])
	}
}
