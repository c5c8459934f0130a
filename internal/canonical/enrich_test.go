package canonical

import (
	"testing"
	"time"

	"dublette/internal/event"
)

func TestEnrichKeepsLongerExistingText(t *testing.T) {
	existing := &Canonical{
		ID:          "can-1",
		Title:       "Grosses Weinfest mit Festumzug und Weinprobe",
		Description: "Handgepflegte, ausfuehrliche Beschreibung aus der Redaktion.",
		Provenance:  map[string]string{"title": "veo-3", "description": "manual"},
		Version:     2,
		NeedsReview: true,
		AIAssisted:  true,
		CreatedAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}

	records := []event.Record{
		{ID: "bz-7", Title: "Weinfest Emmendingen", Description: "Kurz."},
	}

	next := Enrich(existing, records)

	if next.Title != existing.Title {
		t.Errorf("Title downgraded to %q", next.Title)
	}
	if next.Provenance["title"] != "veo-3" {
		t.Errorf("title provenance = %q", next.Provenance["title"])
	}
	if next.Description != existing.Description {
		t.Errorf("Description downgraded to %q", next.Description)
	}
	if next.Provenance["description"] != "manual" {
		t.Errorf("description provenance = %q", next.Provenance["description"])
	}

	if next.ID != "can-1" {
		t.Errorf("ID = %q", next.ID)
	}
	if next.Version != 3 {
		t.Errorf("Version = %d, want 3", next.Version)
	}
	if !next.NeedsReview || !next.AIAssisted {
		t.Errorf("review state not carried: %v / %v", next.NeedsReview, next.AIAssisted)
	}
	if !next.CreatedAt.Equal(existing.CreatedAt) {
		t.Errorf("CreatedAt = %v", next.CreatedAt)
	}
}

func TestEnrichAcceptsStrictlyLongerValue(t *testing.T) {
	existing := &Canonical{
		ID:         "can-2",
		Title:      "Weinfest Emmendingen",
		Provenance: map[string]string{"title": "szo-9"},
		Version:    1,
	}
	records := []event.Record{
		{ID: "veo-3", Title: "Grosses Weinfest Emmendingen mit Festumzug"},
	}

	next := Enrich(existing, records)

	if next.Title != "Grosses Weinfest Emmendingen mit Festumzug" {
		t.Errorf("Title = %q", next.Title)
	}
	if next.Provenance["title"] != "veo-3" {
		t.Errorf("title provenance = %q", next.Provenance["title"])
	}
	if next.Version != 2 {
		t.Errorf("Version = %d", next.Version)
	}
}

func TestEnrichEqualLengthTakesCandidate(t *testing.T) {
	// Only a strictly longer existing value survives; at equal length the
	// fresh synthesis wins.
	existing := &Canonical{
		ID:         "can-3",
		Title:      "Herbstmarkt Elzach",
		Provenance: map[string]string{"title": "bz-1"},
	}
	records := []event.Record{
		{ID: "veo-1", Title: "Elzach Herbstmarkt"},
	}

	next := Enrich(existing, records)
	if next.Title != "Elzach Herbstmarkt" {
		t.Errorf("Title = %q", next.Title)
	}
	if next.Provenance["title"] != "veo-1" {
		t.Errorf("title provenance = %q", next.Provenance["title"])
	}
}

func TestEnrichUnguardedFieldsFollowSynthesis(t *testing.T) {
	existing := &Canonical{
		ID:           "can-4",
		Title:        "Fastnachtseroeffnung in Waldkirch",
		LocationName: "Alt",
		Provenance:   map[string]string{"title": "bz-1", "location_name": "bz-1"},
	}
	records := []event.Record{
		{ID: "veo-1", Title: "Kurz", LocationName: "Marktplatz Waldkirch"},
	}

	next := Enrich(existing, records)
	// location_name is not downgrade guarded; the new synthesis wins even
	// though the old value happened to be shorter on a different record set.
	if next.LocationName != "Marktplatz Waldkirch" {
		t.Errorf("LocationName = %q", next.LocationName)
	}
	if next.Provenance["location_name"] != "veo-1" {
		t.Errorf("location_name provenance = %q", next.Provenance["location_name"])
	}
	if next.Title != existing.Title {
		t.Errorf("Title = %q", next.Title)
	}
}
