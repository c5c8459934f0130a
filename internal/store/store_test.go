package store

import (
	"context"
	"errors"
	"testing"

	"dublette/internal/canonical"
	"dublette/internal/event"
	"dublette/internal/match"
	"dublette/internal/resolver"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func f64(v float64) *float64 { return &v }
func bp(v bool) *bool        { return &v }

func sampleRecords() []event.Record {
	return []event.Record{
		{
			ID:         "bz-1",
			SourceCode: "bz",
			SourceType: event.SourceArticle,
			Title:      "Fasnet-Eröffnung in Waldkirch",

			TitleNormalized:        "fastnacht eroeffnung",
			ShortDescription:       "Die Narren sind los.",
			Highlights:             []string{"Narrenbaum"},
			LocationName:           "Marktplatz",
			LocationCity:           "Waldkirch",
			LocationCityNormalized: "waldkirch",
			GeoLatitude:            f64(48.0913),
			GeoLongitude:           f64(7.9606),
			GeoConfidence:          f64(0.93),
			Categories:             []string{"fastnacht"},
			IsFamilyEvent:          bp(true),
			Dates: []event.EventDate{
				{Date: "2026-02-12", StartTime: "19:00"},
				{Date: "2026-02-13"},
			},
			BlockingKeys: []string{"waldkirch|2026-02-12"},
		},
		{
			ID:              "veo-1",
			SourceCode:      "veo",
			SourceType:      event.SourceListing,
			Title:           "Fastnachteröffnung",
			TitleNormalized: "fastnachteroeffnung",
			LocationCity:    "Waldkirch",
			Dates:           []event.EventDate{{Date: "2026-02-12", StartTime: "19:00"}},
		},
	}
}

func TestUpsertAndListEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertEvents(ctx, sampleRecords()); err != nil {
		t.Fatalf("UpsertEvents: %v", err)
	}

	got, err := s.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events", len(got))
	}
	// Ordered by id: bz-1 before veo-1.
	r := got[0]
	if r.ID != "bz-1" || r.Title != "Fasnet-Eröffnung in Waldkirch" {
		t.Errorf("first event = %s / %q", r.ID, r.Title)
	}
	if len(r.Dates) != 2 || r.Dates[0].StartTime != "19:00" || r.Dates[1].Date != "2026-02-13" {
		t.Errorf("Dates = %v", r.Dates)
	}
	if len(r.Highlights) != 1 || r.Highlights[0] != "Narrenbaum" {
		t.Errorf("Highlights = %v", r.Highlights)
	}
	if r.GeoLatitude == nil || *r.GeoLatitude != 48.0913 {
		t.Errorf("GeoLatitude = %v", r.GeoLatitude)
	}
	if r.IsFamilyEvent == nil || !*r.IsFamilyEvent {
		t.Errorf("IsFamilyEvent = %v", r.IsFamilyEvent)
	}
	if got[1].GeoLatitude != nil || got[1].IsFamilyEvent != nil {
		t.Errorf("absent fields materialized: %+v", got[1])
	}
}

func TestUpsertEventsReplacesDates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	records := sampleRecords()

	if err := s.UpsertEvents(ctx, records); err != nil {
		t.Fatal(err)
	}
	records[0].Title = "Fasnet-Eröffnung"
	records[0].Dates = []event.EventDate{{Date: "2026-02-14"}}
	if err := s.UpsertEvents(ctx, records[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetEventsByIDs(ctx, []string{"bz-1"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Title != "Fasnet-Eröffnung" {
		t.Errorf("Title = %q", got[0].Title)
	}
	if len(got[0].Dates) != 1 || got[0].Dates[0].Date != "2026-02-14" {
		t.Errorf("Dates = %v", got[0].Dates)
	}

	total, sources, err := s.CountEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || sources != 2 {
		t.Errorf("counts = %d / %d", total, sources)
	}
}

func TestGetEventsByIDsMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEvents(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	_, err := s.GetEventsByIDs(ctx, []string{"bz-1", "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func testDecision(a, b string, d match.Decision, score float64) match.DecisionRecord {
	return match.DecisionRecord{
		EventA: a, EventB: b,
		CombinedScore: score,
		TitleScore:    0.9, DateScore: 1.0, GeoScore: 0.8, DescriptionScore: 0.5,
		Decision: d,
		Tier:     match.TierDeterministic,
	}
}

func TestReplaceResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEvents(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	can := canonical.Canonical{
		ID:              "can-1",
		Title:           "Fasnet-Eröffnung in Waldkirch",
		LocationCity:    "Waldkirch",
		SourceCount:     2,
		MatchConfidence: f64(0.86),
		AIAssisted:      true,
		Dates:           []event.EventDate{{Date: "2026-02-12", StartTime: "19:00"}},
		FirstDate:       "2026-02-12",
		LastDate:        "2026-02-12",
		Provenance:      map[string]string{"title": "bz-1"},
		Version:         1,
	}
	res := []CanonicalResult{{Canonical: can, SourceIDs: []string{"bz-1", "veo-1"}}}
	decs := []match.DecisionRecord{testDecision("bz-1", "veo-1", match.DecisionMatch, 0.86)}

	if err := s.ReplaceResults(ctx, decs, res); err != nil {
		t.Fatalf("ReplaceResults: %v", err)
	}

	got, err := s.GetCanonical(ctx, "can-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != can.Title || got.SourceCount != 2 || !got.AIAssisted {
		t.Errorf("canonical = %+v", got)
	}
	if got.MatchConfidence == nil || *got.MatchConfidence != 0.86 {
		t.Errorf("MatchConfidence = %v", got.MatchConfidence)
	}
	if got.Provenance["title"] != "bz-1" {
		t.Errorf("Provenance = %v", got.Provenance)
	}
	if len(got.Dates) != 1 || got.Dates[0].Date != "2026-02-12" {
		t.Errorf("Dates = %v", got.Dates)
	}

	stored, err := s.ListDecisions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0].Decision != match.DecisionMatch || stored[0].CombinedScore != 0.86 {
		t.Errorf("decisions = %+v", stored)
	}

	// A second run wipes the previous results.
	if err := s.ReplaceResults(ctx, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetCanonical(ctx, "can-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	total, _, _, err := s.CountCanonicals(ctx)
	if err != nil || total != 0 {
		t.Errorf("total = %d, err = %v", total, err)
	}
}

func TestDecisionOrderEnforced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEvents(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	err := s.ReplaceResults(ctx,
		[]match.DecisionRecord{testDecision("veo-1", "bz-1", match.DecisionMatch, 0.9)}, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestReviewStateAndLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEvents(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	can := canonical.Canonical{ID: "can-1", Title: "Fasnet", NeedsReview: true, Version: 1}
	if err := s.ReplaceResults(ctx, nil, []CanonicalResult{{Canonical: can, SourceIDs: []string{"bz-1"}}}); err != nil {
		t.Fatal(err)
	}

	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.InsertLink(ctx, "can-1", "veo-1"); err != nil {
			return err
		}
		// Duplicate link insert signals conflict.
		if err := tx.InsertLink(ctx, "can-1", "veo-1"); !errors.Is(err, ErrConflict) {
			t.Errorf("duplicate link err = %v", err)
		}
		links, err := tx.ListLinks(ctx, "can-1")
		if err != nil {
			return err
		}
		if len(links) != 2 {
			t.Errorf("links = %v", links)
		}
		if err := tx.DeleteLink(ctx, "can-1", "veo-1"); err != nil {
			return err
		}
		return tx.SetReviewState(ctx, "can-1", false, f64(1.0))
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetCanonical(ctx, "can-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.NeedsReview {
		t.Error("NeedsReview still set")
	}
	if got.MatchConfidence == nil || *got.MatchConfidence != 1.0 {
		t.Errorf("MatchConfidence = %v", got.MatchConfidence)
	}

	queue, err := s.ListCanonicals(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 0 {
		t.Errorf("review queue = %v", queue)
	}
}

func TestVerdictCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	miss, err := s.GetVerdict(ctx, "deadbeef")
	if err != nil || miss != nil {
		t.Fatalf("miss = %v, %v", miss, err)
	}

	entry := &resolver.CacheEntry{
		PairHash:     "deadbeef",
		Model:        "gemini-2.0-flash",
		Verdict:      resolver.VerdictSame,
		Confidence:   0.91,
		Reasoning:    "gleiches Fest",
		InputTokens:  812,
		OutputTokens: 34,
	}
	if err := s.PutVerdict(ctx, entry); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetVerdict(ctx, "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Verdict != resolver.VerdictSame || got.Confidence != 0.91 || got.InputTokens != 812 {
		t.Errorf("entry = %+v", got)
	}

	// A newer model's verdict replaces the row for the same hash.
	entry.Model = "gemini-2.5-flash"
	entry.Verdict = resolver.VerdictDifferent
	if err := s.PutVerdict(ctx, entry); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetVerdict(ctx, "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != "gemini-2.5-flash" || got.Verdict != resolver.VerdictDifferent {
		t.Errorf("entry after upsert = %+v", got)
	}
}

func TestUsageSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []*resolver.UsageEntry{
		{BatchID: "b1", PairHash: "h1", Model: "m", InputTokens: 1000, OutputTokens: 50, CostUSD: 0.00012},
		{BatchID: "b1", PairHash: "h2", WasCached: true},
		{BatchID: "b2", PairHash: "h3", Model: "m", InputTokens: 500, OutputTokens: 25, CostUSD: 0.00006},
	}
	for _, r := range rows {
		if err := s.LogUsage(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := s.SummarizeUsage(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Calls != 2 || sum.CacheHits != 1 || sum.TokensIn != 1000 {
		t.Errorf("batch summary = %+v", sum)
	}

	all, err := s.SummarizeUsage(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if all.Calls != 3 || all.TokensIn != 1500 {
		t.Errorf("full summary = %+v", all)
	}
	if all.TotalCostUSD < 0.00017 || all.TotalCostUSD > 0.00019 {
		t.Errorf("TotalCostUSD = %v", all.TotalCostUSD)
	}
}

func TestGroundTruthLabels(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	labels := []Label{
		{EventA: "veo-1", EventB: "bz-1", Label: "same"}, // order normalized
		{EventA: "bz-2", EventB: "veo-2", Label: "different"},
	}
	if err := s.UpsertLabels(ctx, labels); err != nil {
		t.Fatal(err)
	}
	// Relabeling the same pair updates in place.
	if err := s.UpsertLabels(ctx, []Label{{EventA: "bz-1", EventB: "veo-1", Label: "different"}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListLabels(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("labels = %v", got)
	}
	if got[0].EventA != "bz-1" || got[0].EventB != "veo-1" || got[0].Label != "different" {
		t.Errorf("labels[0] = %+v", got[0])
	}

	err = s.UpsertLabels(ctx, []Label{{EventA: "x", EventB: "x", Label: "same"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("identical-id err = %v", err)
	}
}

func TestAuditLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.AppendAudit(ctx, AuditSplit, "can-1", "veo-1", "anna",
			map[string]interface{}{"target": "can-2"}); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, AuditMerge, "can-2", "", "anna", nil)
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := s.ListAudit(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	// Newest first.
	if entries[0].Action != AuditMerge || entries[1].Action != AuditSplit {
		t.Errorf("order = %s, %s", entries[0].Action, entries[1].Action)
	}
	if entries[1].Details["target"] != "can-2" {
		t.Errorf("details = %v", entries[1].Details)
	}
	if entries[1].Operator != "anna" || entries[1].SourceID != "veo-1" {
		t.Errorf("entry = %+v", entries[1])
	}
}

func TestIngestionHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, ing := range []*Ingestion{
		{FilePath: "data/bz_events.json", SourceCode: "bz", RecordsTotal: 40, RecordsAccepted: 38, RecordsRejected: 2},
		{FilePath: "data/veo_events.json", SourceCode: "veo", RecordsTotal: 25, RecordsAccepted: 25},
	} {
		if err := s.RecordIngestion(ctx, ing); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListIngestions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("ingestions = %v", got)
	}
	if got[0].FilePath != "data/veo_events.json" {
		t.Errorf("newest first violated: %s", got[0].FilePath)
	}
	if got[1].RecordsRejected != 2 {
		t.Errorf("RecordsRejected = %d", got[1].RecordsRejected)
	}
}

func TestRollbackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.AppendAudit(ctx, AuditOverride, "can-1", "", "op", nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	entries, err := s.ListAudit(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rolled-back write visible: %v", entries)
	}
}
