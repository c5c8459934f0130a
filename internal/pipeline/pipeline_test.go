package pipeline

import (
	"context"
	"testing"

	"dublette/internal/config"
	"dublette/internal/event"
	"dublette/internal/match"
	"dublette/internal/resolver"
	"dublette/internal/store"
)

func f64(v float64) *float64 { return &v }

// duplicatePair is the same carnival opening as seen by a newspaper and a
// listing portal: identical day, time, and geocode, dialect title variants.
func duplicatePair() []event.Record {
	return []event.Record{
		{
			ID: "bz-1", SourceCode: "bz", SourceType: event.SourceArticle,
			Title:                  "Fasnet-Eröffnung Waldkirch",
			TitleNormalized:        "fastnacht-eroeffnung waldkirch",
			LocationCity:           "Waldkirch",
			LocationCityNormalized: "waldkirch",
			GeoLatitude:            f64(48.0913), GeoLongitude: f64(7.9606), GeoConfidence: f64(0.93),
			Dates:        []event.EventDate{{Date: "2026-02-12", StartTime: "19:00"}},
			BlockingKeys: []string{"waldkirch|2026-02-12"},
		},
		{
			ID: "veo-1", SourceCode: "veo", SourceType: event.SourceListing,
			Title:                  "Fastnachteröffnung",
			TitleNormalized:        "fastnachteroeffnung",
			LocationCity:           "Waldkirch",
			LocationCityNormalized: "waldkirch",
			GeoLatitude:            f64(48.0913), GeoLongitude: f64(7.9606), GeoConfidence: f64(0.93),
			Dates:        []event.EventDate{{Date: "2026-02-12", StartTime: "19:00"}},
			BlockingKeys: []string{"waldkirch|2026-02-12"},
		},
	}
}

func openSeeded(t *testing.T, records []event.Record) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.UpsertEvents(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunDeterministic(t *testing.T) {
	records := append(duplicatePair(),
		event.Record{
			ID: "bz-2", SourceCode: "bz", SourceType: event.SourceArticle,
			Title: "Flohmarkt", TitleNormalized: "flohmarkt",
			LocationCityNormalized: "elzach",
			Dates:                  []event.EventDate{{Date: "2026-03-01"}},
			BlockingKeys:           []string{"elzach|2026-03-01"},
		},
		event.Record{
			ID: "veo-2", SourceCode: "veo", SourceType: event.SourceListing,
			Title: "Weinfest", TitleNormalized: "weinfest",
			LocationCityNormalized: "emmendingen",
			Dates:                  []event.EventDate{{Date: "2026-09-12"}},
			BlockingKeys:           []string{"emmendingen|2026-09-12"},
		},
	)
	s := openSeeded(t, records)
	ctx := context.Background()

	p := New(config.DefaultConfig(), s, nil)
	stats, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Events != 4 || stats.Decisions != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Matches != 1 || stats.Ambiguous != 0 || stats.NoMatches != 0 {
		t.Errorf("decision tally = %+v", stats)
	}
	if stats.Clusters != 3 || stats.Singletons != 2 || stats.Canonicals != 3 {
		t.Errorf("cluster tally = %+v", stats)
	}
	if stats.Flagged != 0 {
		t.Errorf("Flagged = %d", stats.Flagged)
	}

	decisions, err := s.ListDecisions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 1 || decisions[0].Decision != match.DecisionMatch {
		t.Fatalf("decisions = %+v", decisions)
	}
	if decisions[0].EventA != "bz-1" || decisions[0].EventB != "veo-1" {
		t.Errorf("pair = %s/%s", decisions[0].EventA, decisions[0].EventB)
	}

	sums, err := s.ListCanonicals(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 3 {
		t.Fatalf("canonicals = %v", sums)
	}
	var merged *store.CanonicalSummary
	for i := range sums {
		if sums[i].SourceCount == 2 {
			merged = &sums[i]
		}
	}
	if merged == nil {
		t.Fatal("no two-source canonical")
	}
	if merged.Title != "Fasnet-Eröffnung Waldkirch" {
		t.Errorf("merged title = %q", merged.Title)
	}
	if merged.MatchConfidence == nil || *merged.MatchConfidence < 0.75 {
		t.Errorf("MatchConfidence = %v", merged.MatchConfidence)
	}
	if merged.NeedsReview || merged.AIAssisted {
		t.Errorf("merged flags = %+v", merged)
	}
}

// cinemaPair scores into the ambiguous band: everything matches except the
// titles, which trip the veto.
func cinemaPair() []event.Record {
	mk := func(id, sourceCode, title, norm string, st event.SourceType) event.Record {
		return event.Record{
			ID: id, SourceCode: sourceCode, SourceType: st,
			Title: title, TitleNormalized: norm,
			Description:            "Kino im Alten Wasserwerk, Einlass 30 Minuten vor Beginn.",
			LocationCityNormalized: "emmendingen",
			LocationName:           "Kino im Alten Wasserwerk",
			GeoLatitude:            f64(48.1171), GeoLongitude: f64(7.8465), GeoConfidence: f64(0.95),
			Dates:        []event.EventDate{{Date: "2026-03-07", StartTime: "20:00"}},
			BlockingKeys: []string{"emmendingen|2026-03-07"},
		}
	}
	return []event.Record{
		mk("prog-1", "kino", "Der Vorname", "der vorname", event.SourceListing),
		mk("zett-1", "zett", "Parasite", "parasite", event.SourceArticle),
	}
}

type stubClient struct {
	text  string
	calls int
}

func (c *stubClient) Generate(ctx context.Context, prompt string) (*resolver.Response, error) {
	c.calls++
	return &resolver.Response{Text: c.text, InputTokens: 400, OutputTokens: 30}, nil
}

func TestRunWithResolver(t *testing.T) {
	s := openSeeded(t, cinemaPair())
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.AI.Enabled = true
	cfg.AI.Model = "gemini-2.0-flash"
	cfg.AI.ConfidenceThreshold = 0.6
	cfg.AI.CacheEnabled = true
	cfg.AI.MaxConcurrentRequests = 2

	client := &stubClient{text: `{"decision":"different","confidence":0.93,"reasoning":"zwei Filme"}`}
	res, err := resolver.New(client, s, s, cfg.AI)
	if err != nil {
		t.Fatal(err)
	}

	p := New(cfg, s, res)
	stats, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if client.calls != 1 {
		t.Errorf("LLM calls = %d", client.calls)
	}
	if stats.Resolved != 1 {
		t.Errorf("Resolved = %d", stats.Resolved)
	}
	if stats.NoMatches != 1 || stats.Matches != 0 || stats.Ambiguous != 0 {
		t.Errorf("tally = %+v", stats)
	}
	if stats.Canonicals != 2 || stats.Singletons != 2 {
		t.Errorf("cluster tally = %+v", stats)
	}

	decisions, err := s.ListDecisions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 1 {
		t.Fatal("expected one decision")
	}
	if decisions[0].Decision != match.DecisionNoMatch || decisions[0].Tier != match.TierAI {
		t.Errorf("decision = %s/%s", decisions[0].Decision, decisions[0].Tier)
	}

	// The verdict is cached and the spend is on the ledger.
	sum, err := s.SummarizeUsage(ctx, res.BatchID())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Calls != 1 || sum.CacheHits != 0 || sum.TokensIn != 400 {
		t.Errorf("usage = %+v", sum)
	}

	// A second run hits the cache instead of the model.
	res2, err := resolver.New(client, s, s, cfg.AI)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(cfg, s, res2).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if client.calls != 1 {
		t.Errorf("LLM called again: %d", client.calls)
	}
	sum, err = s.SummarizeUsage(ctx, res2.BatchID())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Calls != 1 || sum.CacheHits != 1 || sum.TotalCostUSD != 0 {
		t.Errorf("cached run usage = %+v", sum)
	}
}

func TestRebuild(t *testing.T) {
	s := openSeeded(t, duplicatePair())
	ctx := context.Background()
	p := New(config.DefaultConfig(), s, nil)

	if _, err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}

	stats, err := p.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if stats.Decisions != 1 || stats.Canonicals != 1 || stats.Clusters != 1 {
		t.Errorf("stats = %+v", stats)
	}

	sums, err := s.ListCanonicals(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 || sums[0].SourceCount != 2 {
		t.Errorf("canonicals = %v", sums)
	}
}

func TestRunEmptyStore(t *testing.T) {
	s := openSeeded(t, nil)
	p := New(config.DefaultConfig(), s, nil)
	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Events != 0 || stats.Canonicals != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
