package canonical

import (
	"dublette/internal/event"
	"dublette/internal/logging"
)

// downgradeGuarded names the fields where a manually curated value must not
// be replaced by a shorter synthesized one.
type guardedField struct {
	name string
	get  func(*Canonical) string
	set  func(*Canonical, string)
}

var guardedFields = []guardedField{
	{"title",
		func(c *Canonical) string { return c.Title },
		func(c *Canonical, v string) { c.Title = v }},
	{"short_description",
		func(c *Canonical) string { return c.ShortDescription },
		func(c *Canonical, v string) { c.ShortDescription = v }},
	{"description",
		func(c *Canonical) string { return c.Description },
		func(c *Canonical, v string) { c.Description = v }},
}

// Enrich re-synthesizes an existing canonical from an updated record set.
// Guarded text fields only change when the new value is strictly longer than
// what is already there; everything else follows the normal synthesis rules.
// The result carries the existing identity and review state with the version
// bumped by one.
func Enrich(existing *Canonical, records []event.Record) Canonical {
	timer := logging.StartTimer(logging.CategorySynth, "Enrich")
	defer timer.Stop()

	next := Synthesize(records)

	for _, f := range guardedFields {
		old := f.get(existing)
		if old == "" {
			continue
		}
		if len(f.get(&next)) >= len(old) {
			continue
		}
		f.set(&next, old)
		if from, ok := existing.Provenance[f.name]; ok {
			next.Provenance[f.name] = from
		} else {
			delete(next.Provenance, f.name)
		}
	}

	next.ID = existing.ID
	next.MatchConfidence = existing.MatchConfidence
	next.NeedsReview = existing.NeedsReview
	next.AIAssisted = existing.AIAssisted
	next.Version = existing.Version + 1
	next.CreatedAt = existing.CreatedAt

	logging.Synth("enriched canonical %s to version %d (%d sources)",
		next.ID, next.Version, next.SourceCount)
	return next
}
