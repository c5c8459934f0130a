package canonical

import (
	"dublette/internal/event"
	"dublette/internal/logging"
)

// Strategy selects how one canonical field is merged from the cluster's
// records.
type Strategy string

const (
	StrategyLongestNonGeneric Strategy = "longest_non_generic"
	StrategyLongest           Strategy = "longest"
	StrategyMostComplete      Strategy = "most_complete"
	StrategyMostFrequent      Strategy = "most_frequent"
	StrategyUnion             Strategy = "union"
	StrategyHighestConfidence Strategy = "highest_confidence"
	StrategyAnyTrue           Strategy = "any_true"
)

// genericTitleMaxLen: titles shorter than this are treated as generic
// ("Konzert", "Flohmarkt") and only win when nothing longer exists.
const genericTitleMaxLen = 10

// textField binds a field name to its strategy and accessors. Adding a text
// field to the model means adding one row here.
type textField struct {
	name     string
	strategy Strategy
	get      func(*event.Record) string
	set      func(*Canonical, string)
}

var textFields = []textField{
	{"title", StrategyLongestNonGeneric,
		func(r *event.Record) string { return r.Title },
		func(c *Canonical, v string) { c.Title = v }},
	{"short_description", StrategyLongest,
		func(r *event.Record) string { return r.ShortDescription },
		func(c *Canonical, v string) { c.ShortDescription = v }},
	{"description", StrategyLongest,
		func(r *event.Record) string { return r.Description },
		func(c *Canonical, v string) { c.Description = v }},
	{"location_name", StrategyMostComplete,
		func(r *event.Record) string { return r.LocationName },
		func(c *Canonical, v string) { c.LocationName = v }},
	{"location_district", StrategyMostComplete,
		func(r *event.Record) string { return r.LocationDistrict },
		func(c *Canonical, v string) { c.LocationDistrict = v }},
	{"location_street", StrategyMostComplete,
		func(r *event.Record) string { return r.LocationStreet },
		func(c *Canonical, v string) { c.LocationStreet = v }},
	{"location_zipcode", StrategyMostComplete,
		func(r *event.Record) string { return r.LocationZipcode },
		func(c *Canonical, v string) { c.LocationZipcode = v }},
	{"location_city", StrategyMostFrequent,
		func(r *event.Record) string { return r.LocationCity },
		func(c *Canonical, v string) { c.LocationCity = v }},
}

// boolField binds a nullable flag to the any_true strategy.
type boolField struct {
	name string
	get  func(*event.Record) *bool
	set  func(*Canonical, *bool)
}

var boolFields = []boolField{
	{"is_family_event",
		func(r *event.Record) *bool { return r.IsFamilyEvent },
		func(c *Canonical, v *bool) { c.IsFamilyEvent = v }},
	{"is_child_focused",
		func(r *event.Record) *bool { return r.IsChildFocused },
		func(c *Canonical, v *bool) { c.IsChildFocused = v }},
	{"admission_free",
		func(r *event.Record) *bool { return r.AdmissionFree },
		func(c *Canonical, v *bool) { c.AdmissionFree = v }},
}

// Synthesize merges a non-empty, ordered record sequence into one canonical
// event plus its provenance map. Ties within "longest" and plurality votes
// break toward the first occurrence in input order, which is why callers
// must hand records over in a stable order.
func Synthesize(records []event.Record) Canonical {
	timer := logging.StartTimer(logging.CategorySynth, "Synthesize")
	defer timer.Stop()

	c := Canonical{
		SourceCount: len(records),
		Provenance:  make(map[string]string),
	}

	for _, f := range textFields {
		value, from := pickText(records, f)
		if value == "" {
			continue
		}
		f.set(&c, value)
		c.Provenance[f.name] = from
	}

	if hs := unionStrings(records, func(r *event.Record) []string { return r.Highlights }); len(hs) > 0 {
		c.Highlights = hs
		c.Provenance["highlights"] = ProvenanceUnionAllSources
	}
	if cats := unionStrings(records, func(r *event.Record) []string { return r.Categories }); len(cats) > 0 {
		c.Categories = cats
		c.Provenance["categories"] = ProvenanceUnionAllSources
	}

	if geoFrom := pickGeo(records); geoFrom != "" {
		for i := range records {
			if records[i].ID == geoFrom {
				c.GeoLatitude = records[i].GeoLatitude
				c.GeoLongitude = records[i].GeoLongitude
				c.GeoConfidence = records[i].GeoConfidence
				break
			}
		}
		c.Provenance["geo"] = geoFrom
	}

	for _, f := range boolFields {
		value, from := pickBool(records, f)
		if value == nil {
			continue
		}
		f.set(&c, value)
		c.Provenance[f.name] = from
	}

	c.Dates = unionDates(records)
	if len(c.Dates) > 0 {
		c.Provenance["dates"] = ProvenanceUnionAllSources
		c.FirstDate, c.LastDate = event.DateSpan(c.Dates)
	}

	return c
}

// pickText dispatches on the field's strategy and returns the winning value
// with the contributing record id.
func pickText(records []event.Record, f textField) (string, string) {
	switch f.strategy {
	case StrategyLongestNonGeneric:
		value, from := longestWhere(records, f.get, genericTitleMaxLen)
		if value != "" {
			return value, from
		}
		return longestWhere(records, f.get, 0)
	case StrategyLongest, StrategyMostComplete:
		return longestWhere(records, f.get, 0)
	case StrategyMostFrequent:
		return mostFrequent(records, f.get)
	default:
		return "", ""
	}
}

// longestWhere picks the longest non-empty value with length >= minLen,
// first occurrence winning ties.
func longestWhere(records []event.Record, get func(*event.Record) string, minLen int) (string, string) {
	best, from := "", ""
	for i := range records {
		v := get(&records[i])
		if v == "" || len(v) < minLen {
			continue
		}
		if len(v) > len(best) {
			best, from = v, records[i].ID
		}
	}
	return best, from
}

// mostFrequent is a plurality vote, first occurrence breaking ties.
func mostFrequent(records []event.Record, get func(*event.Record) string) (string, string) {
	counts := make(map[string]int)
	firstFrom := make(map[string]string)
	order := []string{}
	for i := range records {
		v := get(&records[i])
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
			firstFrom[v] = records[i].ID
		}
		counts[v]++
	}
	best := ""
	for _, v := range order {
		if best == "" || counts[v] > counts[best] {
			best = v
		}
	}
	if best == "" {
		return "", ""
	}
	return best, firstFrom[best]
}

// pickGeo returns the id of the record with the highest geocode confidence,
// among those that have coordinates at all.
func pickGeo(records []event.Record) string {
	best := ""
	bestConf := -1.0
	for i := range records {
		if !records[i].HasCoordinates() {
			continue
		}
		if conf := records[i].Confidence(); conf > bestConf {
			bestConf = conf
			best = records[i].ID
		}
	}
	return best
}

// pickBool implements any_true: true wins and is attributed to the first
// record asserting it; otherwise the first known value survives.
func pickBool(records []event.Record, f boolField) (*bool, string) {
	var known *bool
	knownFrom := ""
	for i := range records {
		v := f.get(&records[i])
		if v == nil {
			continue
		}
		if *v {
			return v, records[i].ID
		}
		if known == nil {
			known = v
			knownFrom = records[i].ID
		}
	}
	return known, knownFrom
}

// unionStrings flattens in input order, deduplicating on first occurrence.
func unionStrings(records []event.Record, get func(*event.Record) []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for i := range records {
		for _, v := range get(&records[i]) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// unionDates deduplicates date entries by their full (date, start, end,
// end_date) tuple, preserving first-seen order.
func unionDates(records []event.Record) []event.EventDate {
	var out []event.EventDate
	seen := make(map[event.EventDate]struct{})
	for i := range records {
		for _, d := range records[i].Dates {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
