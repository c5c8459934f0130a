package resolver

import (
	"encoding/json"
	"strings"

	"dublette/internal/event"
)

// systemPrompt frames the task for the model. German regional events come
// with dialect spellings (Fasnet, Fasnacht, Fasching all mean carnival) and
// articles often announce the same event a listing portal already carries.
const systemPrompt = `Du bist ein Experte fuer regionale Veranstaltungen in Suedbaden.
Du bekommst zwei Veranstaltungsdatensaetze aus unterschiedlichen Quellen und
entscheidest, ob beide dieselbe reale Veranstaltung beschreiben.

Beachte:
- Dialekt- und Schreibvarianten (Fasnet, Fasnacht, Fasching; Chilbi, Kirmes)
  bezeichnen haeufig dasselbe Fest.
- Zeitungsartikel kuendigen Veranstaltungen oft mit anderem Titel an als
  Veranstaltungskalender sie fuehren.
- Gleicher Ort und gleiches Datum mit verschiedenem Programm (z.B. zwei
  Filme im selben Kino) sind VERSCHIEDENE Veranstaltungen.
- Mehrtaegige Feste koennen sich in den angegebenen Tagen unterscheiden und
  trotzdem dasselbe Fest sein.

Antworte ausschliesslich mit JSON:
{"decision": "same" | "different", "confidence": 0.0-1.0, "reasoning": "kurze Begruendung"}`

// promptEvent is the subset of a record serialized into the prompt. Keep in
// step with PairHash: every field here must feed the hash.
type promptEvent struct {
	Title       string   `json:"titel"`
	Description string   `json:"beschreibung,omitempty"`
	SourceType  string   `json:"quellentyp"`
	City        string   `json:"ort,omitempty"`
	Venue       string   `json:"veranstaltungsort,omitempty"`
	Dates       []string `json:"termine,omitempty"`
	Categories  []string `json:"kategorien,omitempty"`
}

// BuildPrompt renders the full request text for one pair.
func BuildPrompt(a, b *event.Record) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n[VERANSTALTUNG A]\n")
	sb.Write(marshalEvent(a))
	sb.WriteString("\n\n[VERANSTALTUNG B]\n")
	sb.Write(marshalEvent(b))
	return sb.String()
}

func marshalEvent(r *event.Record) []byte {
	desc := r.Description
	if desc == "" {
		desc = r.ShortDescription
	}
	p := promptEvent{
		Title:       r.Title,
		Description: desc,
		SourceType:  string(r.SourceType),
		City:        r.LocationCity,
		Venue:       r.LocationName,
		Dates:       event.ExpandDates(r.Dates),
		Categories:  r.Categories,
	}
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return []byte("{}")
	}
	return out
}
