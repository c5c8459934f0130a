package config

// Default normalization tables for the upper-Rhine / Black Forest region the
// feeds cover. All entries are matched against already-lowercased text, so the
// variants here are written in their folded (umlaut-expanded) form.

// DefaultSynonyms maps dialect and spelling variants to one canonical form.
// The map is flat: a canonical form must never itself appear as a variant of
// another group (Normalizer construction enforces this).
func DefaultSynonyms() map[string]string {
	return map[string]string{
		// Alemannic carnival
		"fasnet":     "fastnacht",
		"fasnacht":   "fastnacht",
		"fasent":     "fastnacht",
		"fassenacht": "fastnacht",
		"fasching":   "fastnacht",

		// Christmas markets
		"christkindlemarkt":  "weihnachtsmarkt",
		"christkindlesmarkt": "weihnachtsmarkt",
		"adventsmarkt":       "weihnachtsmarkt",

		// Fun fairs / parish fairs
		"kilbe":  "kirmes",
		"kilwi":  "kirmes",
		"chilbi": "kirmes",
		"messdi": "kirmes",

		// Wine festivals
		"winzerfest": "weinfest",
		"herbstfest": "weinfest",
		"weinmarkt":  "weinfest",

		// Flea markets
		"trempelmarkt":   "flohmarkt",
		"kruschtelmarkt": "flohmarkt",
	}
}

// DefaultCityAliases resolves districts to their parent municipality after
// text normalization, so blocking and geo scoring see one city name.
func DefaultCityAliases() map[string]string {
	return map[string]string{
		"haslach":       "freiburg",
		"herdern":       "freiburg",
		"wiehre":        "freiburg",
		"zaehringen":    "freiburg",
		"littenweiler":  "freiburg",
		"st georgen":    "freiburg",
		"kollnau":       "waldkirch",
		"buchholz":      "waldkirch",
		"batzenhaeusle": "waldkirch",
		"wasser":        "emmendingen",
		"windenreute":   "emmendingen",
		"koendringen":   "teningen",
		"nimburg":       "teningen",
		"oberprechtal":  "elzach",
		"yach":          "elzach",
	}
}

// DefaultDashPrefixes are publisher tags stripped from raw titles when they
// are followed by a dash (`-`, `--`, `–`, `—`).
func DefaultDashPrefixes() []string {
	return []string{
		"Anzeige",
		"Sponsored",
		"Verlosung",
		"Ticketverlosung",
		"Pressemitteilung",
	}
}

// DefaultColonPrefixes are section tags stripped from raw titles when they
// are followed by a colon and whitespace.
func DefaultColonPrefixes() []string {
	return []string{
		"Veranstaltungstipp",
		"Tipp",
		"Termin",
		"Heute",
		"Vorschau",
		"Update",
	}
}
