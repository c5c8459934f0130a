package textnorm

import (
	"testing"

	"dublette/internal/config"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(config.DefaultSynonyms(), config.DefaultCityAliases())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return n
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "WEIHNACHTSMARKT", "weihnachtsmarkt"},
		{"umlauts", "Eröffnung über Straßburg", "eroeffnung ueber strassburg"},
		{"dialect carnival", "Fasnet in Elzach", "fastnacht in elzach"},
		{"dialect fair", "Kilbe auf dem Marktplatz", "kirmes auf dem marktplatz"},
		{"whitespace collapse", "  viel \t zu   viel  ", "viel zu viel"},
		{"punctuation dropped", "Konzert! (ausverkauft)", "konzert ausverkauft"},
		{"hyphen survives", "Fasnet-Eröffnung", "fastnacht-eroeffnung"},
		{"punctuation gap recollapsed", "a , b", "a b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newTestNormalizer(t)
	inputs := []string{
		"Fasnet-Eröffnung Waldkirch",
		"Anzeige - Großer Weihnachtsmarkt!",
		"  Kilbe,   in; Höllental  ",
		"Chilbi & Winzerfest (2026)",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeCity(t *testing.T) {
	n := newTestNormalizer(t)
	tests := []struct {
		in   string
		want string
	}{
		{"Haslach", "freiburg"},
		{"Littenweiler", "freiburg"},
		{"Kollnau", "waldkirch"},
		{"Freiburg", "freiburg"},
		{"Elzach", "elzach"},
	}
	for _, tt := range tests {
		if got := n.NormalizeCity(tt.in); got != tt.want {
			t.Errorf("NormalizeCity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRejectsChainedSynonyms(t *testing.T) {
	// fasnet -> fasnacht while fasnacht -> fastnacht makes the result depend
	// on application order.
	_, err := New(map[string]string{
		"fasnet":   "fasnacht",
		"fasnacht": "fastnacht",
	}, nil)
	if err == nil {
		t.Fatal("expected error for chained synonym map")
	}
}

func TestFold(t *testing.T) {
	if got := Fold("Müller-Straße"); got != "mueller-strasse" {
		t.Errorf("Fold = %q, want %q", got, "mueller-strasse")
	}
	// Combining-diaeresis form folds the same as precomposed.
	if got := Fold("Müller"); got != "mueller" {
		t.Errorf("Fold(combining form) = %q, want %q", got, "mueller")
	}
}

func TestPrefixStrip(t *testing.T) {
	ps := NewPrefixStripper(config.DefaultDashPrefixes(), config.DefaultColonPrefixes())
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dash prefix", "Anzeige - Weihnachtsmarkt Freiburg", "Weihnachtsmarkt Freiburg"},
		{"double dash", "Anzeige -- Weihnachtsmarkt", "Weihnachtsmarkt"},
		{"en dash", "Verlosung – Konzertkarten", "Konzertkarten"},
		{"case insensitive", "ANZEIGE - Flohmarkt", "Flohmarkt"},
		{"colon prefix", "Veranstaltungstipp: Jazz im Park", "Jazz im Park"},
		{"colon needs space", "Tipp:ohne Leerzeichen", "Tipp:ohne Leerzeichen"},
		{"only one strip", "Anzeige - Tipp: Konzert", "Tipp: Konzert"},
		{"no prefix", "Weihnachtsmarkt Freiburg", "Weihnachtsmarkt Freiburg"},
		{"prefix mid-title ignored", "Der Anzeige - Fall", "Der Anzeige - Fall"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ps.Strip(tt.in); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
