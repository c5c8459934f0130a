// Package textnorm normalizes German event text for matching: casefolding,
// umlaut expansion, dialect synonym folding, and whitespace/punctuation
// canonicalization, plus publisher-prefix stripping of raw titles.
package textnorm

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// umlautReplacer expands German umlauts and ß into their digraph spellings.
// Both precomposed and base+combining-diaeresis forms are handled; input is
// lowercased before this runs.
var umlautReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"ä", "ae", "ö", "oe", "ü", "ue",
)

// Fold applies the cheap transforms only: lowercase, NFC, umlaut expansion.
// Scorers use it for venue names and descriptions where synonym folding and
// punctuation stripping would do more harm than good.
func Fold(s string) string {
	return umlautReplacer.Replace(norm.NFC.String(strings.ToLower(s)))
}

// Normalizer applies the full normalization pass. Construct via New; the
// zero value normalizes without any synonym folding.
type Normalizer struct {
	synonyms map[string]string
	variants []string // sorted longest-first
	aliases  map[string]string
}

// New validates the synonym map and builds a Normalizer. The map must be
// flat: a canonical form may not itself be a variant of another group,
// otherwise folding would depend on application order.
func New(synonyms, cityAliases map[string]string) (*Normalizer, error) {
	for variant, canonical := range synonyms {
		if variant == "" {
			return nil, fmt.Errorf("synonym map contains an empty variant")
		}
		if other, ok := synonyms[canonical]; ok && other != canonical {
			return nil, fmt.Errorf("synonym canonical %q (for variant %q) is itself a variant of %q", canonical, variant, other)
		}
	}

	variants := make([]string, 0, len(synonyms))
	for v := range synonyms {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i]) != len(variants[j]) {
			return len(variants[i]) > len(variants[j])
		}
		return variants[i] < variants[j]
	})

	return &Normalizer{synonyms: synonyms, variants: variants, aliases: cityAliases}, nil
}

// Normalize runs the full pass in fixed order: lowercase, NFC, umlaut
// expansion, synonym folding, whitespace collapse, punctuation strip
// (hyphens survive for German compounds). The function is idempotent.
func (n *Normalizer) Normalize(s string) string {
	s = Fold(s)
	s = n.foldSynonyms(s)
	s = collapseWhitespace(s)
	s = stripPunctuation(s)
	return s
}

// NormalizeCity normalizes and then resolves district names to their parent
// municipality.
func (n *Normalizer) NormalizeCity(s string) string {
	city := n.Normalize(s)
	if n.aliases != nil {
		if parent, ok := n.aliases[city]; ok {
			return parent
		}
	}
	return city
}

// foldSynonyms rewrites each variant to its canonical form in a single
// left-to-right pass. Replaced text is never rescanned, so a canonical form
// containing another variant stays untouched. Variants are tried
// longest-first at each position.
func (n *Normalizer) foldSynonyms(s string) string {
	if len(n.variants) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		matched := false
		for _, v := range n.variants {
			if strings.HasPrefix(s[i:], v) {
				b.WriteString(n.synonyms[v])
				i += len(v)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripPunctuation removes punctuation except hyphens and re-collapses the
// whitespace the removal may expose, keeping Normalize idempotent.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '-':
			b.WriteRune(r)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return collapseWhitespace(b.String())
}
