package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// The fuzzy ratios below operate on already-normalized text (lowercased,
// umlaut-expanded). Tokenization splits on whitespace and hyphens so that
// "fastnacht-eroeffnung" and "fastnacht eroeffnung" compare equal.
//
// German feeds constantly disagree on compound spelling: one source writes
// "Fastnachteröffnung", another "Fastnacht-Eröffnung". Before comparing,
// compound tokens on one side are split against the other side's token set;
// a token that is exactly a concatenation of two or more of the other side's
// tokens is replaced by those parts.

// Ratio is the Levenshtein similarity of two strings in [0,1].
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	la := len([]rune(a))
	lb := len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	return 1.0 - float64(dist)/float64(max)
}

// TokenSortRatio compares the two strings with tokens sorted, so word order
// never matters. Compound tokens are aligned first.
func TokenSortRatio(a, b string) float64 {
	ta, tb := alignCompounds(tokenize(a), tokenize(b))
	return Ratio(sortJoin(ta), sortJoin(tb))
}

// TokenSetRatio compares intersection and differences of the token sets and
// returns the best of the three pairings, so a title fully contained in a
// longer one scores near 1.0.
func TokenSetRatio(a, b string) float64 {
	ta, tb := alignCompounds(tokenize(a), tokenize(b))

	inter, onlyA, onlyB := splitSets(ta, tb)
	t0 := sortJoin(inter)
	t1 := strings.TrimSpace(t0 + " " + sortJoin(onlyA))
	t2 := strings.TrimSpace(t0 + " " + sortJoin(onlyB))

	best := Ratio(t1, t2)
	if t0 != "" {
		if r := Ratio(t0, t1); r > best {
			best = r
		}
		if r := Ratio(t0, t2); r > best {
			best = r
		}
	}
	return best
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-'
	})
}

func sortJoin(tokens []string) string {
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// alignCompounds splits compound tokens on each side against the other
// side's tokens. Only multi-part decompositions count; a plain equal token
// is left alone.
func alignCompounds(a, b []string) ([]string, []string) {
	return splitAgainst(a, b), splitAgainst(b, a)
}

func splitAgainst(tokens, against []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if parts := decompose(t, against); len(parts) > 1 {
			out = append(out, parts...)
		} else {
			out = append(out, t)
		}
	}
	return out
}

// decompose greedily expresses t as a concatenation of tokens from vocab,
// longest prefix first. Returns nil unless t is fully consumed by at least
// two parts.
func decompose(t string, vocab []string) []string {
	byLen := make([]string, len(vocab))
	copy(byLen, vocab)
	sort.Slice(byLen, func(i, j int) bool { return len(byLen[i]) > len(byLen[j]) })

	var parts []string
	rest := t
	for rest != "" {
		matched := false
		for _, v := range byLen {
			if v != "" && strings.HasPrefix(rest, v) {
				parts = append(parts, v)
				rest = rest[len(v):]
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
	}
	if len(parts) < 2 {
		return nil
	}
	return parts
}

func splitSets(a, b []string) (inter, onlyA, onlyB []string) {
	setB := make(map[string]int)
	for _, t := range b {
		setB[t]++
	}
	seenA := make(map[string]bool)
	for _, t := range a {
		if setB[t] > 0 && !seenA[t] {
			inter = append(inter, t)
			seenA[t] = true
		} else if setB[t] == 0 {
			onlyA = append(onlyA, t)
		}
	}
	interSet := make(map[string]bool)
	for _, t := range inter {
		interSet[t] = true
	}
	for _, t := range b {
		if !interSet[t] {
			onlyB = append(onlyB, t)
		}
	}
	return inter, onlyA, onlyB
}
