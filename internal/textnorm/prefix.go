package textnorm

import (
	"regexp"
	"strings"
)

// PrefixStripper removes configured publisher prefixes from raw titles before
// normalization. Dash prefixes match `<prefix> - ...` with `-`, `--`, `–` or
// `—` as separator; colon prefixes match `<prefix>: ...`. Matching is
// case-insensitive, first match wins, and exactly one prefix is stripped per
// call.
type PrefixStripper struct {
	dash  []prefixPattern
	colon []prefixPattern
}

type prefixPattern struct {
	prefix string
	re     *regexp.Regexp
}

// NewPrefixStripper compiles the prefix tables.
func NewPrefixStripper(dashPrefixes, colonPrefixes []string) *PrefixStripper {
	ps := &PrefixStripper{}
	for _, p := range dashPrefixes {
		re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(p) + `\s*(--|-|–|—)\s*`)
		ps.dash = append(ps.dash, prefixPattern{prefix: p, re: re})
	}
	for _, p := range colonPrefixes {
		re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(p) + `:\s+`)
		ps.colon = append(ps.colon, prefixPattern{prefix: p, re: re})
	}
	return ps
}

// Strip removes the first matching prefix and returns the remainder trimmed.
// Dash prefixes are tried before colon prefixes, in configuration order.
func (ps *PrefixStripper) Strip(title string) string {
	for _, p := range ps.dash {
		if loc := p.re.FindStringIndex(title); loc != nil {
			return strings.TrimSpace(title[loc[1]:])
		}
	}
	for _, p := range ps.colon {
		if loc := p.re.FindStringIndex(title); loc != nil {
			return strings.TrimSpace(title[loc[1]:])
		}
	}
	return title
}
