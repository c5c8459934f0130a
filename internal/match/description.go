package match

import (
	"dublette/internal/event"
	"dublette/internal/textnorm"
)

// Description scorer constants. A pair where neither side carries any
// description is neutral; a pair where exactly one side does leans slightly
// negative, since publishers of the same event rarely diverge that far.
const (
	descBothMissing = 0.5
	descOneMissing  = 0.4
)

// DescriptionScore compares the long descriptions, falling back to the short
// ones when the long form is absent on either side.
func DescriptionScore(a, b *event.Record) float64 {
	da := pickDescription(a, b)
	db := pickDescription(b, a)
	switch {
	case da == "" && db == "":
		return descBothMissing
	case da == "" || db == "":
		return descOneMissing
	}
	return TokenSortRatio(textnorm.Fold(da), textnorm.Fold(db))
}

// pickDescription uses the long description only when both records have one,
// so the comparison never pits a full article body against a one-liner.
func pickDescription(r, other *event.Record) string {
	if r.Description != "" && other.Description != "" {
		return r.Description
	}
	return r.ShortDescription
}
