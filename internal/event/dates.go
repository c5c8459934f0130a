package event

import (
	"sort"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for start/end times.
const TimeLayout = "15:04"

// ExpandDates expands the record's date entries into the sorted set of
// distinct calendar days, inclusive of multi-day ranges. Unparseable entries
// are skipped; ingestion validates formats, so a skip here means a record
// predating validation.
func ExpandDates(dates []EventDate) []string {
	seen := make(map[string]struct{})
	for _, d := range dates {
		start, err := time.Parse(DateLayout, d.Date)
		if err != nil {
			continue
		}
		end := start
		if d.EndDate != "" {
			if e, err := time.Parse(DateLayout, d.EndDate); err == nil && !e.Before(start) {
				end = e
			}
		}
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			seen[day.Format(DateLayout)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for day := range seen {
		out = append(out, day)
	}
	sort.Strings(out)
	return out
}

// DateSpan returns the first and last expanded day, or empty strings when the
// record has no parseable dates.
func DateSpan(dates []EventDate) (first, last string) {
	days := ExpandDates(dates)
	if len(days) == 0 {
		return "", ""
	}
	return days[0], days[len(days)-1]
}

// FirstStartTime returns the start time of the earliest date entry, or ""
// when no entry carries one.
func FirstStartTime(dates []EventDate) string {
	best := ""
	bestDay := ""
	for _, d := range dates {
		if d.StartTime == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, d.Date); err != nil {
			continue
		}
		if bestDay == "" || d.Date < bestDay {
			bestDay = d.Date
			best = d.StartTime
		}
	}
	return best
}

// MinutesBetween returns the absolute distance in minutes between two "HH:MM"
// times, and false if either fails to parse.
func MinutesBetween(a, b string) (int, bool) {
	ta, err := time.Parse(TimeLayout, a)
	if err != nil {
		return 0, false
	}
	tb, err := time.Parse(TimeLayout, b)
	if err != nil {
		return 0, false
	}
	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Minutes()), true
}
