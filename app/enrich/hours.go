package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kidzout/crawler/app/dataset"
)

var weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// German and English day tokens, short and long forms.
var dayIndex = map[string]int{
	"mo": 0, "mon": 0, "monday": 0, "montag": 0,
	"di": 1, "tue": 1, "tues": 1, "tuesday": 1, "dienstag": 1,
	"mi": 2, "wed": 2, "wednesday": 2, "mittwoch": 2,
	"do": 3, "thu": 3, "thur": 3, "thursday": 3, "donnerstag": 3,
	"fr": 4, "fri": 4, "friday": 4, "freitag": 4,
	"sa": 5, "sat": 5, "saturday": 5, "samstag": 5,
	"so": 6, "sun": 6, "sunday": 6, "sonntag": 6,
}

// Matches "Mo-Fr 09:00-17:00", "Samstag: 10.00 - 14.00 Uhr",
// "Mon-Fri closed", "Montag Ruhetag" and the single-day variants.
var hoursPattern = regexp.MustCompile(`(?i)(\p{L}+)\.?(?:\s*[-–]\s*(\p{L}+)\.?)?\s*:?\s*(?:(\d{1,2})[:.](\d{2})\s*[-–]\s*(\d{1,2})[:.](\d{2})(?:\s*uhr)?|(geschlossen|closed|ruhetag))`)

// ParseOpeningHours turns a free-text hours string into the tri-state
// schedule. Unrecognized phrasings come back unparsed with the original
// text retained, never as an empty "closed everywhere" schedule.
func ParseOpeningHours(text string) *dataset.OpeningHours {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	days := make(map[string][]dataset.TimeRange)
	closed := make(map[int]bool)
	matched := false

	for _, m := range hoursPattern.FindAllStringSubmatch(trimmed, -1) {
		start, ok := dayIndex[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		end := start
		if m[2] != "" {
			end, ok = dayIndex[strings.ToLower(m[2])]
			if !ok {
				continue
			}
		}

		isClosed := m[7] != ""
		var interval dataset.TimeRange
		if !isClosed {
			interval = dataset.TimeRange{
				Open:  clockString(m[3], m[4]),
				Close: clockString(m[5], m[6]),
			}
		}

		// Day ranges may wrap (Sa-Mo).
		for i := start; ; i = (i + 1) % 7 {
			if isClosed {
				closed[i] = true
			} else {
				days[weekdayNames[i]] = append(days[weekdayNames[i]], interval)
			}
			if i == end {
				break
			}
		}
		matched = true
	}

	if !matched {
		return &dataset.OpeningHours{Parsed: false, Raw: trimmed}
	}

	// An explicit closed day wins over a range that swept it up.
	for i, isClosed := range closed {
		if isClosed {
			delete(days, weekdayNames[i])
		}
	}

	for day := range days {
		days[day] = mergeIntervals(days[day])
	}

	return &dataset.OpeningHours{Parsed: true, Days: days}
}

func clockString(hour, minute string) string {
	h, _ := strconv.Atoi(hour)
	return fmt.Sprintf("%02d:%s", h, minute)
}

// mergeIntervals sorts a day's intervals and collapses overlaps so the
// output is an ordered list of non-overlapping ranges.
func mergeIntervals(intervals []dataset.TimeRange) []dataset.TimeRange {
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Open < intervals[j].Open
	})

	merged := intervals[:1]
	for _, next := range intervals[1:] {
		last := &merged[len(merged)-1]
		if next.Open <= last.Close {
			if next.Close > last.Close {
				last.Close = next.Close
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}
