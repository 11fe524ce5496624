package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// German month names trip up every generic date parser, so they are
// mapped to English before parsing.
var germanMonths = strings.NewReplacer(
	"Januar", "January",
	"Februar", "February",
	"März", "March",
	"Mai", "May",
	"Juni", "June",
	"Juli", "July",
	"Oktober", "October",
	"Dezember", "December",
)

var dateTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{2,4}`),
	regexp.MustCompile(`\d{1,2}\.\s*(?:Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember)(?:\s+\d{4})?`),
}

var dottedDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2,4})$`)

// ParseDateText resolves a free-text date expression to a point in time.
// Returns nil when the text cannot be understood; the raw expression is
// kept on the record either way.
func ParseDateText(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// German day.month.year, which dateparse reads month-first.
	if m := dottedDate.FindStringSubmatch(text); m != nil {
		layout := "2.1.2006"
		if len(m[3]) == 2 {
			layout = "2.1.06"
		}
		if t, err := time.Parse(layout, text); err == nil {
			t = t.UTC()
			return &t
		}
	}

	translated := germanMonths.Replace(text)
	t, err := dateparse.ParseAny(translated)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// FindDateText scans arbitrary element text for the first recognizable
// date expression.
func FindDateText(text string) string {
	for _, pattern := range dateTextPatterns {
		if match := pattern.FindString(text); match != "" {
			return match
		}
	}
	return ""
}
