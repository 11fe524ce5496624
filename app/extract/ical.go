package extract

import (
	"strings"
	"time"

	"github.com/kidzout/crawler/app/sources"
)

// icalExtractor parses VEVENT blocks out of an iCalendar document.
// Content lines are unfolded first; properties carry optional parameters
// (DTSTART;TZID=Europe/Berlin:...), and timestamps may be UTC-qualified,
// zone-qualified, floating, or date-only.
type icalExtractor struct{}

type icalProperty struct {
	name   string
	params map[string]string
	value  string
}

func (e *icalExtractor) Extract(data []byte, src *sources.Source) (*Result, error) {
	lines := unfoldLines(string(data))

	result := &Result{}
	var event map[string]icalProperty
	for _, line := range lines {
		prop, ok := parseProperty(line)
		if !ok {
			continue
		}

		switch {
		case prop.name == "BEGIN" && strings.EqualFold(prop.value, "VEVENT"):
			event = make(map[string]icalProperty)
		case prop.name == "END" && strings.EqualFold(prop.value, "VEVENT"):
			if event == nil {
				continue
			}
			record, ok := e.fromEvent(event, src)
			if !ok {
				result.Skipped++
			} else {
				record.ItemIndex = len(result.Records)
				result.Records = append(result.Records, record)
			}
			event = nil
		case event != nil:
			event[prop.name] = prop
		}
	}

	return result, nil
}

func (e *icalExtractor) fromEvent(event map[string]icalProperty, src *sources.Source) (CandidateRecord, bool) {
	title := unescapeText(event["SUMMARY"].value)
	if strings.TrimSpace(title) == "" {
		return CandidateRecord{}, false
	}

	record := CandidateRecord{
		Kind:         KindEvent,
		Origin:       OriginICal,
		SourceName:   src.Name,
		Categories:   src.Categories,
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(unescapeText(event["DESCRIPTION"].value)),
		LocationText: strings.TrimSpace(unescapeText(event["LOCATION"].value)),
		URL:          strings.TrimSpace(event["URL"].value),
	}

	if start, ok := event["DTSTART"]; ok {
		record.DateText = start.value
		if t := parseICalTime(start); t != nil {
			record.Start = t
		}
	}
	if end, ok := event["DTEND"]; ok {
		if t := parseICalTime(end); t != nil {
			record.End = t
		}
	}

	return record, true
}

// unfoldLines rejoins folded content lines: a line starting with a space
// or tab continues the previous one.
func unfoldLines(data string) []string {
	raw := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")

	var lines []string
	for _, line := range raw {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func parseProperty(line string) (icalProperty, bool) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return icalProperty{}, false
	}

	head := line[:colon]
	prop := icalProperty{
		params: make(map[string]string),
		value:  line[colon+1:],
	}

	parts := strings.Split(head, ";")
	prop.name = strings.ToUpper(strings.TrimSpace(parts[0]))
	for _, part := range parts[1:] {
		if eq := strings.Index(part, "="); eq > 0 {
			prop.params[strings.ToUpper(part[:eq])] = part[eq+1:]
		}
	}
	return prop, prop.name != ""
}

func parseICalTime(prop icalProperty) *time.Time {
	value := strings.TrimSpace(prop.value)
	if value == "" {
		return nil
	}

	// UTC-qualified.
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return &t
	}

	// Zone-qualified or floating.
	if t, err := time.Parse("20060102T150405", value); err == nil {
		loc := time.Local
		if tzid := prop.params["TZID"]; tzid != "" {
			if l, err := time.LoadLocation(tzid); err == nil {
				loc = l
			}
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).UTC()
		return &t
	}

	// All-day.
	if t, err := time.Parse("20060102", value); err == nil {
		t = t.UTC()
		return &t
	}

	return nil
}

func unescapeText(value string) string {
	replacer := strings.NewReplacer(
		`\n`, "\n",
		`\N`, "\n",
		`\,`, ",",
		`\;`, ";",
		`\\`, `\`,
	)
	return replacer.Replace(value)
}
