package enrich

import "strings"

const kidsNameLimit = 50

var eventEmojis = []struct {
	emoji    string
	keywords []string
}{
	{"🎭", []string{"theater", "kasperl"}},
	{"🎨", []string{"workshop", "basteln"}},
	{"🎵", []string{"musik", "konzert"}},
	{"⚽", []string{"sport", "bewegung"}},
	{"🏛️", []string{"museum"}},
}

var locationEmojis = []struct {
	emoji    string
	keywords []string
}{
	{"🏞️", []string{"spielplatz"}},
	{"🏛️", []string{"museum"}},
	{"🏠", []string{"indoor", "halle"}},
	{"🏊", []string{"schwimm", "bad"}},
	{"🦁", []string{"tier", "zoo"}},
}

// KidsEventName derives the kid-friendly display name for an event.
// Pure string transformation, never fails.
func KidsEventName(title, text string) string {
	t := strings.ToLower(text)
	for _, e := range eventEmojis {
		if containsAny(t, e.keywords...) {
			return e.emoji + " " + truncateRunes(title, kidsNameLimit)
		}
	}
	return "🎉 " + truncateRunes(title, kidsNameLimit)
}

// KidsLocationName is the venue counterpart.
func KidsLocationName(name, text string) string {
	t := strings.ToLower(text)
	for _, e := range locationEmojis {
		if containsAny(t, e.keywords...) {
			return e.emoji + " " + truncateRunes(name, kidsNameLimit)
		}
	}
	return "🎯 " + truncateRunes(name, kidsNameLimit)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
