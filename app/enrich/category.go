package enrich

import "strings"

// Keyword taxonomy for kids' events. First hit wins, checked in a fixed
// order so mixed descriptions map deterministically.
var eventCategories = []struct {
	name     string
	keywords []string
}{
	{"theater", []string{"theater", "puppentheater", "kasperl", "bühne", "musical"}},
	{"museum", []string{"museum", "ausstellung", "galerie", "kunst"}},
	{"outdoor", []string{"spielplatz", "outdoor", "park", "garten", "wandern", "natur", "draußen"}},
	{"indoor", []string{"indoor", "halle", "drinnen"}},
	{"kreativ", []string{"workshop", "basteln", "kreativ", "malen", "werken", "kurs"}},
	{"schwimmbad", []string{"schwimmen", "baden", "pool", "freibad", "hallenbad", "wasser"}},
	{"sport", []string{"sport", "turnen", "fußball", "klettern", "bewegung", "tanz"}},
	{"musik", []string{"musik", "konzert", "singen", "instrument"}},
	{"kino", []string{"kino", "film", "vorführung"}},
	{"festival", []string{"fest", "festival", "markt", "feier"}},
}

var locationCategories = []struct {
	name     string
	keywords []string
}{
	{"spielplatz", []string{"spielplatz"}},
	{"museum", []string{"museum"}},
	{"tierpark", []string{"tier", "zoo"}},
	{"schwimmbad", []string{"schwimm", "bad"}},
	{"indoor", []string{"indoor", "halle"}},
}

// MapCategory classifies an event by its title and description text.
func MapCategory(text string) string {
	t := strings.ToLower(text)
	for _, category := range eventCategories {
		for _, keyword := range category.keywords {
			if strings.Contains(t, keyword) {
				return category.name
			}
		}
	}
	return "event"
}

// MapLocationCategory classifies a venue.
func MapLocationCategory(text string) string {
	t := strings.ToLower(text)
	for _, category := range locationCategories {
		for _, keyword := range category.keywords {
			if strings.Contains(t, keyword) {
				return category.name
			}
		}
	}
	return "location"
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
