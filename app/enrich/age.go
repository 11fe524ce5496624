package enrich

import "strings"

// Age buckets used throughout the dataset.
const (
	AgeToddler   = "0-3"
	AgePreschool = "3-6"
	AgeSchool    = "6-9"
	AgePreteen   = "9-12"
)

var agePatterns = []struct {
	group    string
	keywords []string
}{
	{AgeToddler, []string{"baby", "kleinkind", "ab 1", "ab 2", "krippe", "krabbelgruppe", "0-3", "u3"}},
	{AgePreschool, []string{"kindergarten", "ab 3", "ab 4", "ab 5", "vorschule", "kita", "3-6"}},
	{AgeSchool, []string{"grundschule", "ab 6", "ab 7", "ab 8", "schulkind", "6-9", "erstklässler"}},
	{AgePreteen, []string{"ab 9", "ab 10", "ab 11", "ab 12", "teenager", "jugend", "9-12"}},
}

// InferAgeGroups looks for explicit age mentions in the record text and
// falls back to a category-based default range when none are found.
func InferAgeGroups(text, category string) []string {
	t := strings.ToLower(text)

	var groups []string
	for _, pattern := range agePatterns {
		if containsAny(t, pattern.keywords...) {
			groups = append(groups, pattern.group)
		}
	}
	if len(groups) > 0 {
		return groups
	}

	switch category {
	case "theater", "museum":
		return []string{AgePreschool, AgeSchool}
	case "sport", "kreativ":
		return []string{AgeSchool, AgePreteen}
	case "spielplatz", "outdoor":
		return []string{AgePreschool, AgeSchool}
	case "indoor":
		return []string{AgeSchool, AgePreteen}
	default:
		return []string{AgePreschool, AgeSchool, AgePreteen}
	}
}
