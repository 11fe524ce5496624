package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var eventTypes = map[string]bool{
	"Event":           true,
	"ChildrensEvent":  true,
	"TheaterEvent":    true,
	"MusicEvent":      true,
	"ExhibitionEvent": true,
	"Festival":        true,
}

var placeTypes = map[string]bool{
	"Place":             true,
	"LocalBusiness":     true,
	"TouristAttraction": true,
	"CivicStructure":    true,
}

// extractStructured scans every embedded JSON-LD block for schema.org
// Event and Place entities. Malformed blocks are skipped; structured
// markup sits next to a lot of broken hand-written JSON in the wild.
func extractStructured(doc *goquery.Document, want Kind) []CandidateRecord {
	var records []CandidateRecord

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return
		}
		for _, node := range flattenLD(payload) {
			record, ok := fromLDNode(node, want)
			if !ok {
				continue
			}
			record.ItemIndex = len(records)
			records = append(records, record)
		}
	})

	return records
}

// flattenLD unwraps the three shapes JSON-LD ships in: a single object,
// a top-level list, or an @graph container.
func flattenLD(payload any) []map[string]any {
	var nodes []map[string]any

	switch v := payload.(type) {
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				if node, ok := item.(map[string]any); ok {
					nodes = append(nodes, node)
				}
			}
			return nodes
		}
		nodes = append(nodes, v)
	case []any:
		for _, item := range v {
			if node, ok := item.(map[string]any); ok {
				nodes = append(nodes, node)
			}
		}
	}
	return nodes
}

func fromLDNode(node map[string]any, want Kind) (CandidateRecord, bool) {
	kind, ok := ldKind(node)
	if !ok || kind != want {
		return CandidateRecord{}, false
	}

	name := ldString(node, "name")
	if strings.TrimSpace(name) == "" {
		return CandidateRecord{}, false
	}

	record := CandidateRecord{
		Kind:        kind,
		Origin:      OriginStructured,
		Title:       strings.TrimSpace(name),
		Description: strings.TrimSpace(ldString(node, "description")),
		URL:         strings.TrimSpace(ldString(node, "url")),
	}

	if kind == KindEvent {
		record.DateText = ldString(node, "startDate")
		record.Start = ParseDateText(record.DateText)
		if end := ldString(node, "endDate"); end != "" {
			record.End = ParseDateText(end)
		}
		if location, ok := node["location"].(map[string]any); ok {
			record.LocationText = strings.TrimSpace(ldString(location, "name"))
			record.Address = ldAddress(location["address"])
		}
	} else {
		record.Address = ldAddress(node["address"])
		record.HoursText = ldHours(node["openingHours"])
	}

	if geo, ok := node["geo"].(map[string]any); ok {
		if lat, ok := ldFloat(geo, "latitude"); ok {
			if lon, ok := ldFloat(geo, "longitude"); ok {
				record.Lat = &lat
				record.Lon = &lon
			}
		}
	}

	return record, true
}

func ldKind(node map[string]any) (Kind, bool) {
	var names []string
	switch t := node["@type"].(type) {
	case string:
		names = []string{t}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	}

	for _, name := range names {
		if eventTypes[name] {
			return KindEvent, true
		}
		if placeTypes[name] {
			return KindLocation, true
		}
	}
	return "", false
}

func ldString(node map[string]any, key string) string {
	switch v := node[key].(type) {
	case string:
		return v
	case map[string]any:
		// Localized text objects use @value.
		if s, ok := v["@value"].(string); ok {
			return s
		}
	}
	return ""
}

func ldFloat(node map[string]any, key string) (float64, bool) {
	switch v := node[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func ldAddress(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		street := ldString(v, "streetAddress")
		postal := ldString(v, "postalCode")
		city := ldString(v, "addressLocality")
		if street == "" {
			return strings.TrimSpace(city)
		}
		return strings.TrimSpace(fmt.Sprintf("%s, %s %s", street, postal, city))
	}
	return ""
}

func ldHours(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
