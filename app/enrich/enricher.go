package enrich

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kidzout/crawler/app/dataset"
	"github.com/kidzout/crawler/app/extract"
)

const descriptionLimit = 500

// Geocoder resolves free-text addresses to coordinates. The concrete
// implementation caches and rate-limits; the enricher only sees the
// lookup.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (*dataset.Coordinates, error)
}

// Enricher applies the independent post-processing steps to candidate
// records. Every step may leave its field absent; only a missing title
// or source reference is fatal to a record.
type Enricher struct {
	geocoder Geocoder
	city     string
	region   string
	country  string
}

func NewEnricher(geocoder Geocoder, city, region, country string) *Enricher {
	return &Enricher{
		geocoder: geocoder,
		city:     city,
		region:   region,
		country:  country,
	}
}

// EnrichEvent turns a candidate into the event written to the dataset.
func (e *Enricher) EnrichEvent(ctx context.Context, record extract.CandidateRecord) (*dataset.EnrichedEvent, error) {
	if strings.TrimSpace(record.Title) == "" {
		return nil, fmt.Errorf("record has no title")
	}
	if record.SourceName == "" {
		return nil, fmt.Errorf("record has no source reference")
	}

	text := classificationText(record)
	category := MapCategory(text)

	event := &dataset.EnrichedEvent{
		Name:        truncateRunes(record.Title, 200),
		NameKids:    KidsEventName(record.Title, text),
		DateText:    record.DateText,
		Category:    category,
		AgeGroups:   InferAgeGroups(text, category),
		Description: shorten(record.Description, descriptionLimit),
		City:        e.city,
		Region:      e.region,
		Country:     e.country,
		Location:    record.LocationText,

		WeatherDependent: weatherDependence(text),
		EnergyLevel:      energyLevel(text),
		ParentTips: []string{
			"Rechtzeitig da sein - beliebte Events sind schnell voll",
			"Snacks und Getränke mitbringen",
			"Mit Öffis anreisen wenn möglich",
		},

		Source:      record.SourceName,
		Link:        record.URL,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}

	if record.Start != nil {
		event.Date = record.Start.Format("2006-01-02")
	}
	if record.End != nil {
		event.EndDate = record.End.Format("2006-01-02")
	}

	event.ID = "ev-" + stableID(event.Name, event.Date, event.Link)
	event.Coordinates = e.resolveCoordinates(ctx, record)

	return event, nil
}

// EnrichLocation turns a venue candidate into a Location record.
func (e *Enricher) EnrichLocation(ctx context.Context, record extract.CandidateRecord) (*dataset.Location, error) {
	if strings.TrimSpace(record.Title) == "" {
		return nil, fmt.Errorf("record has no title")
	}
	if record.SourceName == "" {
		return nil, fmt.Errorf("record has no source reference")
	}

	text := classificationText(record)
	category := MapLocationCategory(text)
	description := shorten(record.Description, descriptionLimit)

	location := &dataset.Location{
		Name:        truncateRunes(record.Title, 200),
		NameKids:    KidsLocationName(record.Title, text),
		Address:     record.Address,
		Category:    category,
		Description: description,
		City:        e.city,
		Region:      e.region,
		Country:     e.country,

		AgeGroups:       InferAgeGroups(text, category),
		Content:         ageContent(description),
		WeatherSuitable: weatherDependence(text),
		EnergyLevel:     locationEnergyLevel(text),
		Duration:        estimatedDuration(text),
		Highlights:      locationHighlights(text),
		Amenities:       locationAmenities(text),

		Source:      record.SourceName,
		Link:        record.URL,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}

	location.ID = "loc-" + stableID(location.Name, location.Address, location.Link)
	location.ParentTips = locationParentTips(text, location.WeatherSuitable)
	location.OpeningHours = ParseOpeningHours(record.HoursText)
	location.Coordinates = e.resolveCoordinates(ctx, record)

	return location, nil
}

// classificationText is the haystack the keyword steps search: title,
// description and the source's topic hints, lowercased.
func classificationText(record extract.CandidateRecord) string {
	parts := []string{record.Title, record.Description}
	parts = append(parts, record.Categories...)
	return strings.ToLower(strings.Join(parts, " "))
}

// resolveCoordinates prefers coordinates the extractor already found in
// structured markup, then falls back to geocoding the address or the
// free-text location. A failed lookup leaves the field absent.
func (e *Enricher) resolveCoordinates(ctx context.Context, record extract.CandidateRecord) *dataset.Coordinates {
	if record.Lat != nil && record.Lon != nil {
		return &dataset.Coordinates{Lat: *record.Lat, Lon: *record.Lon}
	}
	if e.geocoder == nil {
		return nil
	}

	address := record.Address
	if address == "" {
		address = record.LocationText
	}
	if strings.TrimSpace(address) == "" {
		return nil
	}

	coords, err := e.geocoder.Resolve(ctx, fmt.Sprintf("%s, %s, %s", address, e.city, e.country))
	if err != nil {
		slog.Debug("Geocoding failed", "address", address, "error", err)
		return nil
	}
	return coords
}

func weatherDependence(text string) string {
	if containsAny(text, "draußen", "outdoor", "garten", "park", "spielplatz", "wandern") {
		return "good-weather"
	}
	if containsAny(text, "drinnen", "indoor", "halle", "museum", "theater") {
		return "indoor"
	}
	return "any"
}

func energyLevel(text string) string {
	if containsAny(text, "sport", "toben", "klettern", "rennen", "action", "trampolin") {
		return "aktiv"
	}
	if containsAny(text, "basteln", "malen", "lesen", "märchen", "ruhig") {
		return "ruhig"
	}
	return "moderat"
}

func locationEnergyLevel(text string) string {
	if containsAny(text, "sport", "klettern", "toben", "action", "spielplatz") {
		return "high"
	}
	if containsAny(text, "basteln", "malen", "lesen", "museum") {
		return "low"
	}
	return "medium"
}

func estimatedDuration(text string) string {
	if strings.Contains(text, "museum") {
		return "2-3 Stunden"
	}
	if strings.Contains(text, "spielplatz") {
		return "1-2 Stunden"
	}
	return "2-4 Stunden"
}

func ageContent(description string) map[string]string {
	base := truncateRunes(description, 150)
	return map[string]string{
		AgePreschool: "Ein toller Ort für kleine Entdecker! " + base,
		AgeSchool:    "Spannend für Schulkinder! " + base,
		AgePreteen:   "Perfekt für ältere Kinder! " + base,
	}
}

func locationParentTips(text, weather string) []string {
	tips := []string{"Wasser und Snacks nicht vergessen"}
	if weather == "good-weather" {
		tips = append(tips, "Sonnenschutz und wetterfeste Kleidung einpacken")
	}
	if weather == "indoor" {
		tips = append(tips, "Wechselkleidung kann hilfreich sein")
	}
	if strings.Contains(text, "spielplatz") {
		tips = append(tips, "Erste-Hilfe-Set griffbereit haben")
	}
	return tips
}

func locationHighlights(text string) []string {
	var highlights []string
	if containsAny(text, "kostenlos", "frei") {
		highlights = append(highlights, "Kostenloser Eintritt")
	}
	if containsAny(text, "parkplatz", "parken") {
		highlights = append(highlights, "Parkplätze vorhanden")
	}
	if containsAny(text, "öpnv", "u-bahn", "bus") {
		highlights = append(highlights, "Gut mit Öffis erreichbar")
	}
	return highlights
}

func locationAmenities(text string) []string {
	var amenities []string
	if strings.Contains(text, "wickel") {
		amenities = append(amenities, "Wickelraum")
	}
	if containsAny(text, "wc", "toilette") {
		amenities = append(amenities, "WC")
	}
	if strings.Contains(text, "parkplatz") {
		amenities = append(amenities, "Parkplatz")
	}
	if containsAny(text, "rollstuhl", "barrierefrei") {
		amenities = append(amenities, "Rollstuhlgerecht")
	}
	return amenities
}

// stableID hashes the identifying fields so re-crawls produce the same
// ID for the same logical record.
func stableID(parts ...string) string {
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])[:16]
}

func shorten(text string, limit int) string {
	text = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(text, "\r", " "), "\n", " "))
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
