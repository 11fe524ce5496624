package dataset

// Coordinates is a resolved geographic position. Records whose
// geocoding failed carry a nil pointer, never a zero value.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TimeRange is a half-open interval within a day, "HH:MM" to "HH:MM".
type TimeRange struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// OpeningHours is the tri-state result of parsing a free-text hours
// string. When Parsed is true, Days maps lowercase English weekday names
// to their open intervals and a day absent from the map is closed. When
// Parsed is false the phrasing was not recognized and Raw keeps the
// original text for manual review; an unparsed schedule is never treated
// as closed.
type OpeningHours struct {
	Parsed bool                   `json:"parsed"`
	Raw    string                 `json:"raw,omitempty"`
	Days   map[string][]TimeRange `json:"days,omitempty"`
}

// IsClosed reports whether a day is known to be closed. Only meaningful
// on a parsed schedule.
func (h *OpeningHours) IsClosed(day string) bool {
	if h == nil || !h.Parsed {
		return false
	}
	return len(h.Days[day]) == 0
}

// EnrichedEvent is the unit written to the event bucket of the dataset.
// A non-empty Name and Source are invariants; everything else may be
// absent.
type EnrichedEvent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	NameKids    string   `json:"nameKids"`
	Date        string   `json:"date,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	DateText    string   `json:"dateText,omitempty"`
	Category    string   `json:"category"`
	AgeGroups   []string `json:"ageGroups"`
	Description string   `json:"description,omitempty"`

	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`

	Location    string       `json:"location,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	WeatherDependent string   `json:"weatherDependent"`
	EnergyLevel      string   `json:"energyLevel"`
	ParentTips       []string `json:"parentTips,omitempty"`

	Source      string `json:"source"`
	Link        string `json:"link,omitempty"`
	LastUpdated string `json:"lastUpdated"`
}

// Location is the venue counterpart of EnrichedEvent.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NameKids    string `json:"nameKids"`
	Address     string `json:"address,omitempty"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`

	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`

	Coordinates  *Coordinates  `json:"coordinates,omitempty"`
	OpeningHours *OpeningHours `json:"openingHours,omitempty"`

	AgeGroups       []string          `json:"ageGroups"`
	Content         map[string]string `json:"content,omitempty"`
	WeatherSuitable string            `json:"weatherSuitable"`
	EnergyLevel     string            `json:"energyLevel"`
	Duration        string            `json:"duration,omitempty"`
	ParentTips      []string          `json:"parentTips,omitempty"`
	Highlights      []string          `json:"highlights,omitempty"`
	Amenities       []string          `json:"amenities,omitempty"`

	Source      string `json:"source"`
	Link        string `json:"link,omitempty"`
	LastUpdated string `json:"lastUpdated"`
}

// Metadata summarizes a crawl run inside the dataset file.
type Metadata struct {
	Version              string  `json:"version"`
	LastCrawled          string  `json:"lastCrawled"`
	TotalEvents          int     `json:"totalEvents"`
	TotalLocations       int     `json:"totalLocations"`
	CrawlDurationSeconds float64 `json:"crawlDurationSeconds"`
}

// Dataset is the persisted output: both buckets plus run metadata.
type Dataset struct {
	Events    []*EnrichedEvent `json:"events"`
	Locations []*Location      `json:"locations"`
	Metadata  Metadata         `json:"metadata"`
}
