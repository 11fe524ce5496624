package sources

// Format identifies the wire format a source is declared to serve.
// The extraction variant is selected by this tag, never by sniffing.
type Format string

const (
	FormatHTML      Format = "html"
	FormatRSS       Format = "rss"
	FormatAtom      Format = "atom"
	FormatICal      Format = "ical"
	FormatLocations Format = "locations"
)

func (f Format) Valid() bool {
	switch f {
	case FormatHTML, FormatRSS, FormatAtom, FormatICal, FormatLocations:
		return true
	}
	return false
}

// Selectors configure the HTML-heuristic extractor for a single source.
// All fields are optional; the extractor falls back to a generic ladder.
type Selectors struct {
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
}

type Source struct {
	Name       string    `yaml:"name"`
	URL        string    `yaml:"url"`
	Format     Format    `yaml:"format"`
	Categories []string  `yaml:"categories"`
	Selectors  Selectors `yaml:"selectors"`
}

// IsLocation reports whether the source feeds the venue bucket of the
// dataset instead of the event bucket.
func (s *Source) IsLocation() bool {
	return s.Format == FormatLocations
}
