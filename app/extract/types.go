package extract

import (
	"time"

	"github.com/kidzout/crawler/app/sources"
)

// Origin tags which extraction variant produced a record.
type Origin string

const (
	OriginStructured Origin = "jsonld"
	OriginRSS        Origin = "rss"
	OriginAtom       Origin = "atom"
	OriginICal       Origin = "ical"
	OriginHTML       Origin = "html"
)

// Kind separates events from venue records; both flow through the same
// pipeline but land in different output buckets.
type Kind string

const (
	KindEvent    Kind = "event"
	KindLocation Kind = "location"
)

// CandidateRecord is a raw extracted item before enrichment. It is
// immutable once produced: the enricher builds its own output from it.
type CandidateRecord struct {
	Kind        Kind
	Origin      Origin
	SourceName  string
	ItemIndex   int

	Title       string
	Description string
	URL         string

	// Topic hints: the source's configured categories plus whatever
	// the document itself declared.
	Categories []string

	// Raw time expression as found in the document, plus whatever the
	// extractor could already resolve. Absent times stay nil.
	DateText string
	Start    *time.Time
	End      *time.Time

	// Venue fields. LocationText is the free-text place name, Address
	// the postal address used for geocoding.
	LocationText string
	Address      string

	// Structured markup occasionally carries these directly; the
	// enricher keeps them instead of recomputing.
	Lat       *float64
	Lon       *float64
	HoursText string
}

// Result is the outcome of extracting one document. Skipped counts
// malformed sibling items that were dropped without failing the document.
type Result struct {
	Records []CandidateRecord
	Skipped int
}

// Extractor turns raw response bytes into candidate records. Extraction
// is pure: identical bytes yield an identical record sequence.
type Extractor interface {
	Extract(data []byte, src *sources.Source) (*Result, error)
}

// ForFormat selects the extraction variant for a source's declared
// format. The set is closed; unknown formats are rejected at config
// validation, so this never sees one.
func ForFormat(format sources.Format) Extractor {
	switch format {
	case sources.FormatRSS:
		return &feedExtractor{origin: OriginRSS}
	case sources.FormatAtom:
		return &feedExtractor{origin: OriginAtom}
	case sources.FormatICal:
		return &icalExtractor{}
	case sources.FormatLocations:
		return &htmlExtractor{kind: KindLocation}
	default:
		return &htmlExtractor{kind: KindEvent}
	}
}
