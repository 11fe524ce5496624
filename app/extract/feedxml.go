package extract

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/kidzout/crawler/app/sources"
)

// feedExtractor maps RSS 2.0 <item> and Atom <entry> elements to
// candidate records. The document is cut into one raw segment per
// item and each segment is decoded in isolation, so one mangled item
// is skipped and counted without swallowing its siblings.
type feedExtractor struct {
	origin Origin
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	ID        string     `xml:"id"`
}

func (e *feedExtractor) Extract(data []byte, src *sources.Source) (*Result, error) {
	itemTag := "item"
	if e.origin == OriginAtom {
		itemTag = "entry"
	}

	segments, broken := splitSegments(data, itemTag)
	if len(segments) == 0 && broken == 0 {
		if err := scanDocument(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s document: %w", e.origin, err)
		}
		return &Result{}, nil
	}

	result := &Result{Skipped: broken}
	for _, seg := range segments {
		var record CandidateRecord
		var decodeErr error
		if e.origin == OriginAtom {
			var entry atomEntry
			if decodeErr = decodeSegment(seg, &entry); decodeErr == nil {
				record = e.fromAtomEntry(entry)
			}
		} else {
			var item rssItem
			if decodeErr = decodeSegment(seg, &item); decodeErr == nil {
				record = e.fromRSSItem(item)
			}
		}

		if decodeErr != nil || strings.TrimSpace(record.Title) == "" {
			result.Skipped++
			continue
		}

		record.Kind = KindEvent
		record.Origin = e.origin
		record.SourceName = src.Name
		record.Categories = append(record.Categories, src.Categories...)
		record.ItemIndex = len(result.Records)
		result.Records = append(result.Records, record)
	}

	return result, nil
}

// splitSegments cuts the raw document into one byte slice per item
// element. An item whose closing tag never appears before the next
// item start, or before the end of the document, is counted as broken
// and the scan resumes at the next start.
func splitSegments(data []byte, tag string) (segments [][]byte, broken int) {
	openTok := []byte("<" + tag)
	closeTok := []byte("</" + tag)

	pos := 0
	for {
		start := indexTagToken(data, openTok, pos)
		if start < 0 {
			return segments, broken
		}
		next := indexTagToken(data, openTok, start+len(openTok))

		end := indexTagToken(data, closeTok, start)
		if end >= 0 {
			gt := bytes.IndexByte(data[end:], '>')
			if gt < 0 {
				end = -1
			} else {
				end += gt + 1
			}
		}

		if end < 0 || (next >= 0 && next < end) {
			// Unclosed item. The close we found, if any, belongs to a
			// later sibling.
			broken++
			if next < 0 {
				return segments, broken
			}
			pos = next
			continue
		}

		segments = append(segments, data[start:end])
		pos = end
	}
}

// indexTagToken finds the next occurrence of token that starts a real
// element tag, not a prefix of a longer element name.
func indexTagToken(data, token []byte, from int) int {
	for from < len(data) {
		i := bytes.Index(data[from:], token)
		if i < 0 {
			return -1
		}
		i += from
		rest := i + len(token)
		if rest >= len(data) {
			return -1
		}
		switch data[rest] {
		case '>', '/', ' ', '\t', '\r', '\n':
			return i
		}
		from = rest
	}
	return -1
}

// decodeSegment parses a single item with strict markup rules, so a
// mismatched end tag fails that item instead of being implicitly
// closed into a truncated record. Common HTML entities still resolve.
func decodeSegment(seg []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(seg))
	dec.Entity = xml.HTMLEntity
	return dec.Decode(v)
}

// scanDocument distinguishes an empty feed from unparsable markup.
func scanDocument(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (e *feedExtractor) fromRSSItem(item rssItem) CandidateRecord {
	record := CandidateRecord{
		Title:       strings.TrimSpace(item.Title),
		Description: strings.TrimSpace(item.Description),
		URL:         strings.TrimSpace(cmp.Or(item.Link, item.GUID)),
		DateText:    strings.TrimSpace(item.PubDate),
		Categories:  item.Categories,
	}
	record.Start = ParseDateText(record.DateText)
	return record
}

func (e *feedExtractor) fromAtomEntry(entry atomEntry) CandidateRecord {
	record := CandidateRecord{
		Title:       strings.TrimSpace(entry.Title),
		Description: strings.TrimSpace(cmp.Or(entry.Summary, entry.Content)),
		URL:         pickAtomLink(entry.Links),
		DateText:    strings.TrimSpace(cmp.Or(entry.Published, entry.Updated)),
	}
	record.Start = ParseDateText(record.DateText)
	return record
}

func pickAtomLink(links []atomLink) string {
	for _, link := range links {
		if link.Rel == "alternate" || link.Rel == "" {
			return strings.TrimSpace(link.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}
