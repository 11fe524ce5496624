package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kidzout/crawler/app/sources"
)

const (
	maxElementsPerSelector = 20
	maxElementsTotal       = 30
)

// Generic selector ladders tried after the source's configured selector.
// Ordered roughly by how often German event/venue sites use each shape.
var eventSelectorLadder = []string{
	"div[class*='event']",
	"div[class*='veranstaltung']",
	"article[class*='event']",
	"article[class*='teaser']",
	"div[class*='teaser']",
	"div[class*='item']",
	"div[class*='card']",
	"li[class*='event']",
	".event-card",
	".list-item",
}

var locationSelectorLadder = []string{
	"div[class*='location']",
	"div[class*='place']",
	"article[class*='location']",
	"div[class*='item']",
	".location-card",
	".place-item",
}

// htmlExtractor is the lowest-confidence variant: structured markup is
// tried first, and the selector heuristics only run when the document
// carries no usable JSON-LD. That ordering is also the deduplication
// policy between the two origins.
type htmlExtractor struct {
	kind Kind
}

func (e *htmlExtractor) Extract(data []byte, src *sources.Source) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML document: %w", err)
	}

	if records := extractStructured(doc, e.kind); len(records) > 0 {
		for i := range records {
			records[i].SourceName = src.Name
			records[i].Categories = append(records[i].Categories, src.Categories...)
			if records[i].URL == "" {
				records[i].URL = src.URL
			}
		}
		return &Result{Records: records}, nil
	}

	return e.heuristic(doc, src)
}

func (e *htmlExtractor) heuristic(doc *goquery.Document, src *sources.Source) (*Result, error) {
	elements := e.collectElements(doc, src)

	result := &Result{}
	for _, elem := range elements {
		var record CandidateRecord
		var ok bool
		if e.kind == KindLocation {
			record, ok = e.locationFromElement(elem, src)
		} else {
			record, ok = e.eventFromElement(elem, src)
		}
		if !ok {
			result.Skipped++
			continue
		}

		record.Kind = e.kind
		record.Origin = OriginHTML
		record.SourceName = src.Name
		record.Categories = src.Categories
		record.ItemIndex = len(result.Records)
		result.Records = append(result.Records, record)
	}

	return result, nil
}

// collectElements walks the configured selector and the generic ladder,
// deduplicating repeated matches by leading text.
func (e *htmlExtractor) collectElements(doc *goquery.Document, src *sources.Source) []*goquery.Selection {
	ladder := eventSelectorLadder
	minTextLen := 20
	if e.kind == KindLocation {
		ladder = locationSelectorLadder
		minTextLen = 15
	}

	selectors := make([]string, 0, len(ladder)+1)
	if src.Selectors.Item != "" {
		selectors = append(selectors, src.Selectors.Item)
	}
	selectors = append(selectors, ladder...)

	var found []*goquery.Selection
	for _, selector := range selectors {
		matched := doc.Find(selector)
		matched.EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if i >= maxElementsPerSelector {
				return false
			}
			found = append(found, sel)
			return true
		})
		if len(found) >= maxElementsTotal {
			break
		}
	}

	seen := make(map[string]bool)
	var unique []*goquery.Selection
	for _, elem := range found {
		text := strings.TrimSpace(elem.Text())
		if len(text) < minTextLen {
			continue
		}
		key := text
		if len(key) > 100 {
			key = key[:100]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, elem)
		if len(unique) >= maxElementsTotal {
			break
		}
	}
	return unique
}

func (e *htmlExtractor) eventFromElement(elem *goquery.Selection, src *sources.Source) (CandidateRecord, bool) {
	title := e.pickTitle(elem, src.Selectors.Title)
	if len([]rune(title)) < 5 {
		return CandidateRecord{}, false
	}

	record := CandidateRecord{
		Title:       title,
		Description: pickText(elem, src.Selectors.Description, 500),
		URL:         pickLink(elem, src.URL),
	}

	if src.Selectors.Date != "" {
		if sel := elem.Find(src.Selectors.Date).First(); sel.Length() > 0 {
			record.DateText = strings.TrimSpace(sel.Text())
		}
	}
	if record.DateText == "" {
		record.DateText = FindDateText(elem.Text())
	}
	record.Start = ParseDateText(record.DateText)

	return record, true
}

func (e *htmlExtractor) locationFromElement(elem *goquery.Selection, src *sources.Source) (CandidateRecord, bool) {
	name := e.pickTitle(elem, src.Selectors.Name)
	if len([]rune(name)) < 3 {
		return CandidateRecord{}, false
	}

	record := CandidateRecord{
		Title:       name,
		Description: pickText(elem, src.Selectors.Description, 500),
		URL:         pickLink(elem, src.URL),
	}

	if src.Selectors.Address != "" {
		if sel := elem.Find(src.Selectors.Address).First(); sel.Length() > 0 {
			record.Address = strings.TrimSpace(sel.Text())
		}
	}

	return record, true
}

func (e *htmlExtractor) pickTitle(elem *goquery.Selection, selector string) string {
	if selector != "" {
		if sel := elem.Find(selector).First(); sel.Length() > 0 {
			return strings.TrimSpace(sel.Text())
		}
	}

	for _, tag := range []string{"h1", "h2", "h3", "h4"} {
		if heading := elem.Find(tag).First(); heading.Length() > 0 {
			return strings.TrimSpace(heading.Text())
		}
	}

	if link := elem.Find("a").First(); link.Length() > 0 {
		return strings.TrimSpace(link.Text())
	}
	return ""
}

func pickText(elem *goquery.Selection, selector string, limit int) string {
	if selector != "" {
		if sel := elem.Find(selector).First(); sel.Length() > 0 {
			return strings.TrimSpace(sel.Text())
		}
	}

	text := strings.Join(strings.Fields(elem.Text()), " ")
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}

func pickLink(elem *goquery.Selection, base string) string {
	href, ok := elem.Find("a[href]").First().Attr("href")
	if !ok {
		return base
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return base
	}
	resolved, err := baseURL.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	return resolved.String()
}
