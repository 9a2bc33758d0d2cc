package feed

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/listing-feed-harvester/internal/domain"
)

type atomDoc struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	ID      string `xml:"id"`
	Updated string `xml:"updated"`
	Link    struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Content string `xml:"content"`
}

func strPtr(s string) *string { return &s }

func sampleAggregate() domain.AggregateFeed {
	return domain.AggregateFeed{
		Title: "Combined feed",
		URL:   "https://example.com",
		Entries: []domain.RawEntry{
			{Title: strPtr("Oudegracht 1"), Link: strPtr("https://a.example/1"), Contents: `<span class="price">&euro; 1</span>`},
			{Link: strPtr("https://a.example/2"), Contents: "<b>no title</b>"},
			{Title: strPtr("Biltstraat 22"), Contents: "no link"},
		},
	}
}

func parseAtom(t *testing.T, raw []byte) atomDoc {
	t.Helper()
	var doc atomDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("output is not well-formed atom: %v\n%s", err, raw)
	}
	return doc
}

func TestRenderAtomAppliesFallbacks(t *testing.T) {
	s, err := NewSerializer(Options{})
	if err != nil {
		t.Fatalf("NewSerializer: %v", err)
	}
	raw, err := s.Render(sampleAggregate())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("<?xml")) {
		t.Fatalf("expected xml declaration, got %q", raw[:20])
	}

	doc := parseAtom(t, raw)
	if doc.Title != "Combined feed" || doc.ID != "https://example.com" {
		t.Fatalf("unexpected feed identity %q %q", doc.Title, doc.ID)
	}
	if len(doc.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(doc.Entries))
	}
	if doc.Entries[1].Title != "1" {
		t.Fatalf("missing title must fall back to aggregate index, got %q", doc.Entries[1].Title)
	}
	if doc.Entries[2].Link.Href != "https://example.com" {
		t.Fatalf("missing link must fall back to aggregate url, got %q", doc.Entries[2].Link.Href)
	}
	if doc.Entries[2].ID == doc.Entries[1].ID {
		t.Fatalf("entries must have distinct ids")
	}
	if doc.Entries[0].Content != `<span class="price">&euro; 1</span>` {
		t.Fatalf("contents must be carried verbatim, got %q", doc.Entries[0].Content)
	}
	for i, e := range doc.Entries {
		if e.Updated != "1970-01-01T00:00:02Z" {
			t.Fatalf("entry %d: expected fixed date, got %q", i, e.Updated)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	s, _ := NewSerializer(Options{Format: FormatAtom})
	first, err := s.Render(sampleAggregate())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := s.Render(sampleAggregate())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("renders differ:\n%s\n---\n%s", first, second)
	}
}

func TestBuildUsesListingDateWhenPresent(t *testing.T) {
	published := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	agg := domain.AggregateFeed{Title: "t", URL: "https://example.com", Entries: []domain.RawEntry{{Published: &published}}}

	s, _ := NewSerializer(Options{})
	f := s.Build(agg)
	if !f.Items[0].Created.Equal(published) || f.Items[0].Created.Location() != time.UTC {
		t.Fatalf("expected listing date in UTC, got %v", f.Items[0].Created)
	}
}

func TestFallbackTitleUsesAggregatePosition(t *testing.T) {
	agg := domain.AggregateFeed{URL: "https://example.com"}
	for i := 0; i < 4; i++ {
		agg.Entries = append(agg.Entries, domain.RawEntry{Contents: "x"})
	}
	s, _ := NewSerializer(Options{})
	f := s.Build(agg)
	for i, item := range f.Items {
		if item.Title != string(rune('0'+i)) {
			t.Fatalf("item %d: unexpected title %q", i, item.Title)
		}
	}
}

func TestRenderRSSAndJSON(t *testing.T) {
	rss, _ := NewSerializer(Options{Format: "RSS"})
	raw, err := rss.Render(sampleAggregate())
	if err != nil {
		t.Fatalf("Render rss: %v", err)
	}
	if !strings.Contains(string(raw), "<rss") || strings.Count(string(raw), "<item>") != 3 {
		t.Fatalf("unexpected rss output %s", raw)
	}
	if rss.ContentType() != "application/rss+xml; charset=utf-8" {
		t.Fatalf("unexpected rss content type %q", rss.ContentType())
	}

	js, _ := NewSerializer(Options{Format: FormatJSON})
	raw, err = js.Render(sampleAggregate())
	if err != nil {
		t.Fatalf("Render json: %v", err)
	}
	var doc struct {
		Items []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode json feed: %v", err)
	}
	if len(doc.Items) != 3 || doc.Items[1].Title != "1" || doc.Items[2].URL != "https://example.com" {
		t.Fatalf("unexpected json items %#v", doc.Items)
	}
}

func TestNewSerializerRejectsUnknownFormat(t *testing.T) {
	if _, err := NewSerializer(Options{Format: "html"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestRenderEmptyLinkKeepsStableID(t *testing.T) {
	agg := domain.AggregateFeed{
		Title:   "Combined feed",
		URL:     "https://example.com",
		Entries: []domain.RawEntry{{Title: strPtr("Lange Nieuwstraat 4"), Link: strPtr("")}},
	}
	s, _ := NewSerializer(Options{})

	first, err := s.Render(agg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := s.Render(agg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("empty link must not make output vary:\n%s\n---\n%s", first, second)
	}

	doc := parseAtom(t, first)
	if got := doc.Entries[0].ID; got != "https://example.com#0" {
		t.Fatalf("expected positional id, got %q", got)
	}
	if strings.Contains(string(first), "urn:uuid:") {
		t.Fatalf("generated ids must not appear in output")
	}
}
