package crawler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/listing-feed-harvester/pkg/sources"
)

const listingPage = `<html><body>
<ul>
  <li class="aanbodEntry">
    <a class="aanbodEntryLink" href="/woning/1"><span class="addressInfo">
      Oudegracht 1
      3511 AA Utrecht
    </span></a>
    <time datetime="2024-03-05T10:00:00Z">5 maart</time>
    <p class="price">&euro; 350.000 k.k.</p>
  </li>
  <li class="aanbodEntry">
    <span class="addressInfo">Biltstraat 22</span>
  </li>
  <li class="aanbodEntry">
    <a class="aanbodEntryLink">no href here</a>
    <time>not a date</time>
  </li>
</ul>
<div class="addressInfo">Outside any entry</div>
<a class="aanbodEntryLink" href="/outside">outside</a>
</body></html>`

func testSource() sources.Source {
	return sources.Source{
		ID:            "thijssen",
		Title:         "Paul Thijssen makelaars - aanbod",
		URL:           "https://www.thijssenmakelaars.nl/aanbod/",
		EntrySelector: "li.aanbodEntry",
		TitleSelector: ".addressInfo",
		LinkSelector:  "a.aanbodEntryLink",
	}
}

func TestExtractEntriesKeepsDocumentOrderAndScopesSubQueries(t *testing.T) {
	entries, err := ExtractEntries(sources.Page{HTML: listingPage}, testSource())
	if err != nil {
		t.Fatalf("ExtractEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Title == nil || *first.Title != "Oudegracht 1 3511 AA Utrecht" {
		t.Fatalf("unexpected first title %v", first.Title)
	}
	if first.Link == nil || *first.Link != "/woning/1" {
		t.Fatalf("expected link to be kept verbatim, got %v", first.Link)
	}
	if !strings.Contains(first.Contents, `<p class="price">`) || strings.Contains(first.Contents, "<li") {
		t.Fatalf("contents should be the inner markup of the entry: %s", first.Contents)
	}
	if first.Published != nil {
		t.Fatalf("dates are only read when a date selector is configured")
	}

	second := entries[1]
	if second.Title == nil || *second.Title != "Biltstraat 22" {
		t.Fatalf("unexpected second title %v", second.Title)
	}
	if second.Link != nil {
		t.Fatalf("entry without link element must have no link, got %q", *second.Link)
	}

	third := entries[2]
	if third.Title != nil {
		t.Fatalf("entry without title element must have no title, got %q", *third.Title)
	}
	if third.Link != nil {
		t.Fatalf("link element without href must yield no link, got %q", *third.Link)
	}
}

func TestExtractEntriesNoMatches(t *testing.T) {
	src := testSource()
	src.EntrySelector = ".card-object"
	entries, err := ExtractEntries(sources.Page{HTML: listingPage}, src)
	if err != nil {
		t.Fatalf("ExtractEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestExtractEntriesResolvesLinksAndDatesWhenConfigured(t *testing.T) {
	src := testSource()
	src.AbsoluteLinks = true
	src.DateSelector = "time"

	entries, err := ExtractEntries(sources.Page{HTML: listingPage}, src)
	if err != nil {
		t.Fatalf("ExtractEntries: %v", err)
	}
	if got := *entries[0].Link; got != "https://www.thijssenmakelaars.nl/woning/1" {
		t.Fatalf("expected absolute link, got %q", got)
	}
	want := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	if entries[0].Published == nil || !entries[0].Published.Equal(want) {
		t.Fatalf("expected published %v, got %v", want, entries[0].Published)
	}
	if entries[1].Published != nil {
		t.Fatalf("entry without date element must have no date")
	}
	if entries[2].Published != nil {
		t.Fatalf("unparseable date must be dropped, got %v", entries[2].Published)
	}
}

func TestExtractEntriesRejectsMalformedSelector(t *testing.T) {
	src := testSource()
	src.LinkSelector = "a[href"
	_, err := ExtractEntries(sources.Page{HTML: listingPage}, src)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	src := testSource()
	src.AbsoluteLinks = true
	page := sources.Page{HTML: `<li class="aanbodEntry"><a class="aanbodEntryLink" href="https://other.example/x">x</a></li>`}
	entries, err := ExtractEntries(page, src)
	if err != nil {
		t.Fatalf("ExtractEntries: %v", err)
	}
	if *entries[0].Link != "https://other.example/x" {
		t.Fatalf("absolute link must be kept, got %q", *entries[0].Link)
	}
	if got := resolveURL("", nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestExtractEntriesAcceptsSelectorGroups(t *testing.T) {
	src := testSource()
	src.EntrySelector = "li.aanbodEntry, div.addressInfo"
	src.TitleSelector = "h3, .addressInfo"

	entries, err := ExtractEntries(sources.Page{HTML: listingPage}, src)
	if err != nil {
		t.Fatalf("ExtractEntries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries from the selector group, got %d", len(entries))
	}
	if entries[1].Title == nil || *entries[1].Title != "Biltstraat 22" {
		t.Fatalf("unexpected grouped title %v", entries[1].Title)
	}
	if !strings.Contains(entries[3].Contents, "Outside any entry") {
		t.Fatalf("entries must stay in document order, last was %q", entries[3].Contents)
	}
}
