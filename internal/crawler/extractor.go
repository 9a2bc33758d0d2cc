package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/araddon/dateparse"

	"github.com/samvad-hq/listing-feed-harvester/internal/domain"
	"github.com/samvad-hq/listing-feed-harvester/pkg/sources"
)

// ErrExtraction marks a page whose entries could not be extracted.
var ErrExtraction = errors.New("entry extraction failed")

type selectorSet struct {
	entry cascadia.Selector
	title cascadia.Selector
	link  cascadia.Selector
	date  cascadia.Selector
}

func compileSelectors(src sources.Source) (selectorSet, error) {
	var set selectorSet
	var err error
	if set.entry, err = cascadia.Compile(src.EntrySelector); err != nil {
		return set, fmt.Errorf("entry selector %q: %w", src.EntrySelector, err)
	}
	if set.title, err = cascadia.Compile(src.TitleSelector); err != nil {
		return set, fmt.Errorf("title selector %q: %w", src.TitleSelector, err)
	}
	if set.link, err = cascadia.Compile(src.LinkSelector); err != nil {
		return set, fmt.Errorf("link selector %q: %w", src.LinkSelector, err)
	}
	if src.DateSelector != "" {
		if set.date, err = cascadia.Compile(src.DateSelector); err != nil {
			return set, fmt.Errorf("date selector %q: %w", src.DateSelector, err)
		}
	}
	return set, nil
}

// ExtractEntries finds every entry element of the page in document order and
// records its title, link, inner markup and, when configured, its date.
// Title and link lookups are scoped to the entry element.
func ExtractEntries(page sources.Page, src sources.Source) ([]domain.RawEntry, error) {
	sel, err := compileSelectors(src)
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %w", ErrExtraction, src.ID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: parse html: %w", ErrExtraction, src.ID, err)
	}

	var base *url.URL
	if src.AbsoluteLinks {
		base, _ = url.Parse(src.URL)
	}

	matches := doc.FindMatcher(sel.entry)
	entries := make([]domain.RawEntry, 0, matches.Length())
	var extractErr error
	matches.EachWithBreak(func(i int, s *goquery.Selection) bool {
		contents, err := s.Html()
		if err != nil {
			extractErr = fmt.Errorf("%w: source %s: entry %d contents: %w", ErrExtraction, src.ID, i, err)
			return false
		}

		entry := domain.RawEntry{Contents: contents}
		if t := s.FindMatcher(sel.title).First(); t.Length() > 0 {
			title := strings.Join(strings.Fields(t.Text()), " ")
			entry.Title = &title
		}
		if href, ok := s.FindMatcher(sel.link).First().Attr("href"); ok {
			link := resolveURL(strings.TrimSpace(href), base)
			entry.Link = &link
		}
		if sel.date != nil {
			entry.Published = entryDate(s.FindMatcher(sel.date).First())
		}
		entries = append(entries, entry)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return entries, nil
}

// entryDate prefers a machine-readable datetime attribute over the visible text.
func entryDate(s *goquery.Selection) *time.Time {
	if s.Length() == 0 {
		return nil
	}
	raw, ok := s.Attr("datetime")
	if !ok || strings.TrimSpace(raw) == "" {
		raw = s.Text()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}

func resolveURL(href string, base *url.URL) string {
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
