package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/samvad-hq/listing-feed-harvester/internal/domain"
)

// Package feed renders the combined listing feed.

const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
	FormatJSON = "json"
)

// FixedItemDate is stamped on every item without a listing date so repeated
// runs over unchanged pages produce identical output.
var FixedItemDate = time.UnixMilli(2021).UTC()

// Options configures rendering.
type Options struct {
	Format    string
	Copyright string
}

// Serializer maps an aggregate feed to a syndication document.
type Serializer struct {
	format    string
	copyright string
}

// NewSerializer validates opts and builds a serializer. An empty format means Atom.
func NewSerializer(opts Options) (*Serializer, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatAtom
	}
	switch format {
	case FormatAtom, FormatRSS, FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported feed format %q", opts.Format)
	}
	return &Serializer{format: format, copyright: opts.Copyright}, nil
}

// Format returns the output format name.
func (s *Serializer) Format() string { return s.format }

// ContentType returns the media type of rendered documents.
func (s *Serializer) ContentType() string {
	switch s.format {
	case FormatRSS:
		return "application/rss+xml; charset=utf-8"
	case FormatJSON:
		return "application/feed+json; charset=utf-8"
	default:
		return "application/atom+xml; charset=utf-8"
	}
}

// Build creates one feed item per entry. Missing titles fall back to the
// entry's position in the aggregate, missing links to the aggregate url.
func (s *Serializer) Build(agg domain.AggregateFeed) *feeds.Feed {
	f := &feeds.Feed{
		Title:     agg.Title,
		Link:      &feeds.Link{Href: agg.URL},
		Id:        agg.URL,
		Copyright: s.copyright,
		Created:   FixedItemDate,
		Updated:   FixedItemDate,
		Items:     make([]*feeds.Item, 0, len(agg.Entries)),
	}

	for i, entry := range agg.Entries {
		title := strconv.Itoa(i)
		if entry.Title != nil {
			title = *entry.Title
		}
		link, id := agg.URL, agg.URL+"#"+strconv.Itoa(i)
		if entry.Link != nil {
			link = *entry.Link
			// An empty id would be replaced by a random urn:uuid.
			if link != "" {
				id = link
			}
		}
		date := FixedItemDate
		if entry.Published != nil {
			date = entry.Published.UTC()
		}

		f.Items = append(f.Items, &feeds.Item{
			Title:   title,
			Link:    &feeds.Link{Href: link},
			Id:      id,
			Content: entry.Contents,
			Created: date,
			Updated: date,
		})
	}
	return f
}

// Render builds the feed and serializes it in the configured format.
func (s *Serializer) Render(agg domain.AggregateFeed) ([]byte, error) {
	f := s.Build(agg)

	var (
		out string
		err error
	)
	switch s.format {
	case FormatRSS:
		out, err = f.ToRss()
	case FormatJSON:
		out, err = f.ToJSON()
	default:
		out, err = f.ToAtom()
	}
	if err != nil {
		return nil, fmt.Errorf("render %s feed: %w", s.format, err)
	}
	return []byte(out), nil
}
