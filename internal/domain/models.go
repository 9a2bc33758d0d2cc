package domain

import "time"

// Domain contains core models shared by the crawler, serializer and publishers.

// RawEntry is one listing element as found on a source page. Nil fields mean
// the corresponding element was not present; fallbacks are applied at
// serialization time only.
type RawEntry struct {
	Title     *string
	Link      *string
	Contents  string
	Published *time.Time
}

// SourceFeed holds the entries extracted from one source, in document order.
type SourceFeed struct {
	SourceID string
	Title    string
	URL      string
	Entries  []RawEntry
}

// AggregateFeed is the combined feed across all sources.
type AggregateFeed struct {
	Title   string
	URL     string
	Entries []RawEntry
}

// SourceCount reports how many entries one source contributed.
type SourceCount struct {
	SourceID string `json:"source_id"`
	Entries  int    `json:"entries"`
}
