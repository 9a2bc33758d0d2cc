package crawler

import "github.com/samvad-hq/listing-feed-harvester/internal/domain"

// Aggregate concatenates the entries of feeds in the given order. Source
// identity is dropped; title and url of the result are supplied by the caller.
func Aggregate(title, url string, feeds []domain.SourceFeed) domain.AggregateFeed {
	total := 0
	for _, f := range feeds {
		total += len(f.Entries)
	}

	entries := make([]domain.RawEntry, 0, total)
	for _, f := range feeds {
		entries = append(entries, f.Entries...)
	}

	return domain.AggregateFeed{
		Title:   title,
		URL:     url,
		Entries: entries,
	}
}
