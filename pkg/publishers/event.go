package publishers

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samvad-hq/listing-feed-harvester/internal/domain"
)

// Document is a rendered feed ready to be persisted.
type Document struct {
	Name        string
	Format      string
	ContentType string
	Payload     []byte
	FeedTitle   string
	FeedID      string
	ItemCount   int
	Sources     []domain.SourceCount
	GeneratedAt time.Time
}

// Checksum returns the hex sha256 of the payload.
func (d Document) Checksum() string {
	sum := sha256.Sum256(d.Payload)
	return hex.EncodeToString(sum[:])
}

// Event is the notification sent to queue and topic sinks after a feed was
// generated. It carries metadata only; the payload lives wherever the file
// or http publisher put it.
type Event struct {
	FeedID      string               `json:"feed_id"`
	FeedTitle   string               `json:"feed_title"`
	Name        string               `json:"name"`
	Format      string               `json:"format"`
	Location    string               `json:"location,omitempty"`
	ItemCount   int                  `json:"item_count"`
	SizeBytes   int                  `json:"size_bytes"`
	SHA256      string               `json:"sha256"`
	Sources     []domain.SourceCount `json:"sources"`
	GeneratedAt time.Time            `json:"generated_at"`
	PublishedAt time.Time            `json:"published_at"`
}

// NewEvent constructs an Event for the given document.
func NewEvent(doc Document, location string) Event {
	return Event{
		FeedID:      doc.FeedID,
		FeedTitle:   doc.FeedTitle,
		Name:        doc.Name,
		Format:      doc.Format,
		Location:    location,
		ItemCount:   doc.ItemCount,
		SizeBytes:   len(doc.Payload),
		SHA256:      doc.Checksum(),
		Sources:     doc.Sources,
		GeneratedAt: doc.GeneratedAt.UTC(),
		PublishedAt: time.Now().UTC(),
	}
}
