package crawler

import (
	"github.com/samvad-hq/listing-feed-harvester/internal/domain"
	"github.com/samvad-hq/listing-feed-harvester/pkg/sources"
)

// ExtractFunc turns a fetched page into entries.
type ExtractFunc func(page sources.Page, src sources.Source) ([]domain.RawEntry, error)
