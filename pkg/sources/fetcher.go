package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/listing-feed-harvester/pkg/browser"
	"github.com/samvad-hq/listing-feed-harvester/pkg/httpclient"
)

// ErrNavigation marks a source page that could not be loaded.
var ErrNavigation = errors.New("source navigation failed")

// Page is the rendered document of one source, ready for extraction.
type Page struct {
	SourceID string
	URL      string
	HTML     string
}

// Fetcher loads the page for a source.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, src Source) (Page, error)
}

// FetcherRegistry resolves the fetcher implementation for a given source.
type FetcherRegistry interface {
	FetcherFor(src Source) (Fetcher, error)
}

// Engine is the part of the rendering engine handle fetchers need.
type Engine interface {
	Acquire(ctx context.Context) (browser.Browser, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client

// fetcherRegistry implements FetcherRegistry keyed by source type.
type fetcherRegistry struct {
	mu             sync.RWMutex
	fetchersByType map[string]Fetcher
}

// NewTypeFetcherRegistry builds a registry from type-keyed fetchers.
func NewTypeFetcherRegistry(typeFetchers map[string]Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{fetchersByType: make(map[string]Fetcher, len(typeFetchers))}
	for typ, f := range typeFetchers {
		reg.register(typ, f)
	}
	return reg
}

func (r *fetcherRegistry) register(typ string, f Fetcher) {
	if f == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.fetchersByType[key] = f
	r.mu.Unlock()
}

// FetcherFor selects the fetcher for the given source based on its type.
func (r *fetcherRegistry) FetcherFor(src Source) (Fetcher, error) {
	if r == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}

	typ := strings.ToLower(strings.TrimSpace(src.Type))
	if typ == "" {
		typ = TypeBrowser
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.fetchersByType[typ]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for source %q (type %q)", src.ID, src.Type)
}

// DefaultHTTPClient returns a resty-backed client for plain http sources.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(30 * time.Second) }

// DefaultFetcherRegistry wires the browser and http fetchers. pageTimeout
// bounds each page load; zero disables the bound.
func DefaultFetcherRegistry(engine Engine, client HTTPClient, pageTimeout time.Duration) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return NewTypeFetcherRegistry(map[string]Fetcher{
		TypeBrowser: NewBrowserFetcher(engine, pageTimeout),
		TypeHTTP:    NewHTTPFetcher(client, pageTimeout),
	})
}

func navigationError(src Source, err error) error {
	return fmt.Errorf("%w: source %s (%s): %w", ErrNavigation, src.ID, src.URL, err)
}
