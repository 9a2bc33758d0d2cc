package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/listing-feed-harvester/pkg/browser"
)

// browserFetcher renders sources in the shared headless browser.
type browserFetcher struct {
	engine  Engine
	timeout time.Duration
}

// NewBrowserFetcher builds a fetcher that renders pages through engine.
func NewBrowserFetcher(engine Engine, timeout time.Duration) Fetcher {
	return &browserFetcher{engine: engine, timeout: timeout}
}

func (f *browserFetcher) ID() string { return TypeBrowser }

// Fetch acquires the shared engine, loads the page in its own browser
// context and returns the DOM after load. Engine start errors are returned
// as is so callers can tell them apart from navigation failures.
func (f *browserFetcher) Fetch(ctx context.Context, src Source) (Page, error) {
	if f.engine == nil {
		return Page{}, fmt.Errorf("browser fetcher has no engine")
	}

	b, err := f.engine.Acquire(ctx)
	if err != nil {
		return Page{}, err
	}

	html, err := b.Render(ctx, browser.RenderRequest{
		URL:          src.URL,
		WaitSelector: src.WaitSelector,
		Timeout:      f.timeout,
	})
	if err != nil {
		return Page{}, navigationError(src, err)
	}

	return Page{SourceID: src.ID, URL: src.URL, HTML: html}, nil
}
