package sources

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// httpFetcher loads server-rendered sources without a browser.
type httpFetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// NewHTTPFetcher builds a fetcher for sources of type "http".
func NewHTTPFetcher(client HTTPClient, timeout time.Duration) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &httpFetcher{client: client, timeout: timeout}
}

func (f *httpFetcher) ID() string { return TypeHTTP }

func (f *httpFetcher) Fetch(ctx context.Context, src Source) (Page, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.client.Get(ctx, src.URL, Headers(src))
	if err != nil {
		return Page{}, navigationError(src, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return Page{}, navigationError(src, fmt.Errorf("status %d body: %s", code, responseSnippet(resp.Body())))
	}

	return Page{SourceID: src.ID, URL: src.URL, HTML: string(resp.Body())}, nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
