package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/listing-feed-harvester/internal/logger"
	"github.com/samvad-hq/listing-feed-harvester/pkg/httpclient"
)

type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  httpclient.Client
	log     logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}
	timeout := cfg.HTTP.TimeoutSeconds
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds
	}

	return &httpPublisher{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyClient(time.Duration(timeout) * time.Second),
		log:     logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish uploads the rendered document as the request body.
func (h *httpPublisher) Publish(ctx context.Context, doc Document) error {
	headers := make(map[string]string, len(h.headers)+2)
	for k, v := range h.headers {
		headers[k] = v
	}
	if doc.ContentType != "" {
		headers["Content-Type"] = doc.ContentType
	}
	headers["X-Feed-SHA256"] = doc.Checksum()

	resp, err := h.client.Send(ctx, h.method, h.url, headers, doc.Payload)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("http response status %d: %s", code, readBodySnippet(resp.Body()))
	}

	h.log.DebugObj("http publisher uploaded feed", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"url":          h.url,
		"status":       resp.StatusCode(),
	})
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
