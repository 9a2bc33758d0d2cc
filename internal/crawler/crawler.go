package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/listing-feed-harvester/internal/domain"
	"github.com/samvad-hq/listing-feed-harvester/internal/logger"
	"github.com/samvad-hq/listing-feed-harvester/pkg/browser"
	"github.com/samvad-hq/listing-feed-harvester/pkg/sources"
)

// Options controls how source failures affect a crawl.
type Options struct {
	// AllowPartial keeps the entries of sources that succeeded when others
	// fail. Engine start failures stay fatal regardless.
	AllowPartial bool
}

// SourceResult is the outcome of crawling one source.
type SourceResult struct {
	Source  sources.Source
	Feed    domain.SourceFeed
	Err     error
	Elapsed time.Duration
}

// Service coordinates crawling across multiple sources.
type Service struct {
	registry sources.FetcherRegistry
	extract  ExtractFunc
	opts     Options
	log      logger.Logger
}

// NewService wires a crawler with the source fetcher registry.
func NewService(reg sources.FetcherRegistry, opts Options, log logger.Logger) *Service {
	return &Service{
		registry: reg,
		extract:  ExtractEntries,
		opts:     opts,
		log:      logger.Ensure(log),
	}
}

// Run crawls all sources concurrently. Results are returned in declaration
// order whatever the completion order. Without AllowPartial the first
// failure cancels the remaining sources and is returned.
func (s *Service) Run(ctx context.Context, srcs []sources.Source) ([]SourceResult, error) {
	if s == nil || s.registry == nil {
		return nil, fmt.Errorf("crawler service is not initialized")
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no sources configured for crawling")
	}

	results := make([]SourceResult, len(srcs))
	if s.opts.AllowPartial {
		return results, s.runPartial(ctx, srcs, results)
	}
	return results, s.runStrict(ctx, srcs, results)
}

func (s *Service) runStrict(ctx context.Context, srcs []sources.Source, results []SourceResult) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		g.Go(func() error {
			results[i] = s.runSource(gctx, src)
			return results[i].Err
		})
	}
	return g.Wait()
}

func (s *Service) runPartial(ctx context.Context, srcs []sources.Source, results []SourceResult) error {
	var g errgroup.Group
	for i, src := range srcs {
		g.Go(func() error {
			results[i] = s.runSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err == nil {
			continue
		}
		if errors.Is(res.Err, browser.ErrEngineStart) {
			return res.Err
		}
		errs = append(errs, res.Err)
	}
	if len(errs) == len(results) {
		return fmt.Errorf("all sources failed: %w", errors.Join(errs...))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return nil
}

func (s *Service) runSource(ctx context.Context, src sources.Source) SourceResult {
	start := time.Now()
	res := SourceResult{Source: src}

	entries, err := s.fetchAndExtract(ctx, src)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = err
		s.log.ErrorObj("source crawl failed", "source_error", map[string]any{
			"source_id":  src.ID,
			"url":        src.URL,
			"error":      err.Error(),
			"elapsed_ms": res.Elapsed.Milliseconds(),
		})
		return res
	}

	res.Feed = domain.SourceFeed{
		SourceID: src.ID,
		Title:    src.Title,
		URL:      src.URL,
		Entries:  entries,
	}
	s.log.InfoObj("source crawl completed", "source_result", map[string]any{
		"source_id":  src.ID,
		"entries":    len(entries),
		"elapsed_ms": res.Elapsed.Milliseconds(),
	})
	return res
}

func (s *Service) fetchAndExtract(ctx context.Context, src sources.Source) ([]domain.RawEntry, error) {
	fetcher, err := s.registry.FetcherFor(src)
	if err != nil {
		return nil, fmt.Errorf("resolve fetcher for source %s: %w", src.ID, err)
	}

	page, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch source %s: %w", src.ID, err)
	}

	return s.extract(page, src)
}

// Feeds returns the feeds of successful results, keeping their order.
func Feeds(results []SourceResult) []domain.SourceFeed {
	out := make([]domain.SourceFeed, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		out = append(out, res.Feed)
	}
	return out
}

// Counts reports the entry count per source, -1 for failed sources.
func Counts(results []SourceResult) []domain.SourceCount {
	out := make([]domain.SourceCount, 0, len(results))
	for _, res := range results {
		n := len(res.Feed.Entries)
		if res.Err != nil {
			n = -1
		}
		out = append(out, domain.SourceCount{SourceID: res.Source.ID, Entries: n})
	}
	return out
}
