package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/listing-feed-harvester/internal/config"
	"github.com/samvad-hq/listing-feed-harvester/internal/crawler"
	"github.com/samvad-hq/listing-feed-harvester/internal/feed"
	"github.com/samvad-hq/listing-feed-harvester/internal/logger"
	"github.com/samvad-hq/listing-feed-harvester/internal/storage"
	"github.com/samvad-hq/listing-feed-harvester/pkg/browser"
	"github.com/samvad-hq/listing-feed-harvester/pkg/publishers"
	"github.com/samvad-hq/listing-feed-harvester/pkg/sources"
)

// outputPublisherID names the publisher writing the feed file.
const outputPublisherID = "output"

// Releaser shuts down a shared resource once a run is over.
type Releaser interface {
	Release() error
}

// Deps are the collaborators of a Harvester.
type Deps struct {
	Sources  *sources.Registry
	Fetchers sources.FetcherRegistry
	Engine   Releaser
	// Output receives the feed first; the rest are only called when it succeeds.
	Output     publishers.Publisher
	Publishers []publishers.Publisher
	Store      storage.Store
}

// Harvester runs the fetch, extract, aggregate, render and publish pipeline.
// The rendering engine is released at the end of Run, so a Harvester serves
// a single run.
type Harvester struct {
	cfg          *config.Config
	sourceReg    *sources.Registry
	engine       Releaser
	crawlService *crawler.Service
	serializer   *feed.Serializer
	output       publishers.Publisher
	fanout       *publishers.Fanout
	store        storage.Store
	log          logger.Logger
	now          func() time.Time
}

// NewHarvester builds a harvester runtime from config.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	srcs := sourceReg.All()
	sourceIDs := make([]string, 0, len(srcs))
	for _, s := range srcs {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	extra, err := buildPublishers(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RunTTL:          cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		publishers.NewFanout(extra).Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"run_ttl_seconds":          int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	engine := browser.NewEngine(ctx, browser.Options{
		Headless:  cfg.BrowserHeadless,
		ExecPath:  cfg.BrowserExecPath,
		NoSandbox: cfg.BrowserNoSandbox,
		UserAgent: cfg.BrowserUserAgent,
	}, log)

	return NewHarvesterWithDeps(cfg, Deps{
		Sources:    sourceReg,
		Fetchers:   sources.DefaultFetcherRegistry(engine, nil, cfg.PageTimeout),
		Engine:     engine,
		Output:     publishers.NewFilePublisher(outputPublisherID, cfg.OutputDir, cfg.OutputFile, log),
		Publishers: extra,
		Store:      store,
	}, log)
}

// NewHarvesterWithDeps builds a harvester around explicit collaborators.
func NewHarvesterWithDeps(cfg *config.Config, deps Deps, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if deps.Sources == nil || deps.Fetchers == nil {
		return nil, fmt.Errorf("sources and fetchers are required")
	}
	if deps.Output == nil {
		return nil, fmt.Errorf("output publisher is required")
	}
	log = logger.Ensure(log)

	serializer, err := feed.NewSerializer(feed.Options{Format: cfg.FeedFormat})
	if err != nil {
		return nil, err
	}
	store := deps.Store
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}

	return &Harvester{
		cfg:          cfg,
		sourceReg:    deps.Sources,
		engine:       deps.Engine,
		crawlService: crawler.NewService(deps.Fetchers, crawler.Options{AllowPartial: cfg.AllowPartial}, log),
		serializer:   serializer,
		output:       deps.Output,
		fanout:       publishers.NewFanout(deps.Publishers),
		store:        store,
		log:          log,
		now:          time.Now,
	}, nil
}

// buildPublishers instantiates the enabled entries of the publishers file.
func buildPublishers(ctx context.Context, cfg *config.Config, log logger.Logger) ([]publishers.Publisher, error) {
	if cfg.PublishersFile == "" {
		return nil, nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return pubs, nil
}

// Run executes one harvest. Nothing is published unless crawling and
// rendering succeeded. The engine is released before Run returns and the
// outcome is recorded in the run history either way.
func (h *Harvester) Run(ctx context.Context) (rec storage.RunRecord, err error) {
	if h == nil || h.crawlService == nil {
		return storage.RunRecord{}, fmt.Errorf("harvester is not initialized")
	}
	defer h.releaseEngine()

	rec.StartedAt = h.now().UTC()
	defer func() {
		rec.FinishedAt = h.now().UTC()
		if err != nil {
			rec.Error = err.Error()
		}
		h.recordRun(rec)
	}()

	srcs := h.sourceReg.All()
	h.log.InfoObj("harvest started", "harvest_meta", map[string]any{
		"sources_count":    len(srcs),
		"publishers_count": h.fanout.Size() + 1,
		"allow_partial":    h.cfg.AllowPartial,
	})

	results, err := h.crawlService.Run(ctx, srcs)
	rec.Sources = sourceStats(results)
	if err != nil {
		return rec, fmt.Errorf("crawl sources: %w", err)
	}

	agg := crawler.Aggregate(h.cfg.FeedTitle, h.cfg.FeedID, crawler.Feeds(results))
	rec.Items = len(agg.Entries)

	payload, err := h.serializer.Render(agg)
	if err != nil {
		return rec, err
	}

	doc := publishers.Document{
		Name:        h.cfg.OutputFile,
		Format:      h.serializer.Format(),
		ContentType: h.serializer.ContentType(),
		Payload:     payload,
		FeedTitle:   agg.Title,
		FeedID:      agg.URL,
		ItemCount:   len(agg.Entries),
		Sources:     crawler.Counts(results),
		GeneratedAt: rec.StartedAt,
	}

	if err := h.output.Publish(ctx, doc); err != nil {
		return rec, fmt.Errorf("%w: %s publisher[%s]: %w", publishers.ErrPublish, h.output.Type(), h.output.ID(), err)
	}
	rec.Published = 1

	n, err := h.fanout.Publish(ctx, doc)
	rec.Published += n
	if err != nil {
		return rec, err
	}

	h.log.InfoObj("harvest completed", "harvest_meta", map[string]any{
		"items":      rec.Items,
		"published":  rec.Published,
		"size_bytes": len(payload),
		"elapsed_ms": h.now().Sub(rec.StartedAt).Milliseconds(),
	})
	return rec, nil
}

// Close releases publishers and the run history store.
func (h *Harvester) Close() error {
	if h == nil {
		return nil
	}
	h.releaseEngine()
	var first error
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publisher close failed", "error", err.Error())
		first = err
	}
	if c, ok := h.output.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := h.store.Close(); err != nil {
		h.log.ErrorObj("storage close failed", "error", err.Error())
		if first == nil {
			first = err
		}
	}
	return first
}

func (h *Harvester) releaseEngine() {
	if h.engine == nil {
		return
	}
	if err := h.engine.Release(); err != nil {
		h.log.ErrorObj("engine release failed", "error", err.Error())
	}
}

func (h *Harvester) recordRun(rec storage.RunRecord) {
	if err := h.store.RecordRun(rec); err != nil {
		h.log.WarnObj("run history write failed", "error", err.Error())
	}
}

func sourceStats(results []crawler.SourceResult) []storage.SourceStat {
	out := make([]storage.SourceStat, 0, len(results))
	for _, res := range results {
		stat := storage.SourceStat{
			SourceID:  res.Source.ID,
			Entries:   len(res.Feed.Entries),
			ElapsedMS: res.Elapsed.Milliseconds(),
		}
		if res.Err != nil {
			stat.Entries = -1
			stat.Error = res.Err.Error()
		}
		out = append(out, stat)
	}
	return out
}
