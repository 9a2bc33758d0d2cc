package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samvad-hq/listing-feed-harvester/internal/config"
	"github.com/samvad-hq/listing-feed-harvester/internal/storage"
	"github.com/samvad-hq/listing-feed-harvester/pkg/publishers"
	"github.com/samvad-hq/listing-feed-harvester/pkg/sources"
)

type pageFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f *pageFetcher) ID() string { return "fake" }
func (f *pageFetcher) Fetch(_ context.Context, src sources.Source) (sources.Page, error) {
	if err := f.errs[src.ID]; err != nil {
		return sources.Page{}, err
	}
	return sources.Page{SourceID: src.ID, URL: src.URL, HTML: f.pages[src.ID]}, nil
}

type singleFetcherRegistry struct{ f sources.Fetcher }

func (r singleFetcherRegistry) FetcherFor(sources.Source) (sources.Fetcher, error) { return r.f, nil }

type countingEngine struct{ releases int }

func (e *countingEngine) Release() error {
	e.releases++
	return nil
}

type recordingPublisher struct {
	docs []publishers.Document
}

func (p *recordingPublisher) ID() string   { return "rec" }
func (p *recordingPublisher) Type() string { return "recording" }
func (p *recordingPublisher) Publish(_ context.Context, doc publishers.Document) error {
	p.docs = append(p.docs, doc)
	return nil
}

func entries(n int, prefix string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<div class="card"><h2>%s %d</h2><a href="https://%s.example/%d">x</a></div>`, prefix, i, prefix, i)
	}
	return "<html><body>" + b.String() + "</body></html>"
}

func testRegistry(t *testing.T) *sources.Registry {
	t.Helper()
	var list []sources.Source
	for _, id := range []string{"a", "b", "c"} {
		list = append(list, sources.Source{
			ID:            id,
			Title:         "Agent " + id,
			URL:           "https://" + id + ".example/aanbod",
			EntrySelector: ".card",
			TitleSelector: "h2",
			LinkSelector:  "a",
		})
	}
	reg, err := sources.NewRegistry(list)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		OutputDir:  dir,
		OutputFile: "feed.xml",
		FeedFormat: "atom",
		FeedTitle:  "Combined feed",
		FeedID:     "https://example.com",
	}
}

func newTestHarvester(t *testing.T, cfg *config.Config, fetcher sources.Fetcher, engine *countingEngine, extra ...publishers.Publisher) (*Harvester, storage.Store) {
	t.Helper()
	store, err := storage.NewStore("bbolt", filepath.Join(t.TempDir(), "runs.db"), storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	h, err := NewHarvesterWithDeps(cfg, Deps{
		Sources:    testRegistry(t),
		Fetchers:   singleFetcherRegistry{f: fetcher},
		Engine:     engine,
		Output:     publishers.NewFilePublisher(outputPublisherID, cfg.OutputDir, cfg.OutputFile, nil),
		Publishers: extra,
		Store:      store,
	}, nil)
	if err != nil {
		t.Fatalf("NewHarvesterWithDeps: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h, store
}

func TestHarvesterRunWritesCombinedFeed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	engine := &countingEngine{}
	notify := &recordingPublisher{}
	fetcher := &pageFetcher{pages: map[string]string{
		"a": entries(2, "a"),
		"b": entries(0, "b"),
		"c": entries(3, "c"),
	}}
	h, store := newTestHarvester(t, testConfig(dir), fetcher, engine, notify)

	rec, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Items != 5 || rec.Published != 2 {
		t.Fatalf("unexpected run record %#v", rec)
	}
	if engine.releases != 1 {
		t.Fatalf("engine should be released once, got %d", engine.releases)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "feed.xml"))
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if got := strings.Count(string(raw), "<entry>"); got != 5 {
		t.Fatalf("expected 5 entries in feed, got %d", got)
	}
	if strings.Index(string(raw), "a 0") > strings.Index(string(raw), "c 0") {
		t.Fatalf("entries must follow source declaration order")
	}

	if len(notify.docs) != 1 || notify.docs[0].ItemCount != 5 || notify.docs[0].Sources[1].Entries != 0 {
		t.Fatalf("unexpected notification %#v", notify.docs)
	}

	runs, _ := store.Runs(1)
	if len(runs) != 1 || !runs[0].Succeeded() || len(runs[0].Sources) != 3 {
		t.Fatalf("run not recorded: %#v", runs)
	}
}

func TestHarvesterRunWritesNothingWhenASourceFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	engine := &countingEngine{}
	notify := &recordingPublisher{}
	fetcher := &pageFetcher{
		pages: map[string]string{"a": entries(1, "a"), "c": entries(1, "c")},
		errs:  map[string]error{"b": fmt.Errorf("%w: status 503", sources.ErrNavigation)},
	}
	h, store := newTestHarvester(t, testConfig(dir), fetcher, engine, notify)

	_, err := h.Run(context.Background())
	if !errors.Is(err, sources.ErrNavigation) {
		t.Fatalf("expected navigation error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "feed.xml")); !os.IsNotExist(statErr) {
		t.Fatalf("no feed must be written on failure, stat err %v", statErr)
	}
	if len(notify.docs) != 0 {
		t.Fatalf("no notification must be sent on failure")
	}
	if engine.releases != 1 {
		t.Fatalf("engine should be released on failure too")
	}

	runs, _ := store.Runs(1)
	if len(runs) != 1 || runs[0].Succeeded() {
		t.Fatalf("failed run not recorded: %#v", runs)
	}
}

func TestHarvesterRunPartialPublishesSurvivors(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.AllowPartial = true
	fetcher := &pageFetcher{
		pages: map[string]string{"a": entries(1, "a"), "c": entries(2, "c")},
		errs:  map[string]error{"b": fmt.Errorf("%w: timeout", sources.ErrNavigation)},
	}
	h, _ := newTestHarvester(t, cfg, fetcher, &countingEngine{})

	rec, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Items != 3 || rec.Sources[1].Entries != -1 || rec.Sources[1].Error == "" {
		t.Fatalf("unexpected run record %#v", rec)
	}
}

func TestHarvesterRunOverwritesIntoExistingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "feed.xml"), []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	fetcher := &pageFetcher{pages: map[string]string{"a": entries(1, "a")}}
	h, _ := newTestHarvester(t, testConfig(dir), fetcher, &countingEngine{})

	if _, err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "feed.xml"))
	if !strings.Contains(string(raw), "<feed") {
		t.Fatalf("expected feed to replace previous content, got %q", raw)
	}
}

func TestHarvesterRunIsDeterministic(t *testing.T) {
	fetcher := &pageFetcher{pages: map[string]string{"a": entries(2, "a"), "c": entries(1, "c")}}

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		dir := t.TempDir()
		h, _ := newTestHarvester(t, testConfig(dir), fetcher, &countingEngine{})
		if _, err := h.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		raw, _ := os.ReadFile(filepath.Join(dir, "feed.xml"))
		outputs = append(outputs, raw)
	}
	if string(outputs[0]) != string(outputs[1]) {
		t.Fatalf("repeated runs over the same pages must produce identical feeds")
	}
}
