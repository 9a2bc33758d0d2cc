package sources

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/samvad-hq/listing-feed-harvester/internal/registryfile"
)

// Package sources contains scrape target configs (YAML/JSON) and page fetchers.

const (
	TypeBrowser = "browser"
	TypeHTTP    = "http"
)

// Source describes one listing page and the selectors used to pull entries out of it.
type Source struct {
	ID            string         `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	URL           string         `json:"url" yaml:"url"`
	Type          string         `json:"type" yaml:"type"`
	EntrySelector string         `json:"entry_selector" yaml:"entry_selector"`
	TitleSelector string         `json:"title_selector" yaml:"title_selector"`
	LinkSelector  string         `json:"link_selector" yaml:"link_selector"`
	DateSelector  string         `json:"date_selector,omitempty" yaml:"date_selector,omitempty"`
	WaitSelector  string         `json:"wait_selector,omitempty" yaml:"wait_selector,omitempty"`
	AbsoluteLinks bool           `json:"absolute_links,omitempty" yaml:"absolute_links,omitempty"`
	Config        map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry is an ordered, validated list of sources. Declaration order is
// the order entries appear in the combined feed.
type Registry struct {
	sources []Source
	idx     map[string]int
}

// NewRegistry validates the given sources and builds a registry from them.
func NewRegistry(list []Source) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("no sources configured")
	}

	reg := &Registry{
		sources: make([]Source, len(list)),
		idx:     make(map[string]int, len(list)),
	}
	for i := range list {
		src := sanitizeSource(list[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("source[%d]: %w", i, err)
		}
		if _, exists := reg.idx[src.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		reg.sources[i] = src
		reg.idx[src.ID] = i
	}
	return reg, nil
}

// LoadRegistry loads sources from a YAML or JSON file. An empty path yields
// the built-in source list.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return NewRegistry(Defaults())
	}

	var parsed registryFile
	if err := registryfile.Load(path, "sources", &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}
	return NewRegistry(parsed.Sources)
}

// All returns a copy of the sources in declaration order.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByID returns the source with the given id.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return Source{}, false
	}
	return r.sources[i], true
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Title = strings.TrimSpace(s.Title)
	s.URL = strings.TrimSpace(s.URL)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.EntrySelector = strings.TrimSpace(s.EntrySelector)
	s.TitleSelector = strings.TrimSpace(s.TitleSelector)
	s.LinkSelector = strings.TrimSpace(s.LinkSelector)
	s.DateSelector = strings.TrimSpace(s.DateSelector)
	s.WaitSelector = strings.TrimSpace(s.WaitSelector)

	if s.Type == "" {
		s.Type = TypeBrowser
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Title == "" {
		return fmt.Errorf("title is required for source %q", s.ID)
	}
	if s.URL == "" {
		return fmt.Errorf("url is required for source %q", s.ID)
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q for source %q must be an absolute http(s) url", s.URL, s.ID)
	}
	if s.Type != TypeBrowser && s.Type != TypeHTTP {
		return fmt.Errorf("unsupported type %q for source %q", s.Type, s.ID)
	}

	selectors := []struct {
		name     string
		value    string
		required bool
	}{
		{name: "entry_selector", value: s.EntrySelector, required: true},
		{name: "title_selector", value: s.TitleSelector, required: true},
		{name: "link_selector", value: s.LinkSelector, required: true},
		{name: "date_selector", value: s.DateSelector},
		{name: "wait_selector", value: s.WaitSelector},
	}
	for _, sel := range selectors {
		if sel.value == "" {
			if sel.required {
				return fmt.Errorf("%s is required for source %q", sel.name, s.ID)
			}
			continue
		}
		if _, err := cascadia.ParseGroup(sel.value); err != nil {
			return fmt.Errorf("invalid %s %q for source %q: %w", sel.name, sel.value, s.ID, err)
		}
	}
	return nil
}
