package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage keeps a local history of harvest runs.

// SourceStat is the outcome of one source within a run. Entries is -1 when
// the source failed.
type SourceStat struct {
	SourceID  string `json:"source_id"`
	Entries   int    `json:"entries"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// RunRecord summarizes one harvest run.
type RunRecord struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Sources    []SourceStat `json:"sources"`
	Items      int          `json:"items"`
	Published  int          `json:"published"`
	Error      string       `json:"error,omitempty"`
}

// Succeeded reports whether the run completed without error.
func (r RunRecord) Succeeded() bool { return r.Error == "" }

// Store persists run records.
type Store interface {
	Close() error
	RecordRun(rec RunRecord) error
	// Runs returns up to limit records, newest first. limit <= 0 means all.
	Runs(limit int) ([]RunRecord, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RunTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRunTTL          = 30 * 24 * time.Hour
	defaultCleanupInterval = 24 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RunTTL <= 0 {
		opts.RunTTL = defaultRunTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                  { return nil }
func (noopStore) RecordRun(RunRecord) error     { return nil }
func (noopStore) Runs(int) ([]RunRecord, error) { return nil, nil }
