package publishers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samvad-hq/listing-feed-harvester/internal/logger"
)

// DefaultFileName is used when neither the config nor the document names the file.
const DefaultFileName = "feed.xml"

// FilePublisher writes the document into a directory, creating it when
// missing and replacing any previous file atomically.
type FilePublisher struct {
	id   string
	dir  string
	name string
	log  logger.Logger
}

// NewFilePublisher creates a file publisher. An empty name defers to the
// document name.
func NewFilePublisher(id, dir, name string, log logger.Logger) *FilePublisher {
	return &FilePublisher{
		id:   id,
		dir:  dir,
		name: strings.TrimSpace(name),
		log:  logger.Ensure(log),
	}
}

func newFilePublisherFromConfig(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.File == nil {
		return nil, fmt.Errorf("publisher %q missing file configuration", cfg.ID)
	}
	return NewFilePublisher(cfg.ID, cfg.File.Dir, cfg.File.Name, log), nil
}

func (p *FilePublisher) ID() string   { return p.id }
func (p *FilePublisher) Type() string { return TypeFile }

// Path returns the destination for doc.
func (p *FilePublisher) Path(doc Document) string {
	name := p.name
	if name == "" {
		name = doc.Name
	}
	if name == "" {
		name = DefaultFileName
	}
	return filepath.Join(p.dir, name)
}

// Publish writes doc.Payload to the destination path.
func (p *FilePublisher) Publish(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	dest := p.Path(doc)
	tmp, err := os.CreateTemp(p.dir, ".feed-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(doc.Payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close feed: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod feed: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("move feed into place: %w", err)
	}

	p.log.InfoObj("feed written", "publisher_file", map[string]any{
		"publisher_id": p.id,
		"path":         dest,
		"size_bytes":   len(doc.Payload),
		"items":        doc.ItemCount,
	})
	return nil
}
