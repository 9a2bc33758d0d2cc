package publishers

import (
	"context"
	"errors"
	"fmt"
)

// ErrPublish marks a failure to deliver the feed to at least one sink.
var ErrPublish = errors.New("publish failed")

// Fanout dispatches the rendered document to all configured publishers.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a dispatcher that fans out documents across publishers.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp}
}

// Publish forwards the document to every registered publisher in order.
// It returns the number of publishers that handled it; any failure is
// reported wrapped in ErrPublish.
func (f *Fanout) Publish(ctx context.Context, doc Document) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, p := range f.publishers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
			continue
		}
		if err := p.Publish(ctx, doc); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
		} else {
			successful++
		}
	}
	if len(errs) > 0 {
		return successful, fmt.Errorf("%w: %w", ErrPublish, errors.Join(errs...))
	}
	return successful, nil
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers holding client connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.publishers)
}
