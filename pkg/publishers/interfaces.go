package publishers

import "context"

// Publisher delivers a rendered feed document to a sink (file, HTTP, queues).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, doc Document) error
}
