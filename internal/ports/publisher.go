package ports

import (
	"context"
	"edsync/internal/types"
)

// Publisher delivers change events to observers. Delivery may be asynchronous.
type Publisher interface {
	Publish(ctx context.Context, evt types.ChangeEvent) error
}

// RawPublisher forwards encoded payloads to an external topic.
type RawPublisher interface {
	PublishRaw(ctx context.Context, arn string, payload []byte) error
}
