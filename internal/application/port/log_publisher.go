package port

import (
	"context"

	"github.com/dreschagin/image-gallery/pkg/logger"
)

// LogPublisher defines the interface for publishing logs to external observability platforms.
type LogPublisher interface {
	// Publish sends a single log entry to the external system.
	Publish(ctx context.Context, entry logger.Entry) error

	// PublishBatch sends multiple log entries in a single operation.
	// Implementations should handle batching constraints (e.g., CloudWatch's 10,000 events/request limit).
	PublishBatch(ctx context.Context, entries []logger.Entry) error

	// Flush forces immediate publication of any buffered log entries.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
