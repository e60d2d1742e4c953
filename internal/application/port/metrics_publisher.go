package port

import (
	"context"
	"time"
)

// Datapoint is a single numeric observation for an external metrics backend.
type Datapoint struct {
	Name       string
	Value      float64
	Unit       string
	Timestamp  time.Time
	Dimensions map[string]string
}

// MetricsPublisher defines the interface for publishing metrics to external observability platforms.
type MetricsPublisher interface {
	// PublishBatch buffers datapoints for publication.
	// Implementations handle batching constraints (e.g., CloudWatch's 1000 datapoints/request limit).
	PublishBatch(ctx context.Context, points []Datapoint) error

	// Flush forces immediate publication of any buffered datapoints.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}

// FetchRecorder observes the outcome of each bucket listing in-process.
type FetchRecorder interface {
	ObserveFetch(count int, failed bool)
}
