package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/smithy-go"
	"github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/domain/entity"
	"github.com/dreschagin/image-gallery/internal/domain/valueobject"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

// FetchOutcome - явный результат одного листинга.
// Err != nil означает ошибку, Images при этом пуст.
type FetchOutcome struct {
	Images []entity.ImageDescriptor
	Err    error
}

func (o FetchOutcome) Failed() bool {
	return o.Err != nil
}

// ImagesListedEvent публикуется после каждой попытки листинга.
type ImagesListedEvent struct {
	Bucket   string    `json:"bucket"`
	Region   string    `json:"region"`
	Count    int       `json:"count"`
	Failed   bool      `json:"failed"`
	ListedAt time.Time `json:"listed_at"`
}

type FetchImagesUseCase struct {
	lister   port.ObjectLister
	location valueobject.BucketLocation
	logger   *logger.Logger

	metricsPublisher port.MetricsPublisher
	eventPublisher   port.EventPublisher
	recorder         port.FetchRecorder
}

// FetchImagesOption подключает необязательных наблюдателей.
type FetchImagesOption func(*FetchImagesUseCase)

func WithMetricsPublisher(p port.MetricsPublisher) FetchImagesOption {
	return func(uc *FetchImagesUseCase) { uc.metricsPublisher = p }
}

func WithEventPublisher(p port.EventPublisher) FetchImagesOption {
	return func(uc *FetchImagesUseCase) { uc.eventPublisher = p }
}

func WithFetchRecorder(r port.FetchRecorder) FetchImagesOption {
	return func(uc *FetchImagesUseCase) { uc.recorder = r }
}

func NewFetchImagesUseCase(
	lister port.ObjectLister,
	location valueobject.BucketLocation,
	log *logger.Logger,
	opts ...FetchImagesOption,
) *FetchImagesUseCase {
	uc := &FetchImagesUseCase{
		lister:   lister,
		location: location,
		logger:   log,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// FetchImages выполняет один листинг бакета и возвращает объекты, новые первыми.
// Любая ошибка логируется, результатом будет пустой срез.
func (uc *FetchImagesUseCase) FetchImages(ctx context.Context) []entity.ImageDescriptor {
	outcome := uc.Fetch(ctx)
	if outcome.Failed() {
		uc.logFailure(outcome.Err)
		return []entity.ImageDescriptor{}
	}
	return outcome.Images
}

// Fetch выполняет листинг и явно возвращает ошибку.
func (uc *FetchImagesUseCase) Fetch(ctx context.Context) FetchOutcome {
	outcome := uc.fetch(ctx)
	uc.observe(ctx, outcome)
	return outcome
}

func (uc *FetchImagesUseCase) fetch(ctx context.Context) FetchOutcome {
	if uc.lister == nil {
		return FetchOutcome{Err: fmt.Errorf("object lister is not configured")}
	}

	objects, err := uc.lister.ListObjects(ctx)
	if err != nil {
		return FetchOutcome{Err: fmt.Errorf("failed to list bucket objects: %w", err)}
	}

	images := make([]entity.ImageDescriptor, 0, len(objects))
	for _, object := range objects {
		images = append(images, entity.ImageDescriptor{
			URL:          uc.location.ObjectURL(object.Key),
			Key:          object.Key,
			LastModified: object.LastModified.UTC(),
		})
	}

	entity.SortByRecency(images)

	return FetchOutcome{Images: images}
}

func (uc *FetchImagesUseCase) logFailure(err error) {
	if uc.logger == nil {
		return
	}

	args := []interface{}{
		"bucket", uc.location.Bucket(),
		"region", uc.location.Region(),
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		args = append(args, "error_code", apiErr.ErrorCode())
	}

	uc.logger.Error("Error fetching images from S3", err, args...)
}

func (uc *FetchImagesUseCase) observe(ctx context.Context, outcome FetchOutcome) {
	count := len(outcome.Images)
	failed := outcome.Failed()

	if uc.recorder != nil {
		uc.recorder.ObserveFetch(count, failed)
	}

	now := time.Now().UTC()

	if uc.metricsPublisher != nil {
		dimensions := map[string]string{"Bucket": uc.location.Bucket()}
		failures := 0.0
		if failed {
			failures = 1
		}
		points := []port.Datapoint{
			{Name: "ImagesListed", Value: float64(count), Unit: "count", Timestamp: now, Dimensions: dimensions},
			{Name: "FetchFailures", Value: failures, Unit: "count", Timestamp: now, Dimensions: dimensions},
		}
		if err := uc.metricsPublisher.PublishBatch(ctx, points); err != nil {
			uc.warn("Failed to publish fetch metrics", err)
		}
	}

	if uc.eventPublisher != nil {
		event := ImagesListedEvent{
			Bucket:   uc.location.Bucket(),
			Region:   uc.location.Region(),
			Count:    count,
			Failed:   failed,
			ListedAt: now,
		}
		if err := uc.eventPublisher.PublishEvent(ctx, port.SubjectImagesListed, event); err != nil {
			uc.warn("Failed to publish images listed event", err)
		}
	}
}

func (uc *FetchImagesUseCase) warn(msg string, err error) {
	if uc.logger == nil {
		return
	}
	uc.logger.Warn(msg, "error", strings.TrimSpace(err.Error()))
}
