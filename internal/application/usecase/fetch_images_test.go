package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/domain/valueobject"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

type mockObjectLister struct {
	objects []port.StoredObject
	err     error
	calls   int
}

func (m *mockObjectLister) ListObjects(_ context.Context) ([]port.StoredObject, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.objects, nil
}

type mockMetricsPublisher struct {
	points []port.Datapoint
	err    error
}

func (m *mockMetricsPublisher) PublishBatch(_ context.Context, points []port.Datapoint) error {
	m.points = append(m.points, points...)
	return m.err
}

func (m *mockMetricsPublisher) Flush(_ context.Context) error {
	return nil
}

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEventPublisher struct {
	events []publishedEvent
	err    error
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return m.err
}

func (m *mockEventPublisher) Close() error {
	return nil
}

type mockFetchRecorder struct {
	counts []int
	failed []bool
}

func (m *mockFetchRecorder) ObserveFetch(count int, failed bool) {
	m.counts = append(m.counts, count)
	m.failed = append(m.failed, failed)
}

func testLocation(t *testing.T) valueobject.BucketLocation {
	t.Helper()
	loc, err := valueobject.NewBucketLocation("my-bucket", "us-east-1")
	if err != nil {
		t.Fatalf("NewBucketLocation() error = %v", err)
	}
	return loc
}

func TestFetchImagesUseCase_Scenario(t *testing.T) {
	lister := &mockObjectLister{
		objects: []port.StoredObject{
			{Key: "a.png", LastModified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{Key: "b.png", LastModified: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	uc := NewFetchImagesUseCase(lister, testLocation(t), logger.New("error"))

	images := uc.FetchImages(context.Background())

	if lister.calls != 1 {
		t.Fatalf("expected exactly one listing call, got %d", lister.calls)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}

	if images[0].Key != "b.png" || images[0].URL != "https://my-bucket.s3.us-east-1.amazonaws.com/b.png" {
		t.Fatalf("unexpected first image: %+v", images[0])
	}
	if !images[0].LastModified.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first last_modified: %s", images[0].LastModified)
	}
	if images[1].Key != "a.png" || images[1].URL != "https://my-bucket.s3.us-east-1.amazonaws.com/a.png" {
		t.Fatalf("unexpected second image: %+v", images[1])
	}
}

func TestFetchImagesUseCase_OrderingAndURLs(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	objects := make([]port.StoredObject, 0, 50)
	for i := 0; i < 50; i++ {
		// deterministic shuffle of offsets, including duplicates
		offset := (i * 37) % 23
		objects = append(objects, port.StoredObject{
			Key:          fmt.Sprintf("charts/%02d.png", i),
			LastModified: base.Add(time.Duration(offset) * time.Hour),
		})
	}

	uc := NewFetchImagesUseCase(&mockObjectLister{objects: objects}, testLocation(t), logger.New("error"))
	images := uc.FetchImages(context.Background())

	if len(images) != len(objects) {
		t.Fatalf("expected %d images, got %d", len(objects), len(images))
	}

	for i := 1; i < len(images); i++ {
		if images[i-1].LastModified.Before(images[i].LastModified) {
			t.Fatalf("images not sorted desc at %d: %s before %s", i, images[i-1].LastModified, images[i].LastModified)
		}
	}

	for _, image := range images {
		want := "https://my-bucket.s3.us-east-1.amazonaws.com/" + image.Key
		if image.URL != want {
			t.Fatalf("unexpected url %s, want %s", image.URL, want)
		}
	}
}

func TestFetchImagesUseCase_EmptyBucket(t *testing.T) {
	uc := NewFetchImagesUseCase(&mockObjectLister{}, testLocation(t), logger.New("error"))

	images := uc.FetchImages(context.Background())
	if images == nil || len(images) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", images)
	}
}

func TestFetchImagesUseCase_ListingErrorReturnsEmpty(t *testing.T) {
	var buf bytes.Buffer
	lister := &mockObjectLister{err: errors.New("dial tcp: network is unreachable")}
	uc := NewFetchImagesUseCase(lister, testLocation(t), logger.NewWithWriter("error", &buf))

	images := uc.FetchImages(context.Background())

	if images == nil || len(images) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", images)
	}
	out := buf.String()
	if !strings.Contains(out, "[ERROR] Error fetching images from S3") {
		t.Fatalf("expected diagnostic to be logged, got %q", out)
	}
	if !strings.Contains(out, "network is unreachable") {
		t.Fatalf("expected cause in diagnostic, got %q", out)
	}
}

func TestFetchImagesUseCase_APIErrorCodeLogged(t *testing.T) {
	var buf bytes.Buffer
	lister := &mockObjectLister{err: &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"}}
	uc := NewFetchImagesUseCase(lister, testLocation(t), logger.NewWithWriter("error", &buf))

	if images := uc.FetchImages(context.Background()); len(images) != 0 {
		t.Fatalf("expected empty result, got %d", len(images))
	}
	if !strings.Contains(buf.String(), "error_code=NoSuchBucket") {
		t.Fatalf("expected error code in diagnostic, got %q", buf.String())
	}
}

func TestFetchImagesUseCase_FetchOutcome(t *testing.T) {
	lister := &mockObjectLister{err: errors.New("access denied")}
	uc := NewFetchImagesUseCase(lister, testLocation(t), logger.New("error"))

	outcome := uc.Fetch(context.Background())
	if !outcome.Failed() {
		t.Fatalf("expected failed outcome")
	}
	if len(outcome.Images) != 0 {
		t.Fatalf("failed outcome must not carry partial results")
	}
	if !strings.Contains(outcome.Err.Error(), "failed to list bucket objects") {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
}

func TestFetchImagesUseCase_NilLister(t *testing.T) {
	uc := NewFetchImagesUseCase(nil, testLocation(t), nil)

	if images := uc.FetchImages(context.Background()); len(images) != 0 {
		t.Fatalf("expected empty result, got %d", len(images))
	}
}

func TestFetchImagesUseCase_Observers(t *testing.T) {
	metrics := &mockMetricsPublisher{}
	events := &mockEventPublisher{}
	recorder := &mockFetchRecorder{}
	lister := &mockObjectLister{
		objects: []port.StoredObject{{Key: "a.png", LastModified: time.Now()}},
	}

	uc := NewFetchImagesUseCase(lister, testLocation(t), logger.New("error"),
		WithMetricsPublisher(metrics),
		WithEventPublisher(events),
		WithFetchRecorder(recorder),
	)

	uc.FetchImages(context.Background())

	lister.err = errors.New("boom")
	uc.FetchImages(context.Background())

	if len(recorder.counts) != 2 || recorder.counts[0] != 1 || recorder.failed[0] || !recorder.failed[1] {
		t.Fatalf("unexpected recorder observations: %v %v", recorder.counts, recorder.failed)
	}

	if len(metrics.points) != 4 {
		t.Fatalf("expected 4 datapoints, got %d", len(metrics.points))
	}
	if metrics.points[3].Name != "FetchFailures" || metrics.points[3].Value != 1 {
		t.Fatalf("expected failure datapoint, got %+v", metrics.points[3])
	}
	if metrics.points[0].Dimensions["Bucket"] != "my-bucket" {
		t.Fatalf("expected bucket dimension, got %v", metrics.points[0].Dimensions)
	}

	if len(events.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events.events))
	}
	first, ok := events.events[0].event.(ImagesListedEvent)
	if !ok || events.events[0].subject != port.SubjectImagesListed {
		t.Fatalf("unexpected event: %+v", events.events[0])
	}
	if first.Count != 1 || first.Failed || first.Bucket != "my-bucket" {
		t.Fatalf("unexpected event payload: %+v", first)
	}
}

func TestFetchImagesUseCase_ObserverErrorsDoNotChangeResult(t *testing.T) {
	lister := &mockObjectLister{
		objects: []port.StoredObject{{Key: "a.png", LastModified: time.Now()}},
	}
	uc := NewFetchImagesUseCase(lister, testLocation(t), logger.New("error"),
		WithMetricsPublisher(&mockMetricsPublisher{err: errors.New("cloudwatch down")}),
		WithEventPublisher(&mockEventPublisher{err: errors.New("nats down")}),
	)

	if images := uc.FetchImages(context.Background()); len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
}
