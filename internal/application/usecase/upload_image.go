package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/domain/valueobject"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

var (
	ErrInvalidUpload         = errors.New("invalid upload")
	ErrUploaderNotConfigured = errors.New("image uploader is not configured")

	imageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	pngSignature   = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
)

type UploadImageCommand struct {
	Name        string
	ContentType string
	Data        []byte
	CapturedAt  time.Time
}

type UploadImageResult struct {
	Key string
	URL string
}

// ImageUploadedEvent публикуется после успешной загрузки.
type ImageUploadedEvent struct {
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	SizeBytes  int       `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type UploadImageConfig struct {
	KeyPrefix   string
	DefaultName string
}

type UploadImageUseCase struct {
	uploader       port.ObjectUploader
	location       valueobject.BucketLocation
	eventPublisher port.EventPublisher
	config         UploadImageConfig
	logger         *logger.Logger
}

func NewUploadImageUseCase(
	uploader port.ObjectUploader,
	location valueobject.BucketLocation,
	eventPublisher port.EventPublisher,
	config UploadImageConfig,
	log *logger.Logger,
) *UploadImageUseCase {
	if strings.Trim(config.KeyPrefix, "/") == "" {
		config.KeyPrefix = "images"
	}
	if strings.TrimSpace(config.DefaultName) == "" {
		config.DefaultName = "stock_prices"
	}
	return &UploadImageUseCase{
		uploader:       uploader,
		location:       location,
		eventPublisher: eventPublisher,
		config:         config,
		logger:         log,
	}
}

// Execute проверяет PNG, строит ключ {prefix}/{name}_{YYYY-MM-DD}.png и записывает объект.
// Ошибки валидации оборачивают ErrInvalidUpload.
func (uc *UploadImageUseCase) Execute(ctx context.Context, cmd UploadImageCommand) (*UploadImageResult, error) {
	if uc.uploader == nil {
		return nil, ErrUploaderNotConfigured
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = uc.config.DefaultName
	}
	if !imageNameRegex.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid name", ErrInvalidUpload)
	}
	if cmd.ContentType != "image/png" {
		return nil, fmt.Errorf("%w: unsupported content_type %q", ErrInvalidUpload, cmd.ContentType)
	}
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidUpload)
	}
	if len(cmd.Data) < len(pngSignature) || !bytes.Equal(cmd.Data[:len(pngSignature)], pngSignature) {
		return nil, fmt.Errorf("%w: invalid png signature", ErrInvalidUpload)
	}

	capturedAt := cmd.CapturedAt.UTC()
	if cmd.CapturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	key := uc.buildKey(name, capturedAt)
	if err := uc.uploader.PutObject(ctx, key, cmd.ContentType, cmd.Data); err != nil {
		if uc.logger != nil {
			uc.logger.Error("Error uploading image to S3", err,
				"bucket", uc.location.Bucket(),
				"key", key,
			)
		}
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url := uc.location.ObjectURL(key)
	if uc.logger != nil {
		uc.logger.Info("Image successfully uploaded to S3", "key", key, "size", len(cmd.Data))
	}

	if uc.eventPublisher != nil {
		event := ImageUploadedEvent{
			Bucket:     uc.location.Bucket(),
			Key:        key,
			URL:        url,
			SizeBytes:  len(cmd.Data),
			UploadedAt: time.Now().UTC(),
		}
		if err := uc.eventPublisher.PublishEvent(ctx, port.SubjectImagesUploaded, event); err != nil && uc.logger != nil {
			uc.logger.Warn("Failed to publish image uploaded event", "key", key, "error", err.Error())
		}
	}

	return &UploadImageResult{Key: key, URL: url}, nil
}

func (uc *UploadImageUseCase) buildKey(name string, capturedAt time.Time) string {
	prefix := strings.Trim(uc.config.KeyPrefix, "/")
	return fmt.Sprintf("%s/%s_%s.png", prefix, name, capturedAt.Format("2006-01-02"))
}
